package store_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"southerniot.dev/erp/internal/model"
	"southerniot.dev/erp/internal/store"
)

var _ = Describe("WithSession", func() {
	var (
		ctx context.Context
		reg *store.Registry
	)

	BeforeEach(func() {
		ctx = context.Background()
		reg = memoryRegistry(quietLogger(), store.Clients)
		Expect(reg.InitializeAll(ctx)).To(Succeed())

		DeferCleanup(func() {
			Expect(reg.Close()).To(Succeed())
		})
	})

	countClients := func() int64 {
		var n int64
		Expect(reg.WithSession(ctx, store.Clients, func(tx *gorm.DB) error {
			return tx.Model(&model.Client{}).Count(&n).Error
		})).To(Succeed())
		return n
	}

	Context("when the unit of work succeeds", func() {
		It("should commit the writes", func() {
			err := reg.WithSession(ctx, store.Clients, func(tx *gorm.DB) error {
				return tx.Create(&model.Client{
					ClientName: "Acme",
					PublicID:   "CLI-2025-0001",
				}).Error
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(countClients()).To(Equal(int64(1)))
		})
	})

	Context("when the unit of work returns an error", func() {
		It("should roll back the writes and surface the error", func() {
			boom := errors.New("boom")
			err := reg.WithSession(ctx, store.Clients, func(tx *gorm.DB) error {
				if err := tx.Create(&model.Client{
					ClientName: "Acme",
					PublicID:   "CLI-2025-0001",
				}).Error; err != nil {
					return err
				}
				return boom
			})
			Expect(err).To(MatchError(boom))
			Expect(countClients()).To(BeZero())
		})
	})

	Context("when the unit of work panics", func() {
		It("should roll back the writes and re-raise the panic", func() {
			Expect(func() {
				_ = reg.WithSession(ctx, store.Clients, func(tx *gorm.DB) error {
					if err := tx.Create(&model.Client{
						ClientName: "Acme",
						PublicID:   "CLI-2025-0001",
					}).Error; err != nil {
						return err
					}
					panic("mid-transaction failure")
				})
			}).To(PanicWith("mid-transaction failure"))

			// The registry must remain usable: the session's connection went
			// back to the pool despite the panic.
			Expect(countClients()).To(BeZero())
		})
	})

	Context("when the context is already canceled", func() {
		It("should not run the unit of work", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()

			ran := false
			err := reg.WithSession(canceled, store.Clients, func(tx *gorm.DB) error {
				ran = true
				return nil
			})
			Expect(err).To(HaveOccurred())
			Expect(ran).To(BeFalse())
		})
	})

	Context("against an unconfigured database", func() {
		It("should return an acquisition error", func() {
			err := reg.WithSession(ctx, store.Orders, func(tx *gorm.DB) error {
				return nil
			})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("acquiring orders session"))
		})
	})

	It("should isolate the five databases from each other", func() {
		multi := memoryRegistry(quietLogger(), store.Clients, store.Orders)
		defer multi.Close()
		Expect(multi.InitializeAll(ctx)).To(Succeed())

		Expect(multi.WithSession(ctx, store.Clients, func(tx *gorm.DB) error {
			return tx.Create(&model.Client{ClientName: "Acme", PublicID: "CLI-2025-0001"}).Error
		})).To(Succeed())

		// The orders database has no clients table.
		err := multi.WithSession(ctx, store.Orders, func(tx *gorm.DB) error {
			var n int64
			return tx.Table("clients").Count(&n).Error
		})
		Expect(err).To(HaveOccurred())
	})
})
