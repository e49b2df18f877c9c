package sequence_test

import (
	"context"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"southerniot.dev/erp/internal/model"
	"southerniot.dev/erp/internal/sequence"
	"southerniot.dev/erp/internal/store"
)

var _ = Describe("Spec", func() {
	Describe("Prefix", func() {
		DescribeTable("should render the year into the family prefix",
			func(sp sequence.Spec, year int, expected string) {
				Expect(sp.Prefix(year)).To(Equal(expected))
			},
			Entry("clients", sequence.ClientIDs, 2025, "CLI-2025-"),
			Entry("orders", sequence.OrderIDs, 2025, "ORD-2025-"),
			Entry("end devices", sequence.EndDeviceIDs, 2024, "ED-2024-"),
			Entry("gateways", sequence.GatewayIDs, 2030, "G-2030-"),
		)
	})

	Describe("Suffix", func() {
		It("should extract the numeric suffix", func() {
			n, ok := sequence.Suffix("CLI-2025-0042", "CLI-2025-")
			Expect(ok).To(BeTrue())
			Expect(n).To(Equal(42))
		})

		It("should accept suffixes wider than four digits", func() {
			n, ok := sequence.Suffix("CLI-2025-10001", "CLI-2025-")
			Expect(ok).To(BeTrue())
			Expect(n).To(Equal(10001))
		})

		DescribeTable("should reject malformed identifiers",
			func(id, prefix string) {
				_, ok := sequence.Suffix(id, prefix)
				Expect(ok).To(BeFalse())
			},
			Entry("missing prefix", "ORD-2025-0042", "CLI-2025-"),
			Entry("empty suffix", "CLI-2025-", "CLI-2025-"),
			Entry("non-numeric suffix", "CLI-2025-abcd", "CLI-2025-"),
			Entry("negative suffix", "CLI-2025--1", "CLI-2025-"),
		)
	})

	Describe("Format", func() {
		It("should zero-pad to four digits", func() {
			Expect(sequence.Format("CLI-2025-", 7)).To(Equal("CLI-2025-0007"))
		})

		It("should grow past four digits instead of wrapping", func() {
			Expect(sequence.Format("CLI-2025-", 10000)).To(Equal("CLI-2025-10000"))
		})
	})
})

var _ = Describe("NextID", func() {
	var (
		ctx    context.Context
		reg    *store.Registry
		prefix string
	)

	BeforeEach(func() {
		ctx = context.Background()
		reg = memoryRegistry(quietLogger(), store.Clients)
		Expect(reg.InitializeAll(ctx)).To(Succeed())
		prefix = sequence.ClientIDs.Prefix(time.Now().UTC().Year())

		DeferCleanup(func() {
			Expect(reg.Close()).To(Succeed())
		})
	})

	insertClient := func(publicID string) {
		Expect(reg.WithSession(ctx, store.Clients, func(tx *gorm.DB) error {
			return tx.Create(&model.Client{ClientName: "Acme", PublicID: publicID}).Error
		})).To(Succeed())
	}

	nextID := func() string {
		var id string
		Expect(reg.WithSession(ctx, store.Clients, func(tx *gorm.DB) error {
			var err error
			id, err = sequence.NextID(tx, sequence.ClientIDs, quietLogger())
			return err
		})).To(Succeed())
		return id
	}

	Context("with an empty table", func() {
		It("should start at 0001", func() {
			Expect(nextID()).To(Equal(prefix + "0001"))
		})
	})

	Context("with existing identifiers", func() {
		It("should increment past the greatest suffix", func() {
			insertClient(prefix + "0001")
			insertClient(prefix + "0002")
			insertClient(prefix + "0007")

			Expect(nextID()).To(Equal(prefix + "0008"))
		})

		It("should ignore identifiers from previous years", func() {
			insertClient("CLI-2019-0042")
			insertClient("CLI-2019-0043")

			Expect(nextID()).To(Equal(prefix + "0001"))
		})

		It("should restart the sequence on a malformed stored identifier", func() {
			insertClient(prefix + "zzzz")

			Expect(nextID()).To(Equal(prefix + "0001"))
		})
	})
})

var _ = Describe("Create", func() {
	var (
		ctx context.Context
		reg *store.Registry
	)

	BeforeEach(func() {
		ctx = context.Background()
		reg = memoryRegistry(quietLogger(), store.Clients, store.Orders)
		Expect(reg.InitializeAll(ctx)).To(Succeed())

		DeferCleanup(func() {
			Expect(reg.Close()).To(Succeed())
		})
	})

	It("should allocate sequential identifiers across calls", func() {
		year := time.Now().UTC().Year()

		for i := 1; i <= 3; i++ {
			client := model.Client{ClientName: fmt.Sprintf("Client %d", i)}
			err := sequence.Create(ctx, reg, store.Clients, sequence.ClientIDs, &client, quietLogger())
			Expect(err).NotTo(HaveOccurred())
			Expect(client.PublicID).To(Equal(fmt.Sprintf("CLI-%d-%04d", year, i)))
			Expect(client.ID).NotTo(BeZero())
		}
	})

	It("should keep per-family sequences independent", func() {
		year := time.Now().UTC().Year()

		client := model.Client{ClientName: "Acme"}
		Expect(sequence.Create(ctx, reg, store.Clients, sequence.ClientIDs, &client, quietLogger())).To(Succeed())

		order := model.Order{OrderName: "First order", ClientName: "Acme"}
		Expect(sequence.Create(ctx, reg, store.Orders, sequence.OrderIDs, &order, quietLogger())).To(Succeed())

		Expect(client.PublicID).To(Equal(fmt.Sprintf("CLI-%d-0001", year)))
		Expect(order.PublicID).To(Equal(fmt.Sprintf("ORD-%d-0001", year)))
	})

	It("should surface non-conflict storage errors unchanged", func() {
		err := sequence.Create(ctx, reg, store.Gateways, sequence.GatewayIDs, &model.Gateway{}, quietLogger())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("acquiring gateways session"))
	})
})
