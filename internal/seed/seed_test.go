package seed_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"southerniot.dev/erp/internal/auth"
	"southerniot.dev/erp/internal/model"
	"southerniot.dev/erp/internal/seed"
	"southerniot.dev/erp/internal/store"
)

var _ = Describe("EnsureAdmin", func() {
	var (
		ctx    context.Context
		reg    *store.Registry
		hasher *auth.Hasher
	)

	BeforeEach(func() {
		ctx = context.Background()
		reg = memoryRegistry(quietLogger(), store.Users)
		Expect(reg.InitializeAll(ctx)).To(Succeed())
		hasher = auth.NewHasher(bcrypt.MinCost)

		DeferCleanup(func() {
			Expect(reg.Close()).To(Succeed())
		})
	})

	loadAdmin := func() model.User {
		var user model.User
		Expect(reg.WithSession(ctx, store.Users, func(tx *gorm.DB) error {
			return tx.Where("username = ?", seed.AdminUsername).First(&user).Error
		})).To(Succeed())
		return user
	}

	It("should create an active superuser account", func() {
		Expect(seed.EnsureAdmin(ctx, reg, hasher, "admin", quietLogger())).To(Succeed())

		admin := loadAdmin()
		Expect(admin.IsActive).To(BeTrue())
		Expect(admin.IsSuperuser).To(BeTrue())
		Expect(admin.Email).To(Equal(seed.AdminEmail))
	})

	It("should store a verifiable password hash", func() {
		Expect(seed.EnsureAdmin(ctx, reg, hasher, "admin", quietLogger())).To(Succeed())

		admin := loadAdmin()
		Expect(admin.HashedPassword).NotTo(Equal("admin"))
		Expect(hasher.Compare(admin.HashedPassword, "admin")).To(Succeed())
	})

	It("should not touch an existing admin account", func() {
		Expect(seed.EnsureAdmin(ctx, reg, hasher, "admin", quietLogger())).To(Succeed())
		original := loadAdmin()

		Expect(seed.EnsureAdmin(ctx, reg, hasher, "different-password", quietLogger())).To(Succeed())

		after := loadAdmin()
		Expect(after.HashedPassword).To(Equal(original.HashedPassword))

		var count int64
		Expect(reg.WithSession(ctx, store.Users, func(tx *gorm.DB) error {
			return tx.Model(&model.User{}).Count(&count).Error
		})).To(Succeed())
		Expect(count).To(Equal(int64(1)))
	})
})

var _ = Describe("SampleData", func() {
	var (
		ctx context.Context
		reg *store.Registry
	)

	BeforeEach(func() {
		ctx = context.Background()
		reg = memoryRegistry(quietLogger(), store.Clients, store.Orders, store.EndDevices, store.Gateways)
		Expect(reg.InitializeAll(ctx)).To(Succeed())

		DeferCleanup(func() {
			Expect(reg.Close()).To(Succeed())
		})
	})

	It("should populate every entity family with sequenced records", func() {
		Expect(seed.SampleData(ctx, reg, 3, quietLogger())).To(Succeed())

		var clients []model.Client
		Expect(reg.WithSession(ctx, store.Clients, func(tx *gorm.DB) error {
			return tx.Find(&clients).Error
		})).To(Succeed())
		Expect(clients).To(HaveLen(3))
		for _, c := range clients {
			Expect(c.PublicID).To(HavePrefix("CLI-"))
			Expect(c.ClientName).NotTo(BeEmpty())
		}

		var orderCount, deviceCount, gatewayCount int64
		Expect(reg.WithSession(ctx, store.Orders, func(tx *gorm.DB) error {
			return tx.Model(&model.Order{}).Count(&orderCount).Error
		})).To(Succeed())
		Expect(reg.WithSession(ctx, store.EndDevices, func(tx *gorm.DB) error {
			return tx.Model(&model.EndDevice{}).Count(&deviceCount).Error
		})).To(Succeed())
		Expect(reg.WithSession(ctx, store.Gateways, func(tx *gorm.DB) error {
			return tx.Model(&model.Gateway{}).Count(&gatewayCount).Error
		})).To(Succeed())

		Expect(orderCount).To(Equal(int64(3)))
		Expect(deviceCount).To(Equal(int64(3)))
		Expect(gatewayCount).To(Equal(int64(3)))
	})

	It("should tie generated orders to generated clients", func() {
		Expect(seed.SampleData(ctx, reg, 2, quietLogger())).To(Succeed())

		var clientNames []string
		Expect(reg.WithSession(ctx, store.Clients, func(tx *gorm.DB) error {
			return tx.Model(&model.Client{}).Pluck("client_name", &clientNames).Error
		})).To(Succeed())

		var orders []model.Order
		Expect(reg.WithSession(ctx, store.Orders, func(tx *gorm.DB) error {
			return tx.Find(&orders).Error
		})).To(Succeed())

		for _, o := range orders {
			Expect(clientNames).To(ContainElement(o.ClientName))
		}
	})
})
