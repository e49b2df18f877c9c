package store_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"southerniot.dev/erp/internal/model"
	"southerniot.dev/erp/internal/store"
)

var _ = Describe("Registry", func() {
	Describe("NewRegistry", func() {
		Context("with invalid configuration", func() {
			It("should return error when config is nil", func() {
				reg, err := store.NewRegistry(nil)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("config cannot be nil"))
				Expect(reg).To(BeNil())
			})

			It("should return error when logger is nil", func() {
				reg, err := store.NewRegistry(&store.Config{
					Databases: map[store.LogicalDatabase]store.Params{
						store.Users: {Host: "localhost", Port: 5432},
					},
				})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("logger"))
				Expect(reg).To(BeNil())
			})

			It("should return error when no databases are configured", func() {
				reg, err := store.NewRegistry(&store.Config{Logger: quietLogger()})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("at least one database"))
				Expect(reg).To(BeNil())
			})

			It("should return error for an unknown logical database", func() {
				reg, err := store.NewRegistry(&store.Config{
					Logger: quietLogger(),
					Databases: map[store.LogicalDatabase]store.Params{
						store.LogicalDatabase("payroll"): {Host: "localhost", Port: 5432},
					},
				})
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("unknown logical database"))
				Expect(reg).To(BeNil())
			})
		})

		Context("with unreachable databases", func() {
			It("should construct without dialing", func() {
				// Port 1 is never listening; construction must still succeed
				// because pools open lazily on first use.
				reg, err := store.NewRegistry(&store.Config{
					Logger: quietLogger(),
					Databases: map[store.LogicalDatabase]store.Params{
						store.Users: {Host: "127.0.0.1", Port: 1, User: "u", DBName: "users", SSLMode: "disable"},
					},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(reg).NotTo(BeNil())
				Expect(reg.Close()).To(Succeed())
			})
		})
	})

	Describe("DB", func() {
		It("should return error for an unconfigured database", func() {
			reg := memoryRegistry(quietLogger(), store.Users)
			defer reg.Close()

			_, err := reg.DB(store.Orders)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("no connection target"))
		})

		It("should return the same handle on repeated use", func() {
			reg := memoryRegistry(quietLogger(), store.Users)
			defer reg.Close()

			first, err := reg.DB(store.Users)
			Expect(err).NotTo(HaveOccurred())
			second, err := reg.DB(store.Users)
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(BeIdenticalTo(second))
		})
	})

	Describe("Params", func() {
		It("should render a postgres DSN", func() {
			p := store.Params{
				Host:     "db.internal",
				Port:     5433,
				User:     "erp",
				Password: "pw",
				DBName:   "clients",
				SSLMode:  "require",
			}
			Expect(p.DSN()).To(Equal("host=db.internal port=5433 user=erp password=pw dbname=clients sslmode=require"))
		})
	})

	Describe("LogicalDatabase", func() {
		It("should enumerate all five databases", func() {
			Expect(store.All()).To(ConsistOf(
				store.Users, store.Clients, store.Orders, store.EndDevices, store.Gateways,
			))
		})

		It("should validate known names", func() {
			for _, db := range store.All() {
				Expect(db.Valid()).To(BeTrue())
			}
			Expect(store.LogicalDatabase("payroll").Valid()).To(BeFalse())
		})
	})

	Describe("Models", func() {
		It("should map the users database to the user model", func() {
			models, err := store.Models(store.Users)
			Expect(err).NotTo(HaveOccurred())
			Expect(models).To(HaveLen(1))
			Expect(models[0]).To(BeAssignableToTypeOf(&model.User{}))
		})

		It("should include telemetry in the device registry databases", func() {
			models, err := store.Models(store.EndDevices)
			Expect(err).NotTo(HaveOccurred())
			Expect(models).To(ContainElement(BeAssignableToTypeOf(&model.DeviceTelemetry{})))

			models, err = store.Models(store.Gateways)
			Expect(err).NotTo(HaveOccurred())
			Expect(models).To(ContainElement(BeAssignableToTypeOf(&model.GatewayTelemetry{})))
		})

		It("should return error for an unknown database", func() {
			_, err := store.Models(store.LogicalDatabase("payroll"))
			Expect(err).To(HaveOccurred())
		})
	})
})
