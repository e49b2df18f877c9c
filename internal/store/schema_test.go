package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"southerniot.dev/erp/internal/store"
	"southerniot.dev/erp/pkg/metrics"
)

// Registered once; the process-global metrics registry rejects duplicates.
var schemaTestMetrics = metrics.NewStoreMetrics("store_schema_test")

var _ = Describe("InitializeAll", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("with reachable databases", func() {
		It("should create every configured table", func() {
			reg := memoryRegistry(quietLogger(), store.EndDevices)
			defer reg.Close()

			Expect(reg.InitializeAll(ctx)).To(Succeed())

			gdb, err := reg.DB(store.EndDevices)
			Expect(err).NotTo(HaveOccurred())
			Expect(gdb.Migrator().HasTable("end-device")).To(BeTrue())
			Expect(gdb.Migrator().HasTable("telemetry")).To(BeTrue())
		})

		It("should be idempotent", func() {
			reg := memoryRegistry(quietLogger(), store.Clients)
			defer reg.Close()

			Expect(reg.InitializeAll(ctx)).To(Succeed())
			Expect(reg.InitializeAll(ctx)).To(Succeed())
		})

		It("should skip unconfigured databases", func() {
			reg := memoryRegistry(quietLogger(), store.Users)
			defer reg.Close()

			Expect(reg.InitializeAll(ctx)).To(Succeed())
		})
	})

	Context("with an unreachable database", func() {
		It("should retry the configured number of times and then abort", func() {
			reg, err := store.NewRegistry(&store.Config{
				Logger:  quietLogger(),
				Metrics: schemaTestMetrics,
				Databases: map[store.LogicalDatabase]store.Params{
					// Port 1 is never listening.
					store.Users: {Host: "127.0.0.1", Port: 1, User: "u", DBName: "users", SSLMode: "disable"},
				},
				InitAttempts: 3,
				InitDelay:    time.Millisecond,
			})
			Expect(err).NotTo(HaveOccurred())
			defer reg.Close()

			err = reg.InitializeAll(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("after 3 attempts"))

			failures := testutil.ToFloat64(
				schemaTestMetrics.SchemaInitAttempts.WithLabelValues("users", "error"),
			)
			Expect(failures).To(Equal(float64(3)))
		})

		It("should stop waiting when the context is canceled", func() {
			reg, err := store.NewRegistry(&store.Config{
				Logger: quietLogger(),
				Databases: map[store.LogicalDatabase]store.Params{
					store.Users: {Host: "127.0.0.1", Port: 1, User: "u", DBName: "users", SSLMode: "disable"},
				},
				InitAttempts: 5,
				InitDelay:    time.Minute,
			})
			Expect(err).NotTo(HaveOccurred())
			defer reg.Close()

			canceled, cancel := context.WithCancel(ctx)
			cancel()

			done := make(chan error, 1)
			go func() {
				done <- reg.InitializeAll(canceled)
			}()

			Eventually(done, "10s").Should(Receive(MatchError(ContainSubstring("context canceled"))))
		})
	})
})
