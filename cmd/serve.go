package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"southerniot.dev/erp/internal/api"
	"southerniot.dev/erp/internal/auth"
	"southerniot.dev/erp/internal/ingest"
	"southerniot.dev/erp/internal/seed"
	"southerniot.dev/erp/internal/store"
	"southerniot.dev/erp/pkg/metrics"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ERP backend server",
	Long: `Run the ERP backend server that:
- Serves the HTTP CRUD and telemetry API
- Consumes telemetry messages from RabbitMQ
- Persists data across five PostgreSQL databases`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Serve-specific flags
	serveCmd.Flags().Int("http-port", 8000, "HTTP server port")
	serveCmd.Flags().String("db-host", "localhost", "PostgreSQL host")
	serveCmd.Flags().Int("db-port", 5432, "PostgreSQL port")
	serveCmd.Flags().String("db-user", "postgres", "PostgreSQL user")
	serveCmd.Flags().String("db-password", "", "PostgreSQL password")
	serveCmd.Flags().String("jwt-secret", "", "JWT signing secret")
	serveCmd.Flags().Duration("jwt-ttl", 8*24*time.Hour, "JWT lifetime")
	serveCmd.Flags().String("device-token", "", "shared X-IOT-Token for device endpoints (empty disables the check)")
	serveCmd.Flags().String("admin-password", "admin", "bootstrap admin password")
	serveCmd.Flags().String("rabbitmq-url", "", "RabbitMQ URL (empty disables the telemetry consumer)")
	serveCmd.Flags().String("queue-name", "telemetry", "RabbitMQ queue name for telemetry messages")

	// Bind flags to viper
	_ = viper.BindPFlag("http.port", serveCmd.Flags().Lookup("http-port"))
	_ = viper.BindPFlag("db.host", serveCmd.Flags().Lookup("db-host"))
	_ = viper.BindPFlag("db.port", serveCmd.Flags().Lookup("db-port"))
	_ = viper.BindPFlag("db.user", serveCmd.Flags().Lookup("db-user"))
	_ = viper.BindPFlag("db.password", serveCmd.Flags().Lookup("db-password"))
	_ = viper.BindPFlag("auth.jwt_secret", serveCmd.Flags().Lookup("jwt-secret"))
	_ = viper.BindPFlag("auth.jwt_ttl", serveCmd.Flags().Lookup("jwt-ttl"))
	_ = viper.BindPFlag("auth.device_token", serveCmd.Flags().Lookup("device-token"))
	_ = viper.BindPFlag("auth.admin_password", serveCmd.Flags().Lookup("admin-password"))
	_ = viper.BindPFlag("rabbitmq.url", serveCmd.Flags().Lookup("rabbitmq-url"))
	_ = viper.BindPFlag("rabbitmq.queue_name", serveCmd.Flags().Lookup("queue-name"))
}

func runServe(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting erp backend")

	ctx := context.Background()

	storeCfg := registryConfig(logger)
	storeCfg.Metrics = metrics.NewStoreMetrics("southern_iot")

	registry, err := store.NewRegistry(storeCfg)
	if err != nil {
		logger.Error("failed to create registry", "error", err)
		return err
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Error("failed to close registry", "error", err)
		}
	}()

	// Schema first; the process must not serve traffic against missing tables.
	if err := registry.InitializeAll(ctx); err != nil {
		logger.Error("schema initialization failed", "error", err)
		return err
	}

	tokens, err := auth.NewTokenManager(
		[]byte(viper.GetString("auth.jwt_secret")),
		"southern-iot",
		viper.GetDuration("auth.jwt_ttl"),
	)
	if err != nil {
		logger.Error("failed to create token manager", "error", err)
		return err
	}

	hasher := auth.NewHasher(0)

	if err := seed.EnsureAdmin(ctx, registry, hasher, viper.GetString("auth.admin_password"), logger); err != nil {
		logger.Error("admin bootstrap failed", "error", err)
		return err
	}

	var consumer *ingest.Consumer
	if url := viper.GetString("rabbitmq.url"); url != "" {
		mqMetrics := metrics.NewMQMetrics("southern_iot")
		consumer, err = ingest.NewConsumer(&ingest.ConsumerConfig{
			Logger:      logger,
			Registry:    registry,
			RabbitMQURL: url,
			QueueName:   viper.GetString("rabbitmq.queue_name"),
			Metrics:     mqMetrics,
		})
		if err != nil {
			logger.Error("failed to create telemetry consumer", "error", err)
			return err
		}
		if err := consumer.Start(ctx); err != nil {
			logger.Error("failed to start telemetry consumer", "error", err)
			return err
		}
		defer func() {
			if err := consumer.Stop(); err != nil {
				logger.Error("failed to stop telemetry consumer", "error", err)
			}
		}()
	} else {
		logger.Info("rabbitmq url not configured, telemetry consumer disabled")
	}

	server, err := api.NewServer(&api.ServerConfig{
		Logger:   logger,
		Registry: registry,
		Tokens:   tokens,
		Hasher:   hasher,
		Devices:  auth.NewDeviceAuthorizer(viper.GetString("auth.device_token")),
		Metrics:  metrics.NewAPIMetrics("southern_iot"),
		HTTPPort: viper.GetInt("http.port"),
	})
	if err != nil {
		logger.Error("failed to create api server", "error", err)
		return err
	}

	logger.Info("erp backend configuration",
		"http_port", viper.GetInt("http.port"),
		"db_host", viper.GetString("db.host"),
		"db_port", viper.GetInt("db.port"),
		"rabbitmq_url", viper.GetString("rabbitmq.url"),
	)

	if err := server.Run(ctx); err != nil {
		logger.Error("api server error", "error", err)
		return err
	}

	logger.Info("erp backend stopped")
	return nil
}
