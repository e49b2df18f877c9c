package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"southerniot.dev/erp/internal/auth"
	"southerniot.dev/erp/internal/seed"
	"southerniot.dev/erp/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Bootstrap the admin user and generate sample data",
	Long: `Initialize the databases, create the admin account when absent,
and optionally fill every entity family with generated sample records.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().Int("count", 0, "sample records to generate per entity family (0 = admin bootstrap only)")
	seedCmd.Flags().String("admin-password", "admin", "bootstrap admin password")

	// Own key: serve binds its admin-password flag to auth.admin_password,
	// and viper only honors one flag binding per key.
	_ = viper.BindPFlag("seed.count", seedCmd.Flags().Lookup("count"))
	_ = viper.BindPFlag("seed.admin_password", seedCmd.Flags().Lookup("admin-password"))
}

func runSeed(_ *cobra.Command, _ []string) error {
	logger := GetLogger()
	logger.Info("starting seed run")

	ctx := context.Background()

	registry, err := store.NewRegistry(registryConfig(logger))
	if err != nil {
		logger.Error("failed to create registry", "error", err)
		return err
	}
	defer func() {
		if err := registry.Close(); err != nil {
			logger.Error("failed to close registry", "error", err)
		}
	}()

	if err := registry.InitializeAll(ctx); err != nil {
		logger.Error("schema initialization failed", "error", err)
		return err
	}

	hasher := auth.NewHasher(0)
	if err := seed.EnsureAdmin(ctx, registry, hasher, viper.GetString("seed.admin_password"), logger); err != nil {
		logger.Error("admin bootstrap failed", "error", err)
		return err
	}

	if count := viper.GetInt("seed.count"); count > 0 {
		if err := seed.SampleData(ctx, registry, count, logger); err != nil {
			logger.Error("sample data generation failed", "error", err)
			return err
		}
	}

	logger.Info("seed run completed")
	return nil
}
