// Package main provides the unified CLI entry point for the Southern IOT ERP
// backend.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"southerniot.dev/erp/internal/store"
	"southerniot.dev/erp/pkg/logger"
)

// InitConfig initializes Viper configuration.
// It supports reading from config files (config.yaml) and environment variables.
func InitConfig(cfgFile string) error {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Search for config in current directory and /etc/southern-iot/
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/southern-iot/")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Environment variables
	viper.SetEnvPrefix("SOUTHERN_IOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		var configNotFoundErr viper.ConfigFileNotFoundError
		if errors.As(err, &configNotFoundErr) {
			// Config file not found; rely on env vars and defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// GetLogger creates a slog.Logger based on configuration.
func GetLogger() *slog.Logger {
	return logger.New(&logger.Config{
		Level: logger.ParseLevel(viper.GetString("log.level")),
	})
}

// databaseParams reads the connection parameters for one logical database,
// falling back to the shared db.* settings for anything the per-database
// section leaves unset. Only the database name has to differ between the
// five databases in a typical deployment.
func databaseParams(db store.LogicalDatabase) store.Params {
	get := func(key, shared string) string {
		if v := viper.GetString(fmt.Sprintf("db.%s.%s", db, key)); v != "" {
			return v
		}
		return viper.GetString(shared)
	}

	port := viper.GetInt(fmt.Sprintf("db.%s.port", db))
	if port == 0 {
		port = viper.GetInt("db.port")
	}
	if port == 0 {
		port = 5432
	}

	name := get("name", "")
	if name == "" {
		// Convention: one database per registry entry, named after it.
		name = string(db)
	}

	sslMode := get("sslmode", "db.sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	host := get("host", "db.host")
	if host == "" {
		host = "localhost"
	}

	user := get("user", "db.user")
	if user == "" {
		user = "postgres"
	}

	return store.Params{
		Host:     host,
		Port:     port,
		User:     user,
		Password: get("password", "db.password"),
		DBName:   name,
		SSLMode:  sslMode,
	}
}

// registryConfig assembles the store configuration for every logical database.
func registryConfig(log *slog.Logger) *store.Config {
	databases := make(map[store.LogicalDatabase]store.Params, len(store.All()))
	for _, db := range store.All() {
		databases[db] = databaseParams(db)
	}

	return &store.Config{
		Logger:          log,
		Databases:       databases,
		MaxOpenConns:    viper.GetInt("db.pool.max_open_conns"),
		MaxIdleConns:    viper.GetInt("db.pool.max_idle_conns"),
		ConnMaxLifetime: viper.GetDuration("db.pool.conn_max_lifetime"),
	}
}
