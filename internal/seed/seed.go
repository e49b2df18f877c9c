// Package seed bootstraps the admin account and generates sample data for
// development environments.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/brianvoe/gofakeit/v7"
	"gorm.io/gorm"

	"southerniot.dev/erp/internal/auth"
	"southerniot.dev/erp/internal/model"
	"southerniot.dev/erp/internal/sequence"
	"southerniot.dev/erp/internal/store"
)

// AdminDefaults are the bootstrap admin credentials. The password must be
// rotated after first login; this mirrors a fresh appliance install.
const (
	AdminUsername = "admin"
	AdminEmail    = "admin@southerniot.dev"
)

// EnsureAdmin creates the admin account in the users database when absent.
// Safe to run on every startup.
func EnsureAdmin(ctx context.Context, reg *store.Registry, hasher *auth.Hasher, password string, log *slog.Logger) error {
	return reg.WithSession(ctx, store.Users, func(tx *gorm.DB) error {
		var existing model.User
		err := tx.Where("username = ?", AdminUsername).First(&existing).Error
		if err == nil {
			log.Info("admin user already exists, skipping bootstrap")
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := hasher.Hash(password)
		if err != nil {
			return fmt.Errorf("hashing admin password: %w", err)
		}

		log.Info("creating admin user")
		return tx.Create(&model.User{
			Email:          AdminEmail,
			Username:       AdminUsername,
			HashedPassword: hashed,
			FullName:       "System Administrator",
			IsActive:       true,
			IsSuperuser:    true,
			Department:     "Admin",
			Designation:    "System Admin",
		}).Error
	})
}

// fakeClient carries gofakeit struct tags for sample client generation.
type fakeClient struct {
	ClientName string `fake:"{company}"`
	Email      string `fake:"{email}"`
	Phone      string `fake:"{phone}"`
	Address    string `fake:"{street}, {city}, {state}"`
}

type fakeOrder struct {
	OrderName string `fake:"{productname}"`
	OrderDesc string `fake:"{sentence:8}"`
	Email     string `fake:"{email}"`
	Phone     string `fake:"{phone}"`
	Address   string `fake:"{street}, {city}, {state}"`
}

type fakeEndDevice struct {
	EndDeviceName     string `fake:"{noun}-sensor"`
	MaximumBus        int    `fake:"{number:1,16}"`
	FotaUpdateVersion string `fake:"{appversion}"`
	Address           string `fake:"{street}, {city}, {state}"`
}

type fakeGateway struct {
	TenantName           string `fake:"{company}"`
	ApplicationName      string `fake:"{appname}"`
	GatewayName          string `fake:"{noun}-gateway"`
	GatewayStatsInterval string `fake:"{number:10,300}"`
}

// SampleData populates every entity family with count generated records,
// allocating real sequenced identifiers so the data is indistinguishable
// from operator-created records.
func SampleData(ctx context.Context, reg *store.Registry, count int, log *slog.Logger) error {
	log.Info("generating sample data", "count_per_family", count)

	for i := 0; i < count; i++ {
		var fc fakeClient
		if err := gofakeit.Struct(&fc); err != nil {
			return fmt.Errorf("generating client: %w", err)
		}
		client := model.Client{
			ClientName: fc.ClientName,
			Email:      fc.Email,
			Phone:      fc.Phone,
			Address:    fc.Address,
		}
		if err := sequence.Create(ctx, reg, store.Clients, sequence.ClientIDs, &client, log); err != nil {
			return fmt.Errorf("seeding client: %w", err)
		}

		var fo fakeOrder
		if err := gofakeit.Struct(&fo); err != nil {
			return fmt.Errorf("generating order: %w", err)
		}
		order := model.Order{
			OrderName: fo.OrderName,
			OrderDesc: fo.OrderDesc,
			// Orders reference clients by free-text name only.
			ClientName: client.ClientName,
			Email:      fo.Email,
			Phone:      fo.Phone,
			Address:    fo.Address,
		}
		if err := sequence.Create(ctx, reg, store.Orders, sequence.OrderIDs, &order, log); err != nil {
			return fmt.Errorf("seeding order: %w", err)
		}

		var fd fakeEndDevice
		if err := gofakeit.Struct(&fd); err != nil {
			return fmt.Errorf("generating end device: %w", err)
		}
		device := model.EndDevice{
			EndDeviceName:     fd.EndDeviceName,
			MaximumBus:        fd.MaximumBus,
			FotaUpdateVersion: fd.FotaUpdateVersion,
			Address:           fd.Address,
		}
		if err := sequence.Create(ctx, reg, store.EndDevices, sequence.EndDeviceIDs, &device, log); err != nil {
			return fmt.Errorf("seeding end device: %w", err)
		}

		var fg fakeGateway
		if err := gofakeit.Struct(&fg); err != nil {
			return fmt.Errorf("generating gateway: %w", err)
		}
		gateway := model.Gateway{
			TenantName:           fg.TenantName,
			ApplicationName:      fg.ApplicationName,
			GatewayName:          fg.GatewayName,
			GatewayStatsInterval: fg.GatewayStatsInterval,
		}
		if err := sequence.Create(ctx, reg, store.Gateways, sequence.GatewayIDs, &gateway, log); err != nil {
			return fmt.Errorf("seeding gateway: %w", err)
		}
	}

	log.Info("sample data generated")
	return nil
}
