// Package store owns the multi-database layer: one isolated connection pool
// per logical database, scoped session acquisition with guaranteed release,
// and idempotent schema initialization with bounded startup retries.
package store

import (
	"fmt"

	"southerniot.dev/erp/internal/model"
)

// LogicalDatabase identifies one independently-pooled backing store
// dedicated to one entity family.
type LogicalDatabase string

const (
	// Users holds operator accounts.
	Users LogicalDatabase = "users"
	// Clients holds customer records.
	Clients LogicalDatabase = "clients"
	// Orders holds sales orders.
	Orders LogicalDatabase = "orders"
	// EndDevices holds the end-device registry and its telemetry.
	EndDevices LogicalDatabase = "end_devices"
	// Gateways holds the gateway registry and its telemetry.
	Gateways LogicalDatabase = "gateways"
)

// All returns every logical database in initialization order.
func All() []LogicalDatabase {
	return []LogicalDatabase{Users, Clients, Orders, EndDevices, Gateways}
}

// Valid reports whether db names a known logical database.
func (db LogicalDatabase) Valid() bool {
	switch db {
	case Users, Clients, Orders, EndDevices, Gateways:
		return true
	}
	return false
}

// String returns the database name.
func (db LogicalDatabase) String() string {
	return string(db)
}

// Models returns the entity models persisted in db. Each logical database
// owns its own schema namespace; no model appears in more than one.
func Models(db LogicalDatabase) ([]any, error) {
	switch db {
	case Users:
		return []any{&model.User{}}, nil
	case Clients:
		return []any{&model.Client{}}, nil
	case Orders:
		return []any{&model.Order{}}, nil
	case EndDevices:
		return []any{&model.EndDevice{}, &model.DeviceTelemetry{}}, nil
	case Gateways:
		return []any{&model.Gateway{}, &model.GatewayTelemetry{}}, nil
	}
	return nil, fmt.Errorf("unknown logical database %q", string(db))
}
