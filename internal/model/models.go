// Package model defines the persisted entities for every logical database.
package model

import (
	"time"

	"gorm.io/datatypes"
)

// Client is a customer record in the clients database.
// PublicID carries the human-readable CLI-YYYY-NNNN identifier.
type Client struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ClientName string    `gorm:"not null;index" json:"client_name"`
	PublicID   string    `gorm:"column:client_id;uniqueIndex;not null" json:"client_id"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `gorm:"type:text" json:"address,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Client model.
func (Client) TableName() string {
	return "clients"
}

// SetPublicID assigns the sequenced identifier. Implements sequence.Record.
func (c *Client) SetPublicID(id string) { c.PublicID = id }

// Order is a sales order in the orders database. ClientName is stored as
// free text with no enforced relationship to the clients database.
type Order struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	PublicID   string    `gorm:"column:order_id;uniqueIndex;not null" json:"order_id"`
	OrderName  string    `json:"order_name,omitempty"`
	OrderDesc  string    `gorm:"type:text" json:"order_desc,omitempty"`
	ClientName string    `gorm:"index" json:"client_name,omitempty"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Address    string    `gorm:"type:text" json:"address,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Order model.
func (Order) TableName() string {
	return "order_management"
}

// SetPublicID assigns the sequenced identifier. Implements sequence.Record.
func (o *Order) SetPublicID(id string) { o.PublicID = id }

// EndDevice is a registered end device in the device registry database.
type EndDevice struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	EndDeviceName     string    `gorm:"not null;index" json:"end_device_name"`
	PublicID          string    `gorm:"column:end_device_id;uniqueIndex;not null" json:"end_device_id"`
	MaximumBus        int       `gorm:"not null" json:"maximum_bus"`
	FotaUpdateVersion string    `json:"fota_update_version,omitempty"`
	Address           string    `gorm:"type:text" json:"address,omitempty"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the EndDevice model.
func (EndDevice) TableName() string {
	return "end-device"
}

// SetPublicID assigns the sequenced identifier. Implements sequence.Record.
func (d *EndDevice) SetPublicID(id string) { d.PublicID = id }

// Gateway is a registered gateway in the gateway registry database,
// including the application it was created under.
type Gateway struct {
	ID                     uint      `gorm:"primaryKey" json:"id"`
	TenantName             string    `gorm:"not null;index" json:"tenant_name"`
	ApplicationName        string    `gorm:"not null;index" json:"application_name"`
	ApplicationDescription string    `json:"application_description,omitempty"`
	ApplicationTags        string    `json:"application_tags,omitempty"`
	GatewayName            string    `gorm:"not null;index" json:"gateway_name"`
	PublicID               string    `gorm:"column:gateway_id;uniqueIndex;not null" json:"gateway_id"`
	GatewayStatsInterval   string    `gorm:"not null" json:"gateway_stats_interval"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the Gateway model.
func (Gateway) TableName() string {
	return "gateway"
}

// SetPublicID assigns the sequenced identifier. Implements sequence.Record.
func (g *Gateway) SetPublicID(id string) { g.PublicID = id }

// DeviceTelemetry is an append-only opaque payload reported by an end device.
// Records are immutable once written and are never deleted.
type DeviceTelemetry struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	EndDeviceID string         `gorm:"index" json:"end_device_id"`
	Data        datatypes.JSON `gorm:"not null" json:"data"`
	Timestamp   time.Time      `gorm:"autoCreateTime" json:"timestamp"`
}

// TableName specifies the table name for the DeviceTelemetry model.
func (DeviceTelemetry) TableName() string {
	return "telemetry"
}

// GatewayTelemetry is an append-only opaque payload reported by a gateway.
type GatewayTelemetry struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	GatewayID string         `gorm:"index" json:"gateway_id"`
	Data      datatypes.JSON `gorm:"not null" json:"data"`
	Timestamp time.Time      `gorm:"autoCreateTime" json:"timestamp"`
}

// TableName specifies the table name for the GatewayTelemetry model.
func (GatewayTelemetry) TableName() string {
	return "gateway_telemetry"
}

// User is an operator account in the users database.
type User struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Email            string         `gorm:"uniqueIndex;not null" json:"email"`
	Username         string         `gorm:"uniqueIndex;not null" json:"username"`
	HashedPassword   string         `gorm:"not null" json:"-"`
	FullName         string         `json:"full_name,omitempty"`
	IsActive         bool           `gorm:"default:true" json:"is_active"`
	IsSuperuser      bool           `gorm:"default:false" json:"is_superuser"`
	Department       string         `json:"department,omitempty"`
	Designation      string         `json:"designation,omitempty"`
	DepartmentAccess datatypes.JSON `json:"department_access,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users_implementation"
}
