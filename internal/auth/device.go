package auth

import "crypto/subtle"

// DeviceTokenHeader is the header devices and gateways present on telemetry
// ingestion requests.
const DeviceTokenHeader = "X-IOT-Token"

// DeviceAuthorizer checks the static bearer token devices authenticate with.
type DeviceAuthorizer struct {
	token string
}

// NewDeviceAuthorizer returns an authorizer accepting exactly token.
// An empty token disables device ingestion entirely.
func NewDeviceAuthorizer(token string) *DeviceAuthorizer {
	return &DeviceAuthorizer{token: token}
}

// Authorize reports whether presented matches the configured token,
// in constant time.
func (a *DeviceAuthorizer) Authorize(presented string) bool {
	if a.token == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.token), []byte(presented)) == 1
}
