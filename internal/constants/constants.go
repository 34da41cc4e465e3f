package constants

import "time"

// Context keys set by the auth middleware.
const (
	ContextKeyUserID    = "user_id"
	ContextKeyUserRole  = "user_role"
	ContextKeyTokenID   = "token_id"
	ContextKeyClaims    = "claims"
	ContextKeyRequestID = "request_id"
)

const (
	HeaderRequestID = "X-Request-ID"
	BearerPrefix    = "Bearer "
)

// Validation limits mirror the column sizes in internal/models.
const (
	MinPasswordLength  = 6
	MaxLoginLength     = 100
	MaxTaskTitleLength = 100
	MaxTaskTypeLength  = 50
	MaxDeviceTokenLen  = 255
	MaxDeviceTypeLen   = 50
	DueTimeLayout      = "15:04"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 50
	MaxPageSize     = 200
)

const (
	DefaultTokenTTL        = 12 * time.Hour
	RevokedTokenKeyPrefix  = "revoked:"
	DefaultShutdownTimeout = 10 * time.Second
)
