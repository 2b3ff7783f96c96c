package constants

import "time"

// Context keys shared by middleware and handlers
const (
	ContextKeyUserID        = "user_id"
	ContextKeyUser          = "user"
	ContextKeyBearerToken   = "bearer_token"
	ContextKeyTenantContext = "tenant_context"
	ContextKeyLogger        = "logger"
	ContextKeyRequestID     = "request_id"
)

// HeaderRequestID is propagated on every response.
const HeaderRequestID = "X-Request-ID"

// Authentication
const (
	MinPasswordLength = 8
	DefaultTokenTTL   = 7 * 24 * time.Hour
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Tenants
const (
	// MaxSlugSuffix bounds the numeric suffix search when a slug is taken.
	MaxSlugSuffix = 100
	SlugFallback  = "tenant"
	// MaxSlugLength matches the width of the tenants.slug column.
	MaxSlugLength = 255
)

// AI
const (
	MaxAIGeneratedTasks = 20
)
