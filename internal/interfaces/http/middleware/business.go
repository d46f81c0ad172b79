package middleware

import (
	"net/http"
	"strings"

	"github.com/bizledger/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Keys used to store business scope in gin.Context
const (
	BusinessIDKey     = "business_id"
	BusinessHeaderKey = "X-Business-ID"
)

// BusinessMiddlewareConfig holds configuration for business scope middleware
type BusinessMiddlewareConfig struct {
	// SkipPaths are paths that don't require business scope (e.g., health check)
	SkipPaths []string
	// Required determines if business scope is mandatory
	Required bool
	// Logger for middleware logging
	Logger *zap.Logger
}

// DefaultBusinessConfig returns default business middleware configuration
func DefaultBusinessConfig() BusinessMiddlewareConfig {
	return BusinessMiddlewareConfig{
		SkipPaths: []string{"/health", "/healthz", "/ready", "/metrics", "/api/v1/health"},
		Required:  true,
		Logger:    nil,
	}
}

// BusinessMiddleware extracts the business scope from the X-Business-ID header.
// Authentication happens upstream; the gateway sets the header after verifying
// the caller, so every ledger operation is scoped to exactly one business.
func BusinessMiddleware() gin.HandlerFunc {
	return BusinessMiddlewareWithConfig(DefaultBusinessConfig())
}

// BusinessMiddlewareWithConfig returns business middleware with custom configuration
func BusinessMiddlewareWithConfig(cfg BusinessMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath || strings.HasPrefix(path, skipPath+"/") {
				c.Next()
				return
			}
		}

		businessID := c.GetHeader(BusinessHeaderKey)

		if businessID != "" {
			if _, err := uuid.Parse(businessID); err != nil {
				respondUnauthorized(c, "Invalid business ID format")
				return
			}
		}

		if businessID == "" && cfg.Required {
			respondUnauthorized(c, "Business identification required")
			return
		}

		if businessID != "" {
			c.Set(BusinessIDKey, businessID)

			// Propagate to the request context so the service layer logs carry it
			ctx := c.Request.Context()
			log := logger.FromContext(ctx)
			ctx, _ = logger.WithBusinessID(ctx, log, businessID)
			c.Request = c.Request.WithContext(ctx)

			if cfg.Logger != nil {
				cfg.Logger.Debug("Business scope identified",
					zap.String("business_id", businessID),
				)
			}
		}

		c.Next()
	}
}

// respondUnauthorized sends an unauthorized response
func respondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
	})
}

// GetBusinessID retrieves the business ID from gin.Context
func GetBusinessID(c *gin.Context) string {
	if businessID, exists := c.Get(BusinessIDKey); exists {
		if bid, ok := businessID.(string); ok {
			return bid
		}
	}
	return ""
}

// GetBusinessUUID retrieves the business ID as UUID from gin.Context
func GetBusinessUUID(c *gin.Context) (uuid.UUID, error) {
	businessID := GetBusinessID(c)
	if businessID == "" {
		return uuid.Nil, nil
	}
	return uuid.Parse(businessID)
}

// MustGetBusinessUUID retrieves the business ID as UUID or panics if not found
// Use this only in handlers behind the business middleware
func MustGetBusinessUUID(c *gin.Context) uuid.UUID {
	businessUUID, err := GetBusinessUUID(c)
	if err != nil || businessUUID == uuid.Nil {
		panic("valid business_id not found in context")
	}
	return businessUUID
}

// OptionalBusinessMiddleware creates middleware that doesn't require business scope
func OptionalBusinessMiddleware() gin.HandlerFunc {
	cfg := DefaultBusinessConfig()
	cfg.Required = false
	return BusinessMiddlewareWithConfig(cfg)
}
