// Package middleware provides HTTP middleware for the storefront BFF.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/checkout/internal/domain/identity"
	"github.com/storefront/checkout/internal/infrastructure/auth"
	"github.com/storefront/checkout/internal/infrastructure/logger"
	"github.com/storefront/checkout/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Context keys
const (
	UserKey       = "storefront_user"
	AuthHeaderKey = "Authorization"
)

// TokenInspector resolves a bearer token to a user
type TokenInspector interface {
	Inspect(token string) (*identity.User, error)
}

// Auth requires a bearer token and stores the resolved user in the context
func Auth(inspector TokenInspector, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		token, err := auth.ExtractBearer(c.GetHeader(AuthHeaderKey))
		if err == nil {
			var user *identity.User
			user, err = inspector.Inspect(token)
			if err == nil {
				c.Set(UserKey, user)
				if user.Subject != "" {
					c.Request = c.Request.WithContext(logger.WithUserSubject(c.Request.Context(), user.Subject))
				}
				c.Next()
				return
			}
		}

		log.Warn("Authentication failed",
			zap.Error(err),
			zap.String("path", c.Request.URL.Path),
		)
		status, info := dto.ErrorFromErr(err)
		if status != http.StatusUnauthorized {
			status = http.StatusUnauthorized
		}
		info.RequestID = logger.RequestID(c.Request.Context())
		c.AbortWithStatusJSON(status, dto.NewErrorResponse(info))
	}
}

// GetUser returns the authenticated user, nil on public routes
func GetUser(c *gin.Context) *identity.User {
	if v, ok := c.Get(UserKey); ok {
		if u, ok := v.(*identity.User); ok {
			return u
		}
	}
	return nil
}
