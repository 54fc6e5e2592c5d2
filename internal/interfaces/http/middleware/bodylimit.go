package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/storefront/checkout/internal/infrastructure/logger"
	"github.com/storefront/checkout/internal/interfaces/http/dto"
)

// ErrCodeRequestTooLarge is returned when the body exceeds the limit
const ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"

// BodyLimit rejects request bodies larger than maxBytes
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponse(dto.ErrorInfo{
				Code:      ErrCodeRequestTooLarge,
				Message:   "Request body exceeds maximum allowed size",
				RequestID: logger.RequestID(c.Request.Context()),
			}))
			return
		}

		// Chunked bodies carry no length up front.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
