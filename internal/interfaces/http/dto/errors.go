package dto

import (
	"errors"
	"net/http"

	"github.com/storefront/checkout/internal/application/checkout"
	"github.com/storefront/checkout/internal/domain/shared"
	"github.com/storefront/checkout/internal/infrastructure/auth"
)

// General error codes
const (
	ErrCodeInternal   = "ERR_INTERNAL"
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	ErrCodeNotFound   = "ERR_NOT_FOUND"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
)

// Upstream error codes
const (
	// ErrCodeRemote is used when the storefront backend or region directory failed
	ErrCodeRemote = "ERR_REMOTE"
)

// ErrorKindHTTPStatus maps domain error kinds to HTTP status codes
var ErrorKindHTTPStatus = map[shared.ErrorKind]int{
	shared.KindValidation:            http.StatusBadRequest,
	shared.KindInvalidSelectionOrder: http.StatusConflict,
	shared.KindInvalidState:          http.StatusConflict,
	shared.KindNoAddressSelected:     http.StatusUnprocessableEntity,
	shared.KindNegativeTotal:         http.StatusUnprocessableEntity,
	shared.KindUnauthenticated:       http.StatusUnauthorized,
}

// GetHTTPStatus returns the HTTP status code for a domain error kind.
// Returns 500 Internal Server Error if the kind is unknown.
func GetHTTPStatus(kind shared.ErrorKind) int {
	if status, ok := ErrorKindHTTPStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorFromErr converts any error raised while serving a request into a
// status code and error body.
func ErrorFromErr(err error) (int, ErrorInfo) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := domainErr.Code
		if code == "" {
			code = string(domainErr.Kind)
		}
		return GetHTTPStatus(domainErr.Kind), ErrorInfo{
			Code:    code,
			Message: domainErr.Message,
			Fields:  domainErr.Fields,
		}
	}

	var remoteErr *shared.RemoteError
	if errors.As(err, &remoteErr) {
		status := http.StatusBadGateway
		if remoteErr.StatusCode == http.StatusUnauthorized {
			status = http.StatusUnauthorized
		}
		return status, ErrorInfo{
			Code:    ErrCodeRemote,
			Message: remoteErr.UserMessage(),
			Op:      remoteErr.Op,
		}
	}

	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, ErrorInfo{Code: ErrCodeTokenExpired, Message: "Token has expired"}
	case errors.Is(err, auth.ErrMissingToken):
		return http.StatusUnauthorized, ErrorInfo{Code: ErrCodeUnauthorized, Message: "Authorization required"}
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidClaims),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return http.StatusUnauthorized, ErrorInfo{Code: ErrCodeTokenInvalid, Message: "Invalid token"}
	case errors.Is(err, checkout.ErrHandoffNotFound):
		return http.StatusNotFound, ErrorInfo{Code: ErrCodeNotFound, Message: "Payment handoff not found or expired"}
	}

	return http.StatusInternalServerError, ErrorInfo{Code: ErrCodeInternal, Message: "An unexpected error occurred"}
}
