// Package handler implements the gin handlers of the storefront BFF.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/storefront/checkout/internal/application/checkout"
	"github.com/storefront/checkout/internal/domain/identity"
	"github.com/storefront/checkout/internal/infrastructure/logger"
	"github.com/storefront/checkout/internal/interfaces/http/dto"
	"github.com/storefront/checkout/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID returns the request ID assigned by the logging middleware
func getRequestID(c *gin.Context) string {
	if id := logger.RequestID(c.Request.Context()); id != "" {
		return id
	}
	return c.GetHeader(logger.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(dto.ErrorInfo{
		Code:      code,
		Message:   message,
		RequestID: getRequestID(c),
	}))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// HandleError maps err to a status and error body. Server-side failures are
// recorded on the gin context for the request log.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	status, info := dto.ErrorFromErr(err)
	info.RequestID = getRequestID(c)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
		logger.L(c.Request.Context()).Error("Request failed", zap.Error(err))
	}
	c.JSON(status, dto.NewErrorResponse(info))
}

// currentUser returns the authenticated user or writes a 401
func (h *BaseHandler) currentUser(c *gin.Context) (*identity.User, bool) {
	user := middleware.GetUser(c)
	if !user.Present() {
		h.Unauthorized(c, "Authentication required")
		return nil, false
	}
	return user, true
}

// pathIndex parses a non-negative integer path parameter
func (h *BaseHandler) pathIndex(c *gin.Context, name string) (int, bool) {
	index, err := strconv.Atoi(c.Param(name))
	if err != nil {
		h.BadRequest(c, "Invalid "+name)
		return 0, false
	}
	return index, true
}

// Workspaces hands out the per-shopper workspace
type Workspaces interface {
	Acquire(user *identity.User) (*checkout.Workspace, func())
	End(user *identity.User) bool
}

// withWorkspace runs fn on the locked workspace of the current user
func (h *BaseHandler) withWorkspace(c *gin.Context, workspaces Workspaces, fn func(user *identity.User, ws *checkout.Workspace)) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	ws, release := workspaces.Acquire(user)
	defer release()
	fn(user, ws)
}

// ensureStarted starts the checkout session for user unless it is already
// loaded for the same token. A session stuck in Loading after a failed
// start is retried.
func ensureStarted(ctx context.Context, ws *checkout.Workspace, user *identity.User) error {
	current := ws.Session.User()
	if current != nil && current.Token == user.Token && ws.Session.State() != checkout.StateLoading {
		return nil
	}
	return ws.Session.Start(ctx, user)
}
