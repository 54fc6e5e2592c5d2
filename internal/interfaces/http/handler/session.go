package handler

import (
	"github.com/gin-gonic/gin"
)

// SessionHandler handles sign-out of the checkout session
type SessionHandler struct {
	BaseHandler
	workspaces Workspaces
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(workspaces Workspaces) *SessionHandler {
	return &SessionHandler{workspaces: workspaces}
}

// EndSessionResponse reports whether a session was running
type EndSessionResponse struct {
	Ended bool `json:"ended"`
}

// End serves POST /session/end: end the checkout session. Drops the shopper's
// cart, addresses and pending dialog. In-flight loads are discarded.
func (h *SessionHandler) End(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	h.Success(c, EndSessionResponse{Ended: h.workspaces.End(user)})
}
