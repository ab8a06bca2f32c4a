package handlers

import (
	"net/http"

	"docaudit/internal/api/middleware"
	"docaudit/internal/services"
	"docaudit/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	audits *services.AuditService
}

func NewUserHandler(audits *services.AuditService) *UserHandler {
	return &UserHandler{audits: audits}
}

// GetProfile returns the caller's username and audit activity summary.
func (h *UserHandler) GetProfile(c *gin.Context) {
	user := middleware.UserFrom(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, response.Msg(response.MsgUnauthorized))
		return
	}

	profile, err := h.audits.Profile(c.Request.Context(), user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Msg(response.MsgInternal))
		return
	}

	c.JSON(http.StatusOK, profile)
}
