package handlers

import (
	"errors"
	"net/http"

	"docaudit/internal/models"
	"docaudit/internal/repositories/postgres"
	"docaudit/internal/services"
	"docaudit/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth         *services.AuthService
	cookieName   string
	cookieMaxAge int
}

func NewAuthHandler(auth *services.AuthService, cookieName string, cookieMaxAge int) *AuthHandler {
	return &AuthHandler{
		auth:         auth,
		cookieName:   cookieName,
		cookieMaxAge: cookieMaxAge,
	}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Msg(response.MsgMissingCreds))
		return
	}

	user, token, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, postgres.ErrUserExists) {
			c.JSON(http.StatusConflict, response.Msg(response.MsgExistingUser))
			return
		}
		c.JSON(http.StatusInternalServerError, response.Msg(response.MsgInternal))
		return
	}

	h.setAuthCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"username": user.Username})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Msg(response.MsgMissingCreds))
		return
	}

	user, token, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Msg(response.MsgUnauthorized))
		return
	}

	h.setAuthCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"username": user.Username})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if token, err := c.Cookie(h.cookieName); err == nil && token != "" {
		if err := h.auth.Logout(c.Request.Context(), token); err != nil {
			c.JSON(http.StatusInternalServerError, response.Msg(response.MsgInternal))
			return
		}
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookieName, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) setAuthCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(h.cookieName, token, h.cookieMaxAge, "/", "", false, true)
}
