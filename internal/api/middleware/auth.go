package middleware

import (
	"context"
	"net/http"
	"strings"

	"docaudit/internal/models"
	"docaudit/pkg/response"

	"github.com/gin-gonic/gin"
)

// TokenResolver maps a credential token to its identity. A failed lookup
// is indistinguishable from "no such identity".
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*models.User, error)
}

type AuthMiddleware struct {
	resolver   TokenResolver
	cookieName string
}

func NewAuthMiddleware(resolver TokenResolver, cookieName string) *AuthMiddleware {
	return &AuthMiddleware{
		resolver:   resolver,
		cookieName: cookieName,
	}
}

// RequireAuth resolves the session credential and stores the user in the
// request context. The credential comes from the auth cookie; a bearer
// header is accepted for non-browser clients.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := am.CredentialFrom(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Msg(response.MsgUnauthorized))
			return
		}

		user, err := am.resolver.ResolveToken(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, response.Msg(response.MsgUnauthorized))
			return
		}

		c.Set("user", user)
		c.Next()
	}
}

// CredentialFrom extracts the session token from a request without judging
// it. The websocket handshake uses this directly because its rejection path
// is a close frame, not an HTTP status.
func (am *AuthMiddleware) CredentialFrom(r *http.Request) string {
	if cookie, err := r.Cookie(am.cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// UserFrom returns the authenticated user stored by RequireAuth.
func UserFrom(c *gin.Context) *models.User {
	value, ok := c.Get("user")
	if !ok {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}
