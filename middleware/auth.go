package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"heirloom/pkg/apperror"
	"heirloom/pkg/auth"
)

const (
	ContextUserIDKey    = "current_user_id"
	ContextJTIKey       = "current_jti"
	ContextPrincipalKey = "current_principal"
	ContextClaimsKey    = "current_claims"
)

// Authenticator turns a bearer token into the caller it was issued to.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Principal, *auth.Claims, error)
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", apperror.Unauthenticated("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", apperror.Unauthenticated("invalid authorization header")
	}
	return parts[1], nil
}

func authenticate(c *gin.Context, a Authenticator, token string) {
	p, claims, err := a.Authenticate(c.Request.Context(), token)
	if err != nil {
		c.Error(err)
		c.Abort()
		return
	}
	c.Set(ContextPrincipalKey, p)
	c.Set(ContextClaimsKey, claims)
	c.Set(ContextUserIDKey, p.UserID)
	c.Set(ContextJTIKey, p.JTI)
	c.Next()
}

func AuthMiddleware(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			c.Error(err)
			c.Abort()
			return
		}
		authenticate(c, a, token)
	}
}

// WebSocketAuth also accepts the token as a query parameter, since browsers
// cannot set headers on websocket upgrades.
func WebSocketAuth(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.Query("token"))
		if token == "" {
			var err error
			if token, err = bearerToken(c); err != nil {
				c.Error(err)
				c.Abort()
				return
			}
		}
		authenticate(c, a, token)
	}
}

// CurrentPrincipal returns the caller set by AuthMiddleware.
func CurrentPrincipal(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(ContextPrincipalKey)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}

func CurrentClaims(c *gin.Context) *auth.Claims {
	v, _ := c.Get(ContextClaimsKey)
	claims, _ := v.(*auth.Claims)
	return claims
}

// RequireCapability rejects callers whose role lacks the capability.
func RequireCapability(capability auth.Capability, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			c.Error(apperror.Unauthenticated("authentication required"))
			c.Abort()
			return
		}
		if !p.Can(capability) {
			c.Error(apperror.Forbidden(message))
			c.Abort()
			return
		}
		c.Next()
	}
}
