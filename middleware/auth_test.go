package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"heirloom/pkg/apperror"
	"heirloom/pkg/auth"
)

type fakeAuth map[string]auth.Principal

func (f fakeAuth) Authenticate(_ context.Context, token string) (auth.Principal, *auth.Claims, error) {
	p, ok := f[token]
	if !ok {
		return auth.Principal{}, nil, apperror.Unauthenticated("invalid or expired token")
	}
	return p, &auth.Claims{UserID: p.UserID, Role: p.Role}, nil
}

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	a := fakeAuth{
		"emp":   {UserID: 1, Role: auth.RoleEmployee},
		"admin": {UserID: 2, Role: auth.RoleAdmin},
	}
	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop(), false))
	r.GET("/me", AuthMiddleware(a), func(c *gin.Context) {
		p, _ := CurrentPrincipal(c)
		c.JSON(http.StatusOK, gin.H{"id": p.UserID})
	})
	r.GET("/admin", AuthMiddleware(a), RequireCapability(auth.CapManageUsers, "admins only"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/ws", WebSocketAuth(a), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func get(r http.Handler, path, token string) int {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w.Code
}

func TestAuthMiddleware(t *testing.T) {
	r := authRouter()
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", ""))
	assert.Equal(t, http.StatusUnauthorized, get(r, "/me", "forged"))
	assert.Equal(t, http.StatusOK, get(r, "/me", "emp"))

	assert.Equal(t, http.StatusForbidden, get(r, "/admin", "emp"))
	assert.Equal(t, http.StatusOK, get(r, "/admin", "admin"))

	assert.Equal(t, http.StatusOK, get(r, "/ws?token=emp", ""))
	assert.Equal(t, http.StatusOK, get(r, "/ws", "emp"))
	assert.Equal(t, http.StatusUnauthorized, get(r, "/ws?token=forged", ""))
}
