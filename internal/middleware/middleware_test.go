package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/chatcore/pkg/auth"
	"github.com/quocanhngo/chatcore/pkg/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type touches struct{ ids []uuid.UUID }

func (t *touches) Touch(ctx context.Context, userID uuid.UUID) error {
	t.ids = append(t.ids, userID)
	return nil
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	return ratelimit.Decision{}, errors.New("redis: connection refused")
}

type denyAll struct{}

func (denyAll) Allow(ctx context.Context, key string) (ratelimit.Decision, error) {
	return ratelimit.Decision{Allowed: false, ResetIn: 30 * time.Second}, nil
}

func newRouter(jwt *auth.JWTManager, mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	chain := append([]gin.HandlerFunc{AuthMiddleware(auth.NewVerifier(jwt, nil), zap.NewNop())}, mw...)
	chain = append(chain, func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UserNameKey))
	})
	r.GET("/me", chain...)
	return r
}

func get(t *testing.T, r *gin.Engine, header string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func Test_AuthMiddleware(t *testing.T) {
	jwt := auth.NewJWTManager("secret", time.Hour)
	token, err := jwt.GenerateToken(uuid.New(), "alice@example.com", "Alice")
	require.NoError(t, err)
	r := newRouter(jwt)

	assert.Equal(t, http.StatusUnauthorized, get(t, r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "Token "+token).Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "Bearer nope").Code)

	rec := get(t, r, "bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Alice", rec.Body.String())
}

func Test_ActivityMiddlewareTouchesCaller(t *testing.T) {
	jwt := auth.NewJWTManager("secret", time.Hour)
	userID := uuid.New()
	token, err := jwt.GenerateToken(userID, "bob@example.com", "Bob")
	require.NoError(t, err)

	tracker := &touches{}
	r := newRouter(jwt, ActivityMiddleware(tracker, zap.NewNop()))
	require.Equal(t, http.StatusOK, get(t, r, "Bearer "+token).Code)
	assert.Equal(t, []uuid.UUID{userID}, tracker.ids)
}

func Test_RateLimitMiddleware(t *testing.T) {
	jwt := auth.NewJWTManager("secret", time.Hour)
	token, err := jwt.GenerateToken(uuid.New(), "carol@example.com", "Carol")
	require.NoError(t, err)

	t.Run("denied", func(t *testing.T) {
		r := newRouter(jwt, RateLimitMiddleware(denyAll{}, zap.NewNop()))
		rec := get(t, r, "Bearer "+token)
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	})

	t.Run("limiter outage lets requests through", func(t *testing.T) {
		r := newRouter(jwt, RateLimitMiddleware(brokenLimiter{}, zap.NewNop()))
		assert.Equal(t, http.StatusOK, get(t, r, "Bearer "+token).Code)
	})
}

func Test_CORSMiddlewareExposesHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		origins []string
		allow   string
	}{
		{name: "listed origin", origins: []string{"http://app.test"}, allow: "http://app.test"},
		{name: "wildcard", origins: []string{"*"}, allow: "*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORSMiddleware(tt.origins))
			r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set("Origin", "http://app.test")
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, tt.allow, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Retry-After")
		})
	}
}
