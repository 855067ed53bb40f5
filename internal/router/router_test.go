package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/waveai-auth/config"
	"github.com/oksasatya/waveai-auth/internal/container"
)

func newEngine(t *testing.T, rateLimit int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		SecretKey:      "secret",
		AccessTTL:      time.Hour,
		SessionTTL:     24 * time.Hour,
		FrontendURL:    "http://front.test",
		AuthRateLimit:  rateLimit,
		AuthRateWindow: time.Minute,
	}
	c, err := container.NewCore(cfg, nil, rdb)
	require.NoError(t, err)

	r := gin.New()
	reg := NewRegistry(r)
	InitModules(reg, c)
	require.Equal(t, 4, reg.RegisterAll())
	return r
}

func serve(r *gin.Engine, method, path, body string, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if remote != "" {
		req.RemoteAddr = remote
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoutesRegistered(t *testing.T) {
	r := newEngine(t, 20)

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/auth/health", "", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/stats", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/auth/me", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/api/users/search?q=a", "", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodGet, "/api/auth/google", "", "").Code)
	assert.Equal(t, http.StatusOK, serve(r, http.MethodPost, "/api/auth/logout", "", "").Code)

	w := serve(r, http.MethodGet, "/api/debug/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestSignupRateLimited(t *testing.T) {
	r := newEngine(t, 2)
	remote := "203.0.113.7:1234"
	body := `{"email":"x","name":"n"}`

	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/api/auth/signup", body, remote).Code)
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/api/auth/signup", body, remote).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/api/auth/signup", body, remote).Code)
	// login has its own window
	assert.Equal(t, http.StatusBadRequest, serve(r, http.MethodPost, "/api/auth/login", `{}`, remote).Code)
}
