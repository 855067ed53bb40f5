package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/waveai-auth/internal/application"
	"github.com/oksasatya/waveai-auth/internal/domain/entity"
	"github.com/oksasatya/waveai-auth/internal/infrastructure/redisstore"
	"github.com/oksasatya/waveai-auth/internal/interface/middleware"
	"github.com/oksasatya/waveai-auth/pkg/helpers"
	"github.com/oksasatya/waveai-auth/pkg/validation"
)

func init() {
	gin.SetMode(gin.TestMode)
	validation.Init()
}

type stubGoogle struct {
	id  *entity.ExternalIdentity
	err error
}

func (g *stubGoogle) Configured() bool { return true }
func (g *stubGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}
func (g *stubGoogle) FetchIdentity(_ context.Context, code string) (*entity.ExternalIdentity, error) {
	return g.id, g.err
}

type stubAvatars struct{}

func (stubAvatars) Upload(_ context.Context, objectPath, _ string, r io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, r)
	return "https://cdn.example.com/" + objectPath, nil
}

type env struct {
	mr     *miniredis.Miniredis
	engine *gin.Engine
	auth   *application.AuthService
	users  *application.UserService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	tokens, err := helpers.NewTokenIssuer("handler-secret", "HS256", time.Hour)
	require.NoError(t, err)
	users := redisstore.NewUserRepository(rdb)
	sessions := redisstore.NewSessionRepository(rdb)
	manager := application.NewSessionManager(sessions, users, 24*time.Hour, nil)
	authSvc := application.NewAuthService(users, tokens, manager, nil)
	userSvc := application.NewUserService(users, sessions, rdb, nil)

	ah := NewAuthHandler(authSvc, helpers.NewCookie("", false), "http://front.test", nil)
	uh := NewUserHandler(userSvc, nil)
	sh := NewSystemHandler(userSvc, nil)

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	api := r.Group("/api")
	authMw := middleware.Auth(authSvc.Resolver)
	api.POST("/auth/signup", ah.Signup)
	api.POST("/auth/login", ah.Login)
	api.GET("/auth/google", ah.GoogleLogin)
	api.GET("/auth/google/callback", ah.GoogleCallback)
	api.GET("/auth/me", authMw, ah.Me)
	api.POST("/auth/me/avatar", authMw, uh.UploadAvatar)
	api.POST("/auth/logout", ah.Logout)
	api.POST("/auth/logout/all", authMw, ah.LogoutAll)
	api.GET("/auth/sessions", authMw, ah.Sessions)
	api.GET("/users/search", authMw, uh.Search)
	api.GET("/auth/health", sh.Health)
	api.GET("/stats", sh.Stats)

	return &env{mr: mr, engine: r, auth: authSvc, users: userSvc}
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func signup(t *testing.T, e *env, email string) application.AuthResponse {
	t.Helper()
	w := e.do(http.MethodPost, "/api/auth/signup", "", gin.H{"email": email, "name": "Test User"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res application.AuthResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &res))
	return res
}

func TestSignupLoginMe(t *testing.T) {
	e := newEnv(t)
	res := signup(t, e, "Ana@Example.com")
	assert.Equal(t, "bearer", res.TokenType)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Len(t, res.SessionToken, 86)
	assert.Equal(t, "ana@example.com", res.User.Email)

	w := e.do(http.MethodPost, "/api/auth/signup", "", gin.H{"email": "ana@example.com", "name": "Again"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already registered", decode(t, w).Message)

	w = e.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ana@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	var login application.AuthResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &login))
	assert.NotEqual(t, res.SessionToken, login.SessionToken)

	for _, tok := range []string{res.AccessToken, login.SessionToken} {
		w = e.do(http.MethodGet, "/api/auth/me", tok, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, string(decode(t, w).Data), res.User.ID)
	}
}

func TestSignupValidation(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/api/auth/signup", "", gin.H{"email": "not-an-email", "name": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(decode(t, w).Error), "email")

	w = e.do(http.MethodPost, "/api/auth/signup", "", gin.H{"email": "a@b.co", "name": "x", "role": "admin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, string(decode(t, w).Error), "role")
}

func TestLoginUnknownUser(t *testing.T) {
	e := newEnv(t)
	w := e.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "User not found", decode(t, w).Message)
}

func TestLogoutAlwaysSucceeds(t *testing.T) {
	e := newEnv(t)
	res := signup(t, e, "out@example.com")

	w := e.do(http.MethodPost, "/api/auth/logout", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false}`, string(decode(t, w).Data))

	w = e.do(http.MethodPost, "/api/auth/logout", res.SessionToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, string(decode(t, w).Data))

	w = e.do(http.MethodPost, "/api/auth/logout", res.SessionToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":false}`, string(decode(t, w).Data))

	w = e.do(http.MethodGet, "/api/auth/me", res.SessionToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSessionsAndLogoutAll(t *testing.T) {
	e := newEnv(t)
	res := signup(t, e, "multi@example.com")
	e.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "multi@example.com"})

	w := e.do(http.MethodGet, "/api/auth/sessions", res.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Sessions []application.SessionView `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &list))
	assert.Len(t, list.Sessions, 2)
	assert.NotContains(t, w.Body.String(), res.SessionToken)

	w = e.do(http.MethodPost, "/api/auth/logout/all", res.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"revoked":2}`, string(decode(t, w).Data))
}

func TestGoogleFlow(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/api/auth/google", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	e.auth.Google = &stubGoogle{id: &entity.ExternalIdentity{Subject: "g-1", Email: "g@example.com", Name: "Gee"}}
	w = e.do(http.MethodGet, "/api/auth/google", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decode(t, w).Data), "auth_url")
	assert.Contains(t, w.Header().Get("Set-Cookie"), oauthStateCookie)

	w = e.do(http.MethodGet, "/api/auth/google/callback?code=abc", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "http://front.test/auth/callback?token="))
	assert.Contains(t, w.Header().Get("Set-Cookie"), helpers.SessionCookie)

	w = e.do(http.MethodGet, "/api/auth/google/callback", "", nil)
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "http://front.test/auth/error?message=Authentication%20failed", w.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=abc&state=wrong", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookie, Value: "expected"})
	rec := httptest.NewRecorder()
	e.engine.ServeHTTP(rec, req)
	assert.Contains(t, rec.Header().Get("Location"), "/auth/error")
}

func TestAvatarAndSearch(t *testing.T) {
	e := newEnv(t)
	res := signup(t, e, "pic@example.com")

	upload := func(contentType string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="file"; filename="me.png"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, _ = part.Write([]byte("\x89PNG"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/auth/me/avatar", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+res.AccessToken)
		w := httptest.NewRecorder()
		e.engine.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusServiceUnavailable, upload("image/png").Code)

	e.users.Avatars = stubAvatars{}
	assert.Equal(t, http.StatusBadRequest, upload("text/plain").Code)
	w := upload("image/png")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, string(decode(t, w).Data), "https://cdn.example.com/avatars/"+res.User.ID)

	w = e.do(http.MethodGet, "/api/users/search?q=pic", res.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"users":[]}`, string(decode(t, w).Data))

	w = e.do(http.MethodGet, "/api/users/search?q=pic", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHealthAndStats(t *testing.T) {
	e := newEnv(t)
	signup(t, e, "one@example.com")

	w := e.do(http.MethodGet, "/api/auth/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","redis":"connected"}`, string(decode(t, w).Data))

	w = e.do(http.MethodGet, "/api/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st application.Stats
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &st))
	assert.Equal(t, 1, st.TotalUsers)
	assert.Equal(t, 1, st.ActiveSessions)

	e.mr.Close()
	w = e.do(http.MethodGet, "/api/auth/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestWriteErrorLogsServerFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	r := gin.New()
	r.Use(middleware.RequestIDMiddleware())
	r.GET("/down", func(c *gin.Context) {
		writeError(c, logger, fmt.Errorf("lookup session: %w: %w", application.ErrUpstream, errors.New("dial tcp: refused")))
	})
	r.GET("/bad", func(c *gin.Context) {
		writeError(c, logger, application.ErrInvalidInput)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/bad", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, buf.Len(), "client errors are not logged")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/down", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request failed", entry["msg"])
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "/down", entry["path"])
	assert.Equal(t, float64(http.StatusServiceUnavailable), entry["status"])
	assert.Equal(t, w.Header().Get(middleware.RequestIDHeader), entry["request_id"])
	assert.Contains(t, entry["error"], "dial tcp: refused")
}
