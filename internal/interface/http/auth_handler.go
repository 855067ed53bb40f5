package handlers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/waveai-auth/internal/application"
	"github.com/oksasatya/waveai-auth/internal/domain/entity"
	"github.com/oksasatya/waveai-auth/internal/interface/middleware"
	"github.com/oksasatya/waveai-auth/pkg/helpers"
	"github.com/oksasatya/waveai-auth/pkg/response"
	"github.com/oksasatya/waveai-auth/pkg/validation"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	Auth        *application.AuthService
	Cookies     *helpers.Manager
	FrontendURL string
	Logger      *logrus.Logger
}

func NewAuthHandler(auth *application.AuthService, cookies *helpers.Manager, frontendURL string, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Auth: auth, Cookies: cookies, FrontendURL: frontendURL, Logger: logger}
}

type signupRequest struct {
	Email            string `json:"email" binding:"required,email"`
	Name             string `json:"name" binding:"required,personname"`
	Role             string `json:"role" binding:"omitempty,role"`
	OrganizationName string `json:"organizationName" binding:"omitempty,max=200"`
}

type loginRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func clientMeta(c *gin.Context) entity.ClientMeta {
	return entity.ClientMeta{UserAgent: c.GetHeader("User-Agent"), IPAddress: middleware.ClientIP(c)}
}

// Signup POST /api/auth/signup
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Auth.Signup(c.Request.Context(), application.SignupInput{
		Email:            req.Email,
		Name:             req.Name,
		Role:             req.Role,
		OrganizationName: req.OrganizationName,
	}, clientMeta(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.SetSession(c, res.SessionToken, res.SessionExpiresAt)
	response.OK(c, http.StatusCreated, res, "signup successful")
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), req.Email, clientMeta(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.SetSession(c, res.SessionToken, res.SessionExpiresAt)
	response.OK(c, http.StatusOK, res, "login successful")
}

// GoogleLogin GET /api/auth/google returns the consent URL.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	state := uuid.NewString()
	authURL, err := h.Auth.GoogleAuthURL(state)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, int((10 * time.Minute).Seconds()), "/", h.Cookies.Domain, h.Cookies.Secure, true)
	response.OK(c, http.StatusOK, gin.H{"auth_url": authURL}, "google auth url")
}

// GoogleCallback GET /api/auth/google/callback always answers with a redirect
// to the frontend.
func (h *AuthHandler) GoogleCallback(c *gin.Context) {
	fail := func(err error) {
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("request_id", c.GetString("request_id")).Warn("google callback failed")
		}
		c.Redirect(http.StatusFound, h.FrontendURL+"/auth/error?message="+url.PathEscape("Authentication failed"))
	}

	// a state cookie is only present when the browser started the flow here
	if want, err := c.Cookie(oauthStateCookie); err == nil && want != "" {
		c.SetCookie(oauthStateCookie, "", -1, "/", h.Cookies.Domain, h.Cookies.Secure, true)
		if c.Query("state") != want {
			fail(application.ErrInvalidCredentials)
			return
		}
	}
	code := c.Query("code")
	if code == "" {
		fail(application.ErrInvalidInput)
		return
	}

	res, err := h.Auth.GoogleCallback(c.Request.Context(), code, clientMeta(c))
	if err != nil {
		fail(err)
		return
	}
	h.Cookies.SetSession(c, res.SessionToken, res.SessionExpiresAt)
	c.Redirect(http.StatusFound, h.FrontendURL+"/auth/callback?token="+url.QueryEscape(res.AccessToken))
}

// Me GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	u := middleware.CurrentUser(c)
	response.OK(c, http.StatusOK, gin.H{"user": u.Public()}, "current user")
}

// Logout POST /api/auth/logout always succeeds; data.success reports whether
// a session was revoked.
func (h *AuthHandler) Logout(c *gin.Context) {
	token := middleware.BearerToken(c)
	ok := false
	msg := "No token provided"
	if token != "" {
		ok = h.Auth.Logout(c.Request.Context(), token, clientMeta(c))
		msg = "Logged out successfully"
	}
	h.Cookies.Clear(c)
	response.OK(c, http.StatusOK, gin.H{"success": ok}, msg)
}

// LogoutAll POST /api/auth/logout/all
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	n, err := h.Auth.LogoutAll(c.Request.Context(), middleware.CurrentUser(c), clientMeta(c))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	h.Cookies.Clear(c)
	response.OK(c, http.StatusOK, gin.H{"revoked": n}, "all sessions revoked")
}

// Sessions GET /api/auth/sessions
func (h *AuthHandler) Sessions(c *gin.Context) {
	list, err := h.Auth.ListSessions(c.Request.Context(), c.GetString(middleware.CtxUserIDKey))
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	response.OK(c, http.StatusOK, gin.H{"sessions": list}, "active sessions")
}
