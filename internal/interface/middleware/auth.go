package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/waveai-auth/internal/application"
	"github.com/oksasatya/waveai-auth/internal/domain/entity"
	"github.com/oksasatya/waveai-auth/pkg/helpers"
	"github.com/oksasatya/waveai-auth/pkg/response"
)

const (
	CtxUserIDKey     = "userID"
	CtxUserKey       = "user"
	CtxAuthSourceKey = "auth_source"
	CtxCredentialKey = "credential"
)

// CredentialResolver maps a bearer credential to its user.
type CredentialResolver interface {
	Resolve(ctx context.Context, credential string) (*entity.User, application.Source, error)
}

// BearerToken returns the Authorization bearer credential, falling back to the
// session cookie.
func BearerToken(c *gin.Context) string {
	if h := strings.TrimSpace(c.GetHeader("Authorization")); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if tok, err := c.Cookie(helpers.SessionCookie); err == nil {
		return tok
	}
	return ""
}

// Auth resolves the request credential (access token or session token) and
// sets userID, user and auth_source in the Gin context on success.
func Auth(resolver CredentialResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			authFailuresTotal.WithLabelValues("missing").Inc()
			c.Header("WWW-Authenticate", "Bearer")
			response.Abort(c, http.StatusUnauthorized, "could not validate credentials", nil)
			return
		}

		u, src, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, application.ErrForbidden):
				authFailuresTotal.WithLabelValues("inactive").Inc()
				response.Abort(c, http.StatusForbidden, "inactive user", nil)
			case errors.Is(err, application.ErrUpstream):
				authFailuresTotal.WithLabelValues("upstream").Inc()
				response.Abort(c, http.StatusServiceUnavailable, "authentication backend unavailable", nil)
			default:
				authFailuresTotal.WithLabelValues("invalid").Inc()
				c.Header("WWW-Authenticate", "Bearer")
				response.Abort(c, http.StatusUnauthorized, "could not validate credentials", nil)
			}
			return
		}

		c.Set(CtxUserIDKey, u.ID)
		c.Set(CtxUserKey, u)
		c.Set(CtxAuthSourceKey, string(src))
		c.Set(CtxCredentialKey, token)
		c.Next()
	}
}

// CurrentUser returns the user set by Auth, or nil.
func CurrentUser(c *gin.Context) *entity.User {
	v, ok := c.Get(CtxUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*entity.User)
	return u
}
