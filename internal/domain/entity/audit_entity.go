package entity

import "time"

// Audit actions recorded for authentication events.
const (
	AuditSignup     = "signup"
	AuditLogin      = "login"
	AuditOAuthLogin = "oauth_login"
	AuditLogout     = "logout"
	AuditLogoutAll  = "logout_all"
)

// AuditEntry is one row of the authentication audit trail.
type AuditEntry struct {
	UserID    string
	Email     string
	Action    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
	CreatedAt time.Time
}
