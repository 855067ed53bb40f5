package entity

import "time"

// Session is a server-tracked login. Token is the only value handed to clients.
type Session struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	IsActive  bool
	CreatedAt time.Time
	UserAgent string
	IPAddress string
}

// ValidAt reports whether the session can authenticate at now.
// A session expiring exactly at now is already invalid.
func (s *Session) ValidAt(now time.Time) bool {
	return s.IsActive && now.Before(s.ExpiresAt)
}

// ExpiredAt reports whether the session's own expiry has passed at now.
func (s *Session) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// ClientMeta is the request metadata bound to a session at creation.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}
