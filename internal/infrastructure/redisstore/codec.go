package redisstore

import (
	"strconv"
	"strings"
	"time"

	"github.com/oksasatya/waveai-auth/internal/domain/entity"
)

// All string <-> typed coercion for stored hashes lives in this file.

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// parseCount decodes a non-negative counter; garbage and negatives become 0.
func parseCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseBool accepts "true"/"false" as well as the "True"/"False" spelling of
// older records; anything else yields def.
func parseBool(s string, def bool) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return b
}

func userToHash(u *entity.User) map[string]any {
	lastLogin := ""
	if u.LastLogin != nil {
		lastLogin = formatTime(*u.LastLogin)
	}
	return map[string]any{
		"id":               u.ID,
		"email":            u.Email,
		"name":             u.Name,
		"avatar":           u.Avatar,
		"role":             string(u.Role),
		"points":           strconv.Itoa(u.Points),
		"level":            u.Level,
		"badges":           strconv.Itoa(u.Badges),
		"organizationName": u.OrganizationName,
		"eventsOrganized":  strconv.Itoa(u.EventsOrganized),
		"totalVolunteers":  strconv.Itoa(u.TotalVolunteers),
		"isVerified":       strconv.FormatBool(u.IsVerified),
		"isActive":         strconv.FormatBool(u.IsActive),
		"createdAt":        formatTime(u.CreatedAt),
		"lastLogin":        lastLogin,
		"authProvider":     string(u.AuthProvider),
		"providerId":       u.ProviderID,
	}
}

func userFromHash(h map[string]string) *entity.User {
	role := entity.Role(h["role"])
	if !role.Valid() {
		role = entity.RoleVolunteer
	}
	level := h["level"]
	if level == "" {
		level = entity.DefaultLevel
	}
	provider := entity.AuthProvider(h["authProvider"])
	if provider != entity.ProviderGoogle {
		provider = entity.ProviderLocal
	}
	u := &entity.User{
		ID:               h["id"],
		Email:            h["email"],
		Name:             h["name"],
		Avatar:           h["avatar"],
		Role:             role,
		Points:           parseCount(h["points"]),
		Level:            level,
		Badges:           parseCount(h["badges"]),
		OrganizationName: h["organizationName"],
		EventsOrganized:  parseCount(h["eventsOrganized"]),
		TotalVolunteers:  parseCount(h["totalVolunteers"]),
		IsVerified:       parseBool(h["isVerified"], false),
		IsActive:         parseBool(h["isActive"], true),
		CreatedAt:        parseTime(h["createdAt"]),
		AuthProvider:     provider,
		ProviderID:       h["providerId"],
	}
	if t := parseTime(h["lastLogin"]); !t.IsZero() {
		u.LastLogin = &t
	}
	return u
}

func sessionToHash(s *entity.Session) map[string]any {
	return map[string]any{
		"id":        s.ID,
		"userId":    s.UserID,
		"token":     s.Token,
		"expiresAt": formatTime(s.ExpiresAt),
		"isActive":  strconv.FormatBool(s.IsActive),
		"createdAt": formatTime(s.CreatedAt),
		"userAgent": s.UserAgent,
		"ipAddress": s.IPAddress,
	}
}

// sessionFromHash decodes a stored session. A missing expiresAt decodes to the
// zero time, which is always expired.
func sessionFromHash(h map[string]string) *entity.Session {
	return &entity.Session{
		ID:        h["id"],
		UserID:    h["userId"],
		Token:     h["token"],
		ExpiresAt: parseTime(h["expiresAt"]),
		IsActive:  parseBool(h["isActive"], true),
		CreatedAt: parseTime(h["createdAt"]),
		UserAgent: h["userAgent"],
		IPAddress: h["ipAddress"],
	}
}
