package entity

import (
	"time"
)

// DefaultLevel is the level label assigned to new volunteers.
const DefaultLevel = "Newcomer"

// User is the aggregate root for identity.
//
// Role, AuthProvider and CreatedAt are fixed at creation. ProviderID is bound
// once and never overwritten after it is populated.
type User struct {
	ID     string
	Email  string
	Name   string
	Avatar string
	Role   Role

	// Volunteer stats
	Points int
	Level  string
	Badges int

	// Organizer stats
	OrganizationName string
	EventsOrganized  int
	TotalVolunteers  int
	IsVerified       bool

	IsActive     bool
	CreatedAt    time.Time
	LastLogin    *time.Time
	AuthProvider AuthProvider
	ProviderID   string
}

// NewUser builds an active user with default stats.
func NewUser(id, email, name string, role Role, provider AuthProvider, now time.Time) *User {
	return &User{
		ID:           id,
		Email:        email,
		Name:         name,
		Role:         role,
		Level:        DefaultLevel,
		IsActive:     true,
		CreatedAt:    now.UTC(),
		AuthProvider: provider,
	}
}

// BindProvider sets the external subject id if none is bound yet and reports
// whether it changed.
func (u *User) BindProvider(subject string) bool {
	if u.ProviderID != "" || subject == "" {
		return false
	}
	u.ProviderID = subject
	return true
}

// PublicUser is the JSON view of a user returned to clients.
type PublicUser struct {
	ID               string     `json:"id"`
	Email            string     `json:"email"`
	Name             string     `json:"name"`
	Avatar           string     `json:"avatar"`
	Role             Role       `json:"role"`
	Points           int        `json:"points"`
	Level            string     `json:"level"`
	Badges           int        `json:"badges"`
	OrganizationName string     `json:"organizationName"`
	EventsOrganized  int        `json:"eventsOrganized"`
	TotalVolunteers  int        `json:"totalVolunteers"`
	IsVerified       bool       `json:"isVerified"`
	IsActive         bool       `json:"isActive"`
	JoinedAt         time.Time  `json:"joinedAt"`
	LastLogin        *time.Time `json:"lastLogin"`
	AuthProvider     string     `json:"authProvider"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:               u.ID,
		Email:            u.Email,
		Name:             u.Name,
		Avatar:           u.Avatar,
		Role:             u.Role,
		Points:           u.Points,
		Level:            u.Level,
		Badges:           u.Badges,
		OrganizationName: u.OrganizationName,
		EventsOrganized:  u.EventsOrganized,
		TotalVolunteers:  u.TotalVolunteers,
		IsVerified:       u.IsVerified,
		IsActive:         u.IsActive,
		JoinedAt:         u.CreatedAt,
		LastLogin:        u.LastLogin,
		AuthProvider:     string(u.AuthProvider),
	}
}

// ExternalIdentity is the profile an identity provider asserts for a login.
type ExternalIdentity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}
