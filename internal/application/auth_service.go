package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/waveai-auth/internal/domain/entity"
	repo "github.com/oksasatya/waveai-auth/internal/domain/repository"
	"github.com/oksasatya/waveai-auth/pkg/mailer"
	"github.com/oksasatya/waveai-auth/pkg/mailer/templates"
)

// IdentityProvider exchanges an authorization code for the provider's view of the user.
type IdentityProvider interface {
	Configured() bool
	AuthCodeURL(state string) string
	FetchIdentity(ctx context.Context, code string) (*entity.ExternalIdentity, error)
}

// EventPublisher puts auth notifications on the email queue.
type EventPublisher interface {
	PublishJSON(ctx context.Context, body any) error
}

type AuthService struct {
	Users    repo.UserRepository
	Tokens   TokenIssuer
	Sessions *SessionManager
	Resolver *Resolver
	Logger   *logrus.Logger

	// Optional collaborators; nil disables the side effect.
	Google  IdentityProvider
	Audit   repo.AuditRepository
	Events  EventPublisher
	Index   repo.UserIndex
	AppName string

	now func() time.Time
}

func NewAuthService(users repo.UserRepository, tokens TokenIssuer, sessions *SessionManager, logger *logrus.Logger) *AuthService {
	return &AuthService{
		Users:    users,
		Tokens:   tokens,
		Sessions: sessions,
		Resolver: NewResolver(tokens, users, sessions, logger),
		Logger:   logger,
		AppName:  "WaveAI",
		now:      time.Now,
	}
}

// SetClock overrides the service clock. Intended for tests.
func (s *AuthService) SetClock(now func() time.Time) { s.now = now }

// AuthResponse is the credential bundle returned by every auth-producing action.
type AuthResponse struct {
	AccessToken      string            `json:"access_token"`
	SessionToken     string            `json:"session_token"`
	TokenType        string            `json:"token_type"`
	ExpiresIn        int64             `json:"expires_in"`
	User             entity.PublicUser `json:"user"`
	SessionExpiresAt time.Time         `json:"-"`
}

// NormalizeEmail is the canonical form used for the email index.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// BuildAuthResponse issues both credentials for u and records the login time.
func (s *AuthService) BuildAuthResponse(ctx context.Context, u *entity.User, meta entity.ClientMeta) (*AuthResponse, error) {
	access, _, err := s.Tokens.Issue(u.Email, u.ID, string(u.Role), 0)
	if err != nil {
		return nil, err
	}
	session, sessionExp, err := s.Sessions.Issue(ctx, u.ID, meta)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u.LastLogin = &now
	if err := s.Users.Save(ctx, u); err != nil {
		return nil, upstream("record login", err)
	}

	return &AuthResponse{
		AccessToken:      access,
		SessionToken:     session,
		TokenType:        "bearer",
		ExpiresIn:        int64(s.Tokens.Lifetime() / time.Second),
		User:             u.Public(),
		SessionExpiresAt: sessionExp,
	}, nil
}

type SignupInput struct {
	Email            string
	Name             string
	Role             string
	OrganizationName string
}

func (s *AuthService) Signup(ctx context.Context, in SignupInput, meta entity.ClientMeta) (*AuthResponse, error) {
	email := NormalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || name == "" {
		return nil, ErrInvalidInput
	}
	role, ok := entity.ParseRole(in.Role)
	if !ok {
		return nil, ErrInvalidInput
	}

	u := entity.NewUser(uuid.NewString(), email, name, role, entity.ProviderLocal, s.now())
	u.OrganizationName = strings.TrimSpace(in.OrganizationName)
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrEmailTaken) {
			return nil, ErrEmailRegistered
		}
		return nil, upstream("create user", err)
	}

	resp, err := s.BuildAuthResponse(ctx, u, meta)
	if err != nil {
		return nil, err
	}
	s.record(ctx, u, entity.AuditSignup, meta, nil)
	s.notify(ctx, u, templates.Welcome, meta)
	s.index(ctx, u)
	return resp, nil
}

func (s *AuthService) Login(ctx context.Context, email string, meta entity.ClientMeta) (*AuthResponse, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidInput
	}
	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, upstream("lookup user", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	resp, err := s.BuildAuthResponse(ctx, u, meta)
	if err != nil {
		return nil, err
	}
	s.record(ctx, u, entity.AuditLogin, meta, nil)
	s.notify(ctx, u, templates.LoginNotification, meta)
	return resp, nil
}

// GoogleAuthURL returns the provider consent URL for state.
func (s *AuthService) GoogleAuthURL(state string) (string, error) {
	if s.Google == nil || !s.Google.Configured() {
		return "", ErrOAuthNotConfigured
	}
	return s.Google.AuthCodeURL(state), nil
}

// GoogleCallback completes the authorization code flow, creating the user on
// first login. An existing user's provider id is never replaced.
func (s *AuthService) GoogleCallback(ctx context.Context, code string, meta entity.ClientMeta) (*AuthResponse, error) {
	if s.Google == nil || !s.Google.Configured() {
		return nil, ErrOAuthNotConfigured
	}
	if code == "" {
		return nil, ErrInvalidInput
	}
	id, err := s.Google.FetchIdentity(ctx, code)
	if err != nil {
		return nil, upstream("google exchange", err)
	}
	email := NormalizeEmail(id.Email)
	if email == "" {
		return nil, upstream("google exchange", errors.New("identity has no email"))
	}

	u, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, upstream("lookup user", err)
	}
	created := false
	if u == nil {
		u = entity.NewUser(uuid.NewString(), email, id.Name, entity.RoleVolunteer, entity.ProviderGoogle, s.now())
		u.Avatar = id.Picture
		u.ProviderID = id.Subject
		switch err := s.Users.Create(ctx, u); {
		case err == nil:
			created = true
		case errors.Is(err, repo.ErrEmailTaken):
			// lost a concurrent first login; continue with the winner
			if u, err = s.Users.FindByEmail(ctx, email); err != nil {
				return nil, upstream("lookup user", err)
			}
			if u == nil {
				return nil, upstream("lookup user", errors.New("user vanished after conflict"))
			}
		default:
			return nil, upstream("create user", err)
		}
	}
	if !created {
		if id.Name != "" {
			u.Name = id.Name
		}
		if id.Picture != "" {
			u.Avatar = id.Picture
		}
		u.BindProvider(id.Subject)
	}
	if !u.IsActive {
		return nil, ErrInactiveUser
	}

	resp, err := s.BuildAuthResponse(ctx, u, meta)
	if err != nil {
		return nil, err
	}
	s.record(ctx, u, entity.AuditOAuthLogin, meta, nil)
	if created {
		s.notify(ctx, u, templates.Welcome, meta, templates.WithProvider(string(entity.ProviderGoogle)))
	} else {
		s.notify(ctx, u, templates.LoginNotification, meta, templates.WithProvider(string(entity.ProviderGoogle)))
	}
	s.index(ctx, u)
	return resp, nil
}

// Logout revokes the session behind credential and reports whether one was
// active. It never fails; store errors are logged.
func (s *AuthService) Logout(ctx context.Context, credential string, meta entity.ClientMeta) bool {
	sess, err := s.Sessions.revoke(ctx, credential)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).Warn("logout revoke failed")
		}
		return false
	}
	if sess == nil {
		return false
	}
	s.record(ctx, &entity.User{ID: sess.UserID}, entity.AuditLogout, meta, nil)
	return true
}

// LogoutAll revokes every active session of u.
func (s *AuthService) LogoutAll(ctx context.Context, u *entity.User, meta entity.ClientMeta) (int, error) {
	n, err := s.Sessions.RevokeAllForUser(ctx, u.ID)
	if err != nil {
		return n, err
	}
	s.record(ctx, u, entity.AuditLogoutAll, meta, map[string]any{"revoked": n})
	return n, nil
}

// SessionView is a session as listed to its owner; the token is withheld.
type SessionView struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
}

func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]SessionView, error) {
	list, err := s.Sessions.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]SessionView, 0, len(list))
	for _, ss := range list {
		out = append(out, SessionView{
			ID:        ss.ID,
			CreatedAt: ss.CreatedAt,
			ExpiresAt: ss.ExpiresAt,
			UserAgent: ss.UserAgent,
			IPAddress: ss.IPAddress,
		})
	}
	return out, nil
}

func (s *AuthService) record(ctx context.Context, u *entity.User, action string, meta entity.ClientMeta, md map[string]any) {
	if s.Audit == nil {
		return
	}
	e := entity.AuditEntry{
		UserID:    u.ID,
		Email:     u.Email,
		Action:    action,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Metadata:  md,
		CreatedAt: s.now().UTC(),
	}
	if err := s.Audit.Insert(ctx, e); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"user_id": u.ID, "action": action}).Warn("audit insert failed")
	}
}

func (s *AuthService) notify(ctx context.Context, u *entity.User, template string, meta entity.ClientMeta, opts ...templates.Option) {
	if s.Events == nil {
		return
	}
	opts = append([]templates.Option{
		templates.WithIP(meta.IPAddress),
		templates.WithUserAgent(meta.UserAgent),
		templates.WithProvider(string(u.AuthProvider)),
		templates.WithTime(s.now()),
	}, opts...)
	data := templates.NewEmailData(s.AppName, u.Name, u.Email, string(u.Role), opts...)
	job := mailer.EmailJob{To: u.Email, Template: template, Data: templates.ToMap(data)}

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := s.Events.PublishJSON(c, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithFields(logrus.Fields{"user_id": u.ID, "template": template}).Warn("enqueue email failed")
	}
}

func (s *AuthService) index(ctx context.Context, u *entity.User) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, u); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("user index failed")
	}
}
