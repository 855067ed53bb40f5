package application

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/waveai-auth/internal/domain/entity"
	repo "github.com/oksasatya/waveai-auth/internal/domain/repository"
	"github.com/oksasatya/waveai-auth/pkg/helpers"
)

const (
	statsCacheKey = "stats:users"
	statsCacheTTL = 30 * time.Second
)

// AvatarStore uploads an object and returns its public URL.
type AvatarStore interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

type UserService struct {
	Users    repo.UserRepository
	Sessions repo.SessionRepository
	Redis    redis.UniversalClient
	Logger   *logrus.Logger

	// Optional
	Avatars AvatarStore
	Index   repo.UserIndex
}

func NewUserService(users repo.UserRepository, sessions repo.SessionRepository, rdb redis.UniversalClient, logger *logrus.Logger) *UserService {
	return &UserService{Users: users, Sessions: sessions, Redis: rdb, Logger: logger}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, upstream("lookup user", err)
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// UploadAvatar stores the image and points the user's avatar at it.
func (s *UserService) UploadAvatar(ctx context.Context, userID string, r io.Reader, filename, contentType string) (string, error) {
	if s.Avatars == nil {
		return "", upstream("upload avatar", errors.New("avatar storage not configured"))
	}
	if !strings.HasPrefix(contentType, "image/") {
		return "", ErrInvalidInput
	}
	u, err := s.GetProfile(ctx, userID)
	if err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(filename))
	objectPath := filepath.ToSlash(filepath.Join("avatars", userID, uuid.NewString()+ext))
	url, err := s.Avatars.Upload(ctx, objectPath, contentType, r)
	if err != nil {
		return "", upstream("upload avatar", err)
	}
	u.Avatar = url
	if err := s.Users.Save(ctx, u); err != nil {
		return "", upstream("save user", err)
	}
	if s.Index != nil {
		if err := s.Index.Index(ctx, u); err != nil && s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("user index failed")
		}
	}
	return url, nil
}

// SearchUsers returns matches from the search index, or none when no index is configured.
func (s *UserService) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.Index == nil || strings.TrimSpace(q) == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	out, err := s.Index.Search(ctx, q, size)
	if err != nil {
		return nil, upstream("search users", err)
	}
	return out, nil
}

type Stats struct {
	TotalUsers     int       `json:"total_users"`
	Volunteers     int       `json:"volunteers"`
	Organizers     int       `json:"organizers"`
	ActiveUsers    int       `json:"active_users"`
	ActiveSessions int       `json:"active_sessions"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Stats counts users by role and active sessions. Results are cached briefly.
func (s *UserService) Stats(ctx context.Context) (*Stats, error) {
	var cached Stats
	if s.Redis != nil {
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, statsCacheKey, &cached); err == nil && ok {
			return &cached, nil
		}
	}

	users, err := s.Users.ListAll(ctx)
	if err != nil {
		return nil, upstream("list users", err)
	}
	active, err := s.Sessions.CountActive(ctx)
	if err != nil {
		return nil, upstream("count sessions", err)
	}

	st := &Stats{ActiveSessions: active, GeneratedAt: time.Now().UTC()}
	for _, u := range users {
		st.TotalUsers++
		switch u.Role {
		case entity.RoleOrganizer:
			st.Organizers++
		default:
			st.Volunteers++
		}
		if u.IsActive {
			st.ActiveUsers++
		}
	}

	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, statsCacheKey, st, statsCacheTTL); err != nil && s.Logger != nil {
			s.Logger.WithError(err).Warn("cache stats failed")
		}
	}
	return st, nil
}

// Health pings redis.
func (s *UserService) Health(ctx context.Context) error {
	if err := helpers.RedisPing(ctx, s.Redis); err != nil {
		return upstream("redis ping", err)
	}
	return nil
}
