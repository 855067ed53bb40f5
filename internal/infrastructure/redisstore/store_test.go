package redisstore

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/waveai-auth/internal/domain/entity"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testUser(email string) *entity.User {
	return entity.NewUser(uuid.NewString(), email, "Test", entity.RoleVolunteer, entity.ProviderLocal, time.Now())
}

func testSession(userID string, now time.Time, lifetime time.Duration) *entity.Session {
	return &entity.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Token:     uuid.NewString() + uuid.NewString(),
		ExpiresAt: now.Add(lifetime),
		IsActive:  true,
		CreatedAt: now,
		UserAgent: "go-test",
		IPAddress: "127.0.0.1",
	}
}

func TestUserRepository_FindByEmailAndIDAgree(t *testing.T) {
	_, rdb := newTestRedis(t)
	repo := NewUserRepository(rdb)
	ctx := context.Background()

	u := testUser("a@x.com")
	u.Role = entity.RoleOrganizer
	u.OrganizationName = "Beach Cleanup"
	u.EventsOrganized = 3
	require.NoError(t, repo.Create(ctx, u))

	byEmail, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	byID, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, byID, byEmail)
	assert.Equal(t, entity.RoleOrganizer, byID.Role)
	assert.Equal(t, 3, byID.EventsOrganized)

	now := time.Now().UTC().Truncate(time.Second)
	byID.Name = "Renamed"
	byID.LastLogin = &now
	require.NoError(t, repo.Save(ctx, byID))

	byEmail, err = repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	byID, err = repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, byID, byEmail)
	assert.Equal(t, "Renamed", byEmail.Name)
	require.NotNil(t, byEmail.LastLogin)
	assert.True(t, now.Equal(*byEmail.LastLogin))
}

func TestUserRepository_NotFoundIsNilNil(t *testing.T) {
	_, rdb := newTestRedis(t)
	repo := NewUserRepository(rdb)

	u, err := repo.FindByEmail(context.Background(), "nope@x.com")
	assert.NoError(t, err)
	assert.Nil(t, u)

	u, err = repo.FindByID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	_, rdb := newTestRedis(t)
	repo := NewUserRepository(rdb)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testUser("dup@x.com")))
	err := repo.Create(ctx, testUser("dup@x.com"))
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUserRepository_ConcurrentCreateSameEmail(t *testing.T) {
	_, rdb := newTestRedis(t)
	repo := NewUserRepository(rdb)
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, testUser("race@x.com"))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrEmailTaken)
	}
	assert.Equal(t, 1, ok)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

// touchBeforeExec rewrites key from a second connection ahead of every
// MULTI/EXEC, so each watched transaction aborts.
type touchBeforeExec struct {
	other *redis.Client
	key   string
	execs int
}

func (h *touchBeforeExec) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

func (h *touchBeforeExec) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		return next(ctx, cmd)
	}
}

func (h *touchBeforeExec) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		h.execs++
		h.other.Set(ctx, h.key, "someone-else", 0)
		h.other.Del(ctx, h.key)
		return next(ctx, cmds)
	}
}

func TestUserRepository_CreateGivesUpAfterWatchConflicts(t *testing.T) {
	mr, rdb := newTestRedis(t)
	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = other.Close() })

	u := testUser("busy@x.com")
	hook := &touchBeforeExec{other: other, key: userEmailKey(u.Email)}
	rdb.AddHook(hook)

	repo := NewUserRepository(rdb)
	ctx := context.Background()

	err := repo.Create(ctx, u)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, err, redis.TxFailedErr)
	assert.False(t, errors.Is(err, ErrEmailTaken))
	assert.Equal(t, maxTxRetries, hook.execs)

	got, err := NewUserRepository(other).FindByEmail(ctx, u.Email)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUserRepository_DecodeDefaults(t *testing.T) {
	_, rdb := newTestRedis(t)
	repo := NewUserRepository(rdb)
	ctx := context.Background()

	// a sparse record written by an older version
	require.NoError(t, rdb.HSet(ctx, userKey("legacy"), map[string]any{
		"id":       "legacy",
		"email":    "old@x.com",
		"name":     "Old",
		"points":   "-4",
		"isActive": "True",
	}).Err())

	u, err := repo.FindByID(ctx, "legacy")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, entity.RoleVolunteer, u.Role)
	assert.Equal(t, entity.DefaultLevel, u.Level)
	assert.Equal(t, 0, u.Points)
	assert.True(t, u.IsActive)
	assert.Equal(t, entity.ProviderLocal, u.AuthProvider)
	assert.Nil(t, u.LastLogin)
}

func TestUserRepository_StoreUnavailable(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := NewUserRepository(rdb)
	mr.Close()

	u, err := repo.FindByEmail(context.Background(), "a@x.com")
	assert.Nil(t, u)
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	err = repo.Save(context.Background(), testUser("a@x.com"))
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	nilRepo := NewUserRepository(nil)
	_, err = nilRepo.FindByID(context.Background(), "x")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestSessionRepository_CreateSetsTTLOnBothKeys(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := NewSessionRepository(rdb)
	s := testSession("u-1", time.Now(), time.Hour)
	require.NoError(t, repo.Create(context.Background(), s))

	assert.Equal(t, SessionTTL, mr.TTL(sessionTokenKey(s.Token)))
	assert.Equal(t, SessionTTL, mr.TTL(sessionIDKey(s.ID)))
}

func TestSessionRepository_FindByTokenRejectsInactiveAndExpired(t *testing.T) {
	_, rdb := newTestRedis(t)
	clock := &fakeClock{t: time.Now()}
	repo := NewSessionRepository(rdb, WithClock(clock.Now))
	ctx := context.Background()

	s := testSession("u-1", clock.Now(), time.Hour)
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.FindByToken(ctx, s.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.ID, got.ID)

	// expiresAt reached before the store TTL: still rejected
	clock.Advance(time.Hour)
	got, err = repo.FindByToken(ctx, s.Token)
	require.NoError(t, err)
	assert.Nil(t, got)

	raw, err := repo.GetByToken(ctx, s.Token)
	require.NoError(t, err)
	require.NotNil(t, raw)

	require.NoError(t, repo.Revoke(ctx, raw))
	raw, err = repo.GetByToken(ctx, s.Token)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestSessionRepository_RevokeUpdatesBothCopies(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := NewSessionRepository(rdb)
	ctx := context.Background()

	s := testSession("u-1", time.Now(), time.Hour)
	require.NoError(t, repo.Create(ctx, s))
	require.NoError(t, repo.Revoke(ctx, s))

	assert.Equal(t, "false", mr.HGet(sessionTokenKey(s.Token), "isActive"))
	assert.Equal(t, "false", mr.HGet(sessionIDKey(s.ID), "isActive"))
	assert.False(t, s.IsActive)

	// a copy that has left redis is not resurrected
	mr.Del(sessionIDKey(s.ID))
	require.NoError(t, repo.Revoke(ctx, s))
	assert.False(t, mr.Exists(sessionIDKey(s.ID)))
}

func TestSessionRepository_ListAndRevokeAllForUser(t *testing.T) {
	_, rdb := newTestRedis(t)
	clock := &fakeClock{t: time.Now()}
	repo := NewSessionRepository(rdb, WithClock(clock.Now))
	ctx := context.Background()

	a := testSession("u-1", clock.Now(), time.Hour)
	b := testSession("u-1", clock.Now().Add(time.Second), time.Hour)
	other := testSession("u-2", clock.Now(), time.Hour)
	for _, s := range []*entity.Session{a, b, other} {
		require.NoError(t, repo.Create(ctx, s))
	}

	list, err := repo.ListActiveByUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, b.ID, list[0].ID)

	n, err := repo.RevokeAllForUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err = repo.ListActiveByUser(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	got, err := repo.FindByToken(ctx, other.Token)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestSessionRepository_SweepExpired(t *testing.T) {
	mr, rdb := newTestRedis(t)
	clock := &fakeClock{t: time.Now()}
	repo := NewSessionRepository(rdb, WithClock(clock.Now))
	ctx := context.Background()

	short := testSession("u-1", clock.Now(), time.Minute)
	long := testSession("u-1", clock.Now(), 2*time.Hour)
	require.NoError(t, repo.Create(ctx, short))
	require.NoError(t, repo.Create(ctx, long))

	n, err := repo.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	clock.Advance(time.Minute)
	n, err = repo.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.False(t, mr.Exists(sessionTokenKey(short.Token)))
	assert.False(t, mr.Exists(sessionIDKey(short.ID)))
	assert.True(t, mr.Exists(sessionTokenKey(long.Token)))

	count, err := repo.CountActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSessionRepository_StoreTTLExpiry(t *testing.T) {
	mr, rdb := newTestRedis(t)
	repo := NewSessionRepository(rdb, WithTTL(time.Minute))
	ctx := context.Background()

	s := testSession("u-1", time.Now(), time.Hour)
	require.NoError(t, repo.Create(ctx, s))
	mr.FastForward(2 * time.Minute)

	got, err := repo.FindByToken(ctx, s.Token)
	require.NoError(t, err)
	assert.Nil(t, got)
}
