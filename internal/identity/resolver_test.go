package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeProfiles struct {
	role string
	err  error
}

func (f *fakeProfiles) GetUserRole(ctx context.Context, userID int) (string, error) {
	return f.role, f.err
}

type fakeCache struct {
	mu    sync.Mutex
	roles map[int]string
	err   error
}

func newFakeCache() *fakeCache {
	return &fakeCache{roles: map[int]string{}}
}

func (f *fakeCache) GetRole(ctx context.Context, userID int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.roles[userID], nil
}

func (f *fakeCache) SetRole(ctx context.Context, userID int, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.roles[userID] = role
	return nil
}

func TestResolveFromProfileRefreshesCache(t *testing.T) {
	cache := newFakeCache()
	resolver := NewResolver(&fakeProfiles{role: "tutor"}, cache, time.Second, zap.NewNop())

	res := resolver.Resolve(context.Background(), 1)

	assert.Equal(t, SourceProfile, res.Source)
	assert.Equal(t, "tutor", res.Role)
	assert.Eventually(t, func() bool {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		return cache.roles[1] == "tutor"
	}, time.Second, 10*time.Millisecond)
}

func TestResolveFallsBackToCacheOnStoreFailure(t *testing.T) {
	cache := newFakeCache()
	cache.roles[1] = "parent"
	resolver := NewResolver(&fakeProfiles{err: errors.New("timeout")}, cache, time.Second, zap.NewNop())

	res := resolver.Resolve(context.Background(), 1)

	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, "parent", res.Role)
}

func TestResolveReturnsNoneWithoutCacheEntry(t *testing.T) {
	resolver := NewResolver(&fakeProfiles{err: errors.New("timeout")}, newFakeCache(), time.Second, zap.NewNop())

	res := resolver.Resolve(context.Background(), 1)

	assert.Equal(t, SourceNone, res.Source)
	assert.Empty(t, res.Role)
}

func TestResolveUnknownUserIsNoneNotCacheHit(t *testing.T) {
	cache := newFakeCache()
	cache.roles[1] = "tutor" // stale entry for a deleted user
	resolver := NewResolver(&fakeProfiles{err: ErrUserNotFound}, cache, time.Second, zap.NewNop())

	res := resolver.Resolve(context.Background(), 1)

	assert.Equal(t, SourceNone, res.Source)
}

func TestResolveSurvivesCacheFailure(t *testing.T) {
	cache := newFakeCache()
	cache.err = errors.New("redis down")
	resolver := NewResolver(&fakeProfiles{err: errors.New("timeout")}, cache, time.Second, zap.NewNop())

	res := resolver.Resolve(context.Background(), 1)

	assert.Equal(t, SourceNone, res.Source)
}
