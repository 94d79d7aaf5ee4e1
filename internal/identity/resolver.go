package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Source says where a resolved role came from.
type Source int

const (
	// SourceProfile: the profile store answered in time.
	SourceProfile Source = iota
	// SourceCache: the profile store failed; a previously cached role was used.
	SourceCache
	// SourceNone: neither the store nor the cache could supply a role.
	// Callers must handle this explicitly instead of defaulting to a role.
	SourceNone
)

// Resolution is the three-state result of a role lookup.
type Resolution struct {
	Role   string
	Source Source
}

var ErrUserNotFound = errors.New("user not found")

// ProfileStore answers authoritative role lookups.
type ProfileStore interface {
	GetUserRole(ctx context.Context, userID int) (string, error)
}

// RoleCache holds last-known roles to bridge profile-store outages.
type RoleCache interface {
	GetRole(ctx context.Context, userID int) (string, error)
	SetRole(ctx context.Context, userID int, role string) error
}

// Resolver derives the caller's role from the profile store, falling back to
// the cached last-known role when the store is slow or unavailable.
type Resolver struct {
	profiles ProfileStore
	cache    RoleCache
	timeout  time.Duration
	logger   *zap.Logger
}

// NewResolver constructs a Resolver. timeout bounds the profile lookup.
func NewResolver(profiles ProfileStore, cache RoleCache, timeout time.Duration, logger *zap.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Resolver{profiles: profiles, cache: cache, timeout: timeout, logger: logger}
}

// Resolve returns the user's role. A successful profile lookup refreshes the
// cache in the background; cache write failures are logged, never surfaced.
func (r *Resolver) Resolve(ctx context.Context, userID int) Resolution {
	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	role, err := r.profiles.GetUserRole(lookupCtx, userID)
	if err == nil {
		go r.cacheRole(userID, role)
		return Resolution{Role: role, Source: SourceProfile}
	}
	if errors.Is(err, ErrUserNotFound) {
		return Resolution{Source: SourceNone}
	}
	r.logger.Warn("profile role lookup failed, trying cache", zap.Int("user_id", userID), zap.Error(err))

	if r.cache != nil {
		cached, cacheErr := r.cache.GetRole(ctx, userID)
		if cacheErr == nil && cached != "" {
			return Resolution{Role: cached, Source: SourceCache}
		}
	}
	return Resolution{Source: SourceNone}
}

func (r *Resolver) cacheRole(userID int, role string) {
	if r.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.cache.SetRole(ctx, userID, role); err != nil {
		r.logger.Warn("role cache write failed", zap.Int("user_id", userID), zap.Error(err))
	}
}

// SQLProfileStore reads roles from the users table.
type SQLProfileStore struct {
	db *sqlx.DB
}

// NewSQLProfileStore constructs a SQLProfileStore.
func NewSQLProfileStore(db *sqlx.DB) *SQLProfileStore {
	return &SQLProfileStore{db: db}
}

// GetUserRole returns the user's role or ErrUserNotFound.
func (s *SQLProfileStore) GetUserRole(ctx context.Context, userID int) (string, error) {
	var role string
	err := s.db.GetContext(ctx, &role, `SELECT role FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	return role, err
}

// RedisRoleCache stores last-known roles in Redis with a TTL.
type RedisRoleCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRoleCache constructs a RedisRoleCache.
func NewRedisRoleCache(client *redis.Client, ttl time.Duration) *RedisRoleCache {
	return &RedisRoleCache{client: client, ttl: ttl}
}

func roleKey(userID int) string {
	return fmt.Sprintf("role:%d", userID)
}

// GetRole returns the cached role, or "" when the key is absent.
func (c *RedisRoleCache) GetRole(ctx context.Context, userID int) (string, error) {
	role, err := c.client.Get(ctx, roleKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return role, err
}

// SetRole stores the last-known role.
func (c *RedisRoleCache) SetRole(ctx context.Context, userID int, role string) error {
	return c.client.Set(ctx, roleKey(userID), role, c.ttl).Err()
}

var (
	_ ProfileStore = (*SQLProfileStore)(nil)
	_ RoleCache    = (*RedisRoleCache)(nil)
)
