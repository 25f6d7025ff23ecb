// Package sessions tracks issued login sessions in Redis so individual
// tokens and whole accounts can be revoked before their JWT expiry.
package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Revoker is the session-invalidation collaborator consumed by the
// moderation service. Banning a user revokes every session they hold.
type Revoker interface {
	RevokeAll(ctx context.Context, userID uint) error
}

// Store records one Redis key per session JTI plus a per-user set of JTIs.
// With a nil Redis client the store degrades to stateless JWTs: every
// validation passes and revocation is a no-op.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewStore returns a session store. ttl bounds how long a session stays
// valid and should match the JWT expiry.
func NewStore(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func sessionKey(jti string) string {
	return fmt.Sprintf("session:%s", jti)
}

func userSessionsKey(userID uint) string {
	return fmt.Sprintf("user_sessions:%d", userID)
}

// Create registers a session for the user under the given JTI.
func (s *Store) Create(ctx context.Context, userID uint, jti string) error {
	if s.rdb == nil {
		return nil
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(jti), userID, s.ttl)
	pipe.SAdd(ctx, userSessionsKey(userID), jti)
	pipe.Expire(ctx, userSessionsKey(userID), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// Valid reports whether the session behind jti is still live.
func (s *Store) Valid(ctx context.Context, jti string) (bool, error) {
	if s.rdb == nil {
		return true, nil
	}

	err := s.rdb.Get(ctx, sessionKey(jti)).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Revoke removes a single session, e.g. on logout.
func (s *Store) Revoke(ctx context.Context, userID uint, jti string) error {
	if s.rdb == nil {
		return nil
	}

	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, sessionKey(jti))
	pipe.SRem(ctx, userSessionsKey(userID), jti)
	_, err := pipe.Exec(ctx)
	return err
}

// RevokeAll removes every session the user holds.
func (s *Store) RevokeAll(ctx context.Context, userID uint) error {
	if s.rdb == nil {
		return nil
	}

	jtis, err := s.rdb.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	for _, jti := range jtis {
		pipe.Del(ctx, sessionKey(jti))
	}
	pipe.Del(ctx, userSessionsKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}
