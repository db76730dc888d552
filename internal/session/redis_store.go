package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/redis/go-redis/v9"

	"strap/internal/auth"
	"strap/internal/utils"
)

const sessionIDBytes = 32

// RedisStore keeps only a random session ID in the cookie and the identity
// in Redis under that ID, expiring after ttl.
type RedisStore struct {
	client *redis.Client
	codec  *sessions.CookieStore
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, secret []byte, ttl time.Duration, opts CookieOptions) *RedisStore {
	return &RedisStore{
		client: client,
		codec:  newCodec(secret, opts),
		prefix: "session:",
		ttl:    ttl,
	}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisStore) Load(req *http.Request) (*auth.Identity, error) {
	s, err := r.codec.Get(req, CookieName)
	if err != nil {
		return nil, fmt.Errorf("session: decode cookie: %w", err)
	}

	sid, ok := s.Values[sessionIDKey].(string)
	if !ok || sid == "" {
		return nil, ErrNoIdentity
	}

	val, err := r.client.Get(req.Context(), r.key(sid)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoIdentity
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get: %w", err)
	}

	var id auth.Identity
	if err := json.Unmarshal([]byte(val), &id); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	return &id, nil
}

func (r *RedisStore) Save(w http.ResponseWriter, req *http.Request, identity auth.Identity) error {
	s, _ := r.codec.Get(req, CookieName)
	ctx := req.Context()

	// rotate the ID on every sign-in
	if old, ok := s.Values[sessionIDKey].(string); ok && old != "" {
		r.delete(ctx, old)
	}

	sid, err := utils.RandomString(sessionIDBytes)
	if err != nil {
		return fmt.Errorf("session: failed to generate id: %w", err)
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}

	if err := r.client.Set(ctx, r.key(sid), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("session: redis set: %w", err)
	}

	s.Values[sessionIDKey] = sid
	if err := s.Save(req, w); err != nil {
		return fmt.Errorf("session: save cookie: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(w http.ResponseWriter, req *http.Request) error {
	s, _ := r.codec.Get(req, CookieName)

	if sid, ok := s.Values[sessionIDKey].(string); ok && sid != "" {
		r.delete(req.Context(), sid)
	}

	expire(r.codec, s)
	if err := s.Save(req, w); err != nil {
		return fmt.Errorf("session: clear cookie: %w", err)
	}
	return nil
}

// delete is best effort; an orphaned key still expires with its TTL.
func (r *RedisStore) delete(ctx context.Context, sid string) {
	_ = r.client.Del(ctx, r.key(sid)).Err()
}
