package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/monocle-dev/workspace/internal/models"
	"github.com/monocle-dev/workspace/internal/types"
	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL matches the cookie lifetime of one week.
const DefaultSessionTTL = 7 * 24 * time.Hour

const sessionKeyPrefix = "workspace:session:"

var ErrSessionNotFound = errors.New("session not found")

// Session is a server side login. Logout deletes it.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type SessionStore interface {
	Save(ctx context.Context, sess Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	// PurgeExpired removes sessions past their expiry and returns how many were removed.
	PurgeExpired(ctx context.Context, now time.Time) (int, error)
}

// MemorySessionStore keeps sessions in process.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]Session)}
}

func (m *MemorySessionStore) Save(_ context.Context, sess Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemorySessionStore) PurgeExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	purged := 0
	for id, sess := range m.sessions {
		if sess.Expired(now) {
			delete(m.sessions, id)
			purged++
		}
	}
	return purged, nil
}

// RedisSessionStore keeps each session under workspace:session:{id} with a TTL.
type RedisSessionStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, now: time.Now}
}

func (r *RedisSessionStore) key(id string) string {
	return sessionKeyPrefix + id
}

func (r *RedisSessionStore) Save(ctx context.Context, sess Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	ttl := sess.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", sess.ID)
	}

	if err := r.client.Set(ctx, r.key(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisSessionStore) Get(ctx context.Context, id string) (Session, error) {
	data, err := r.client.Get(ctx, r.key(id)).Result()
	if err == redis.Nil {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return sess, nil
}

func (r *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// PurgeExpired is a no-op: Redis expires keys on its own.
func (r *RedisSessionStore) PurgeExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}

type SessionsOption func(*Sessions)

func WithSessionTTL(ttl time.Duration) SessionsOption {
	return func(s *Sessions) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithNow(now func() time.Time) SessionsOption {
	return func(s *Sessions) {
		s.now = now
		s.signer.now = now
	}
}

// Sessions creates, resolves and tears down logins.
type Sessions struct {
	store  SessionStore
	signer *Signer
	ttl    time.Duration
	now    func() time.Time
}

func NewSessions(store SessionStore, signer *Signer, opts ...SessionsOption) *Sessions {
	s := &Sessions{
		store:  store,
		signer: signer,
		ttl:    DefaultSessionTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

// Create starts a session for user and returns it with its signed token.
func (s *Sessions) Create(ctx context.Context, user models.User) (Session, string, error) {
	now := s.now()
	sess := Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	if err := s.store.Save(ctx, sess); err != nil {
		return Session{}, "", err
	}

	token, err := s.signer.GenerateJWT(sess)
	if err != nil {
		_ = s.store.Delete(ctx, sess.ID)
		return Session{}, "", err
	}
	return sess, token, nil
}

// Resolve returns the live session behind token. Any failure is types.ErrUnauthorized.
func (s *Sessions) Resolve(ctx context.Context, token string) (Session, error) {
	claims, err := s.signer.VerifyJWT(token)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", types.ErrUnauthorized, err)
	}

	sess, err := s.store.Get(ctx, claims.SessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return Session{}, fmt.Errorf("%w: session revoked", types.ErrUnauthorized)
	}
	if err != nil {
		return Session{}, err
	}
	if sess.UserID != claims.UserID || sess.Expired(s.now()) {
		return Session{}, fmt.Errorf("%w: session expired", types.ErrUnauthorized)
	}
	return sess, nil
}

// Teardown deletes the session behind token. Unknown or invalid tokens are ignored.
func (s *Sessions) Teardown(ctx context.Context, token string) error {
	claims, err := s.signer.VerifyJWT(token)
	if err != nil {
		return nil
	}
	return s.store.Delete(ctx, claims.SessionID)
}

func (s *Sessions) PurgeExpired(ctx context.Context) (int, error) {
	return s.store.PurgeExpired(ctx, s.now())
}
