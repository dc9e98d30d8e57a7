package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// DefaultSessionDuration matches the portal's 30 day persistent sessions
var DefaultSessionDuration = 30 * 24 * time.Hour

// SessionRecord is the JSON payload stored under session:<id>
type SessionRecord struct {
	SessionID string     `json:"-"`
	AccountID string     `json:"account_id"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

var _ Session = (*SessionRecord)(nil)

func (s *SessionRecord) GetSessionID() string { return s.SessionID }
func (s *SessionRecord) GetAccountID() string { return s.AccountID }
func (s *SessionRecord) GetEmail() string     { return s.Email }
func (s *SessionRecord) GetRole() string      { return s.Role }

func (s *SessionRecord) GetAccountUUID() (uuid.UUID, error) {
	return uuid.Parse(s.AccountID)
}

func (s *SessionRecord) GetIssuedAt() *time.Time {
	return s.CreatedAt
}

func (s *SessionRecord) GetData() map[string]any {
	return map[string]any{
		"account_id": s.AccountID,
		"email":      s.Email,
		"role":       s.Role,
	}
}

// SessionStore keeps server side login sessions in Redis. Destroying a
// session takes effect immediately, unlike JWTs which run to expiry.
type SessionStore struct {
	client   redis.UniversalClient
	duration time.Duration
	logger   Logger
}

type SessionStoreOption func(*SessionStore)

// WithSessionDuration overrides the session TTL
func WithSessionDuration(d time.Duration) SessionStoreOption {
	return func(s *SessionStore) {
		if d > 0 {
			s.duration = d
		}
	}
}

// WithSessionLogger overrides the default logger
func WithSessionLogger(l Logger) SessionStoreOption {
	return func(s *SessionStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSessionStore creates the session store on the given Redis client
func NewSessionStore(client redis.UniversalClient, opts ...SessionStoreOption) *SessionStore {
	store := &SessionStore{
		client:   client,
		duration: DefaultSessionDuration,
		logger:   defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// Create opens a new session for the identity and returns its id
func (s *SessionStore) Create(ctx context.Context, identity Identity) (string, error) {
	now := time.Now()
	record := SessionRecord{
		AccountID: identity.ID(),
		Email:     identity.Email(),
		Role:      identity.Role(),
		CreatedAt: &now,
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to encode session")
	}

	id := uuid.NewString()
	if err := s.client.Set(ctx, sessionKeyPrefix+id, payload, s.duration).Err(); err != nil {
		return "", errors.Wrap(err, errors.CategoryOperation, "failed to store session")
	}

	return id, nil
}

// Get resolves a session id, refreshing its TTL on every hit so active users
// stay logged in
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	key := sessionKeyPrefix + sessionID

	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to read session")
	}

	record := &SessionRecord{SessionID: sessionID}
	if err := json.Unmarshal(payload, record); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to decode session")
	}

	if err := s.client.Expire(ctx, key, s.duration).Err(); err != nil {
		s.logger.Error("failed to refresh session ttl", "session_id", sessionID, "error", err)
	}

	return record, nil
}

// Destroy removes a session. Destroying an unknown or already expired id is
// not an error.
func (s *SessionStore) Destroy(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to destroy session")
	}
	return nil
}
