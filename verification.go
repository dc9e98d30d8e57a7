package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

const (
	verificationKeyPrefix = "verification:"
	verifiedKeyPrefix     = "verified:"
)

// DefaultCodeTTL is how long a pending code and a verified marker live
var DefaultCodeTTL = 30 * time.Minute

// pendingVerification is the JSON payload stored under verification:<email>
type pendingVerification struct {
	Email     string    `json:"email"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerificationCodes manages the pre registration email handshake over Redis.
// One pending code per address, last writer wins.
type VerificationCodes struct {
	client  redis.UniversalClient
	codeTTL time.Duration
	now     func() time.Time
	logger  Logger
}

type VerificationOption func(*VerificationCodes)

// WithCodeTTL overrides the pending code and verified marker lifetime
func WithCodeTTL(ttl time.Duration) VerificationOption {
	return func(v *VerificationCodes) {
		if ttl > 0 {
			v.codeTTL = ttl
		}
	}
}

// WithClock overrides the time source, used by expiry tests
func WithClock(now func() time.Time) VerificationOption {
	return func(v *VerificationCodes) {
		if now != nil {
			v.now = now
		}
	}
}

// WithVerificationLogger overrides the default logger
func WithVerificationLogger(l Logger) VerificationOption {
	return func(v *VerificationCodes) {
		if l != nil {
			v.logger = l
		}
	}
}

// NewVerificationCodes creates the handshake store on the given Redis client
func NewVerificationCodes(client redis.UniversalClient, opts ...VerificationOption) *VerificationCodes {
	v := &VerificationCodes{
		client:  client,
		codeTTL: DefaultCodeTTL,
		now:     time.Now,
		logger:  defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v
}

// GenerateVerificationCode returns a 6 hex digit code from 3 random bytes
func GenerateVerificationCode() (string, error) {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to generate verification code")
	}
	return hex.EncodeToString(b), nil
}

// Request stores a fresh code for the address and returns it. A pending code
// for the same address is overwritten, re-requesting is always safe.
func (v *VerificationCodes) Request(ctx context.Context, email string) (string, error) {
	code, err := GenerateVerificationCode()
	if err != nil {
		return "", err
	}

	record := pendingVerification{
		Email:     email,
		Token:     code,
		ExpiresAt: v.now().Add(v.codeTTL),
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to encode verification record")
	}

	if err := v.client.Set(ctx, verificationKeyPrefix+email, payload, v.codeTTL).Err(); err != nil {
		return "", errors.Wrap(err, errors.CategoryOperation, "failed to store verification code")
	}

	v.logger.Debug("stored verification code", "email", email)

	return code, nil
}

// Confirm checks the submitted code against the pending record. On success the
// pending record is evicted and a verified marker is written for the address.
// A mismatch leaves the pending record untouched so the user can retry.
func (v *VerificationCodes) Confirm(ctx context.Context, email, code string) error {
	key := verificationKeyPrefix + email

	payload, err := v.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrVerificationNotFound
		}
		return errors.Wrap(err, errors.CategoryOperation, "failed to read verification code")
	}

	var record pendingVerification
	if err := json.Unmarshal(payload, &record); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to decode verification record")
	}

	// Redis expires the key on its own, the embedded timestamp is the
	// authoritative deadline when clocks drift
	if v.now().After(record.ExpiresAt) {
		if err := v.client.Del(ctx, key).Err(); err != nil {
			v.logger.Error("failed to evict expired verification code", "email", email, "error", err)
		}
		return ErrVerificationExpired
	}

	if subtle.ConstantTimeCompare([]byte(record.Token), []byte(code)) != 1 {
		return ErrVerificationMismatch
	}

	if err := v.client.Set(ctx, verifiedKeyPrefix+email, "true", v.codeTTL).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to store verified marker")
	}

	if err := v.client.Del(ctx, key).Err(); err != nil {
		v.logger.Error("failed to evict confirmed verification code", "email", email, "error", err)
	}

	return nil
}

// IsVerified reports whether the address holds a live verified marker
func (v *VerificationCodes) IsVerified(ctx context.Context, email string) (bool, error) {
	val, err := v.client.Get(ctx, verifiedKeyPrefix+email).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, errors.Wrap(err, errors.CategoryOperation, "failed to read verified marker")
	}
	return val == "true", nil
}

// Invalidate removes both the pending code and the verified marker for the
// address, called after registration consumes the handshake
func (v *VerificationCodes) Invalidate(ctx context.Context, email string) error {
	if err := v.client.Del(ctx, verificationKeyPrefix+email, verifiedKeyPrefix+email).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryOperation, "failed to invalidate verification state")
	}
	return nil
}
