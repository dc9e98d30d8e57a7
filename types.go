package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Session holds attributes that are part of an auth session
type Session interface {
	GetSessionID() string
	GetAccountID() string
	GetAccountUUID() (uuid.UUID, error)
	GetEmail() string
	GetRole() string
	GetIssuedAt() *time.Time
	GetData() map[string]any
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Email() string
	Role() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetSessionDuration() time.Duration
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

// IdentityProvider ensure we have a store to retrieve auth identity
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, email, password string) (Identity, error)
	FindIdentityByEmail(ctx context.Context, email string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Println(logLine("[ERR] AUTH", msg, args))
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Println(logLine("[INF] AUTH", msg, args))
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Println(logLine("[DBG] AUTH", msg, args))
}

// logLine renders trailing arguments as key=value pairs, an unpaired final
// argument is printed bare
func logLine(prefix, msg string, args []any) string {
	line := prefix + " " + msg
	i := 0
	for ; i+1 < len(args); i += 2 {
		line += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	if i < len(args) {
		line += fmt.Sprintf(" %v", args[i])
	}
	return line
}
