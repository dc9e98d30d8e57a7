package auth

import (
	"context"
	"reflect"
)

// LoginResult is what a successful password login produces: a signed JWT, a
// server side session, and the dashboard redirect for the role.
type LoginResult struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Redirect  string `json:"redirect"`
}

// Auther drives the password login flow
type Auther struct {
	provider     IdentityProvider
	tokenService TokenService
	sessions     *SessionStore
	logger       Logger
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(provider IdentityProvider, tokenService TokenService, sessions *SessionStore) *Auther {
	return &Auther{
		provider:     provider,
		tokenService: tokenService,
		sessions:     sessions,
		logger:       defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// TokenService returns the TokenService instance used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login verifies the credentials, rejects roles without a dashboard, then
// issues the token and opens the session
func (s *Auther) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	identity, err := s.provider.VerifyIdentity(ctx, email, password)
	if err != nil {
		s.logger.Error("login verify identity error", "error", err)
		return nil, err
	}

	if identity == nil || reflect.ValueOf(identity).IsZero() {
		s.logger.Error("login identity is nil or zero value")
		return nil, ErrIdentityNotFound
	}

	redirect, ok := Role(identity.Role()).DashboardPath()
	if !ok {
		s.logger.Error("login rejected role without dashboard", "role", identity.Role())
		return nil, ErrInvalidRole
	}

	token, err := s.tokenService.Generate(identity)
	if err != nil {
		s.logger.Error("login token generation error", "error", err)
		return nil, err
	}

	sessionID, err := s.sessions.Create(ctx, identity)
	if err != nil {
		s.logger.Error("login session creation error", "error", err)
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		SessionID: sessionID,
		Role:      identity.Role(),
		Redirect:  redirect,
	}, nil
}

// Logout destroys the server side session. The JWT stays valid until its
// expiry claim, there is no revocation list.
func (s *Auther) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Destroy(ctx, sessionID)
}

// CheckSession resolves a session id and refreshes its TTL
func (s *Auther) CheckSession(ctx context.Context, sessionID string) (Session, error) {
	return s.sessions.Get(ctx, sessionID)
}

// SessionFromToken validates a JWT and returns its claims
func (s *Auther) SessionFromToken(token string) (AuthClaims, error) {
	return s.tokenService.Validate(token)
}

// IdentityFromClaims resolves the live identity behind validated claims
func (s *Auther) IdentityFromClaims(ctx context.Context, claims AuthClaims) (Identity, error) {
	if claims == nil {
		return nil, ErrUnableToDecodeSession
	}
	return s.provider.FindIdentityByEmail(ctx, claims.Email())
}
