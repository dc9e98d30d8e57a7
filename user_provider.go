package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

// AccountTracker is the slice of the accounts repository the provider needs
type AccountTracker interface {
	GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*Account, error)
	TrackFailedLogin(ctx context.Context, account *Account) error
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
	ClearExpiredLock(ctx context.Context, account *Account) error
}

// AccountProvider resolves identities from the credential store
type AccountProvider struct {
	store     AccountTracker
	Validator func(*Account) error
	logger    Logger
}

// NewAccountProvider will create a new AccountProvider
func NewAccountProvider(store AccountTracker) *AccountProvider {
	return &AccountProvider{
		store:     store,
		logger:    defLogger{},
		Validator: defaultAccountValidator,
	}
}

func (p *AccountProvider) WithLogger(l Logger) *AccountProvider {
	if l != nil {
		p.logger = l
	}
	return p
}

func (p *AccountProvider) validate(account *Account) error {
	if p.Validator != nil {
		return p.Validator(account)
	}
	return defaultAccountValidator(account)
}

// VerifyIdentity will find the account, check the lockout window, compare the
// password, and return the identity. Unknown email and wrong password return
// the same error so responses cannot be used to enumerate accounts.
func (p *AccountProvider) VerifyIdentity(ctx context.Context, email, password string) (Identity, error) {
	account, err := p.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrMismatchedHashAndPassword
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve account during verification")
	}

	now := time.Now()
	if account.IsLocked(now) {
		return nil, ErrAccountLocked
	}

	// the lock elapsed, persist the lazy unlock before counting this attempt
	if account.AccountLockedUntil != nil {
		if err := p.store.ClearExpiredLock(ctx, account); err != nil {
			return nil, errors.Wrap(err, errors.CategoryInternal, "failed to clear expired lock")
		}
	}

	if err := ComparePasswordAndHash(password, account.PasswordHash); err != nil {
		if err2 := p.store.TrackFailedLogin(ctx, account); err2 != nil {
			return nil, errors.Wrap(err2, errors.CategoryInternal, "failed to track login attempt")
		}

		return nil, ErrMismatchedHashAndPassword
	}

	if err := p.store.TrackSuccessfulLogin(ctx, account); err != nil {
		p.logger.Error("failed to track successful login", "error", err)
	}

	if err := p.validate(account); err != nil {
		return nil, err
	}

	return accountIdentity{
		id:    account.ID.String(),
		email: account.PrimaryEmail,
		role:  string(account.Role),
	}, nil
}

// FindIdentityByEmail resolves an identity without touching the lockout state
func (p *AccountProvider) FindIdentityByEmail(ctx context.Context, email string) (Identity, error) {
	account, err := p.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	if err := p.validate(account); err != nil {
		return nil, err
	}

	return accountIdentity{
		id:    account.ID.String(),
		email: account.PrimaryEmail,
		role:  string(account.Role),
	}, nil
}

func defaultAccountValidator(account *Account) error {
	if account == nil {
		return ErrIdentityNotFound
	}

	if !account.Role.IsValid() {
		return errors.New("account has an unknown or invalid role", errors.CategoryAuth).
			WithTextCode(TextCodeInvalidRole).
			WithMetadata(map[string]any{"role": string(account.Role), "account_id": account.ID.String()})
	}

	return nil
}

type accountIdentity struct {
	id    string
	email string
	role  string
}

func (a accountIdentity) ID() string    { return a.id }
func (a accountIdentity) Email() string { return a.email }
func (a accountIdentity) Role() string  { return a.role }

var _ Identity = (*accountIdentity)(nil)
var _ IdentityProvider = (*AccountProvider)(nil)
