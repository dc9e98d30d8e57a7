package auth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// TrackFailedLoginSQL applies one failed attempt in a single statement so
// concurrent logins cannot race a read-modify-write cycle. The lock timestamp
// is only set when this attempt reaches the threshold.
var TrackFailedLoginSQL = `UPDATE "base_accounts" AS "acc"
SET
	"failed_login_attempts" = "failed_login_attempts" + 1,
	"last_failed_login" = ?,
	"account_locked_until" = CASE
		WHEN "failed_login_attempts" + 1 >= ? THEN ?
		ELSE "account_locked_until"
	END
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

var TrackSuccessfulLoginSQL = `UPDATE "base_accounts" AS "acc"
SET
	"failed_login_attempts" = 0,
	"last_failed_login" = NULL,
	"account_locked_until" = NULL
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

// ClearExpiredLockSQL drops only the lock timestamp, the attempt counter
// stays so another failure after a lazy unlock re-locks immediately
var ClearExpiredLockSQL = `UPDATE "base_accounts" AS "acc"
SET
	"account_locked_until" = NULL
WHERE
	"acc"."deleted_at" IS NULL
AND "acc"."account_locked_until" IS NOT NULL
AND "acc"."account_locked_until" <= ?
AND (
	"acc"."id" = ?
) RETURNING *;`

var ChangePasswordSQL = `UPDATE "base_accounts" AS "acc"
SET
	"password_hash" = ?,
	"password_changed_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

var SetEmailVerificationTokenSQL = `UPDATE "base_accounts" AS "acc"
SET
	"email_verification_token" = ?,
	"email_verification_sent_at" = ?
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

var MarkEmailVerifiedSQL = `UPDATE "base_accounts" AS "acc"
SET
	"email_verified" = TRUE,
	"email_verification_token" = '',
	"email_verification_sent_at" = NULL
WHERE
	"acc"."deleted_at" IS NULL
AND (
	"acc"."id" = ?
) RETURNING *;`

type Accounts interface {
	repository.Repository[*Account]

	Register(ctx context.Context, account *Account) (*Account, error)
	RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error)
	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)

	GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*Account, error)
	ListByRole(ctx context.Context, role Role) ([]*Account, error)

	TrackFailedLogin(ctx context.Context, account *Account) error
	TrackFailedLoginTx(ctx context.Context, tx bun.IDB, account *Account) error
	TrackSuccessfulLogin(ctx context.Context, account *Account) error
	TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, account *Account) error
	ClearExpiredLock(ctx context.Context, account *Account) error
	ClearExpiredLockTx(ctx context.Context, tx bun.IDB, account *Account) error

	ChangePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	ChangePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error

	SetEmailVerificationToken(ctx context.Context, id uuid.UUID, token string) error
	SetEmailVerificationTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
	MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type accounts struct {
	repository.Repository[*Account]
	db *bun.DB
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

func NewAccountsRepository(db *bun.DB) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "primary_email"
		},
	})

	return &accounts{
		Repository: repo,
		db:         db,
	}
}

func (a *accounts) Register(ctx context.Context, account *Account) (*Account, error) {
	return a.RegisterTx(ctx, a.db, account)
}

func (a *accounts) RegisterTx(ctx context.Context, tx bun.IDB, account *Account) (*Account, error) {
	return a.CreateTx(ctx, tx, account)
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	prepareAccountDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *accounts) GetByEmail(ctx context.Context, email string, criteria ...repository.SelectCriteria) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email, criteria...)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string, criteria ...repository.SelectCriteria) (*Account, error) {
	record := &Account{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.primary_email = ?", email).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) ListByRole(ctx context.Context, role Role) ([]*Account, error) {
	var records []*Account
	err := a.db.NewSelect().
		Model(&records).
		Where("?TableAlias.role = ?", string(role)).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (a *accounts) TrackFailedLogin(ctx context.Context, account *Account) error {
	return a.TrackFailedLoginTx(ctx, a.db, account)
}

func (a *accounts) TrackFailedLoginTx(ctx context.Context, tx bun.IDB, account *Account) error {
	now := time.Now()
	lockedUntil := now.Add(LockoutWindow)
	_, err := tx.NewRaw(
		TrackFailedLoginSQL,
		now,
		MaxFailedLogins,
		lockedUntil,
		account.ID.String(),
	).Exec(ctx)
	if err != nil {
		return err
	}

	account.RecordFailedLogin(now)
	return nil
}

func (a *accounts) TrackSuccessfulLogin(ctx context.Context, account *Account) error {
	return a.TrackSuccessfulLoginTx(ctx, a.db, account)
}

func (a *accounts) TrackSuccessfulLoginTx(ctx context.Context, tx bun.IDB, account *Account) error {
	_, err := tx.NewRaw(TrackSuccessfulLoginSQL, account.ID.String()).Exec(ctx)
	if err != nil {
		return err
	}

	account.ResetFailedLogins()
	return nil
}

func (a *accounts) ClearExpiredLock(ctx context.Context, account *Account) error {
	return a.ClearExpiredLockTx(ctx, a.db, account)
}

func (a *accounts) ClearExpiredLockTx(ctx context.Context, tx bun.IDB, account *Account) error {
	now := time.Now()
	_, err := tx.NewRaw(ClearExpiredLockSQL, now, account.ID.String()).Exec(ctx)
	if err != nil {
		return err
	}

	account.ClearExpiredLock(now)
	return nil
}

func (a *accounts) ChangePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return a.ChangePasswordTx(ctx, a.db, id, passwordHash)
}

func (a *accounts) ChangePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	res, err := a.Repository.RawTx(ctx, tx, ChangePasswordSQL, passwordHash, time.Now(), id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *accounts) SetEmailVerificationToken(ctx context.Context, id uuid.UUID, token string) error {
	return a.SetEmailVerificationTokenTx(ctx, a.db, id, token)
}

func (a *accounts) SetEmailVerificationTokenTx(ctx context.Context, tx bun.IDB, id uuid.UUID, token string) error {
	res, err := a.Repository.RawTx(ctx, tx, SetEmailVerificationTokenSQL, token, time.Now(), id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *accounts) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	return a.MarkEmailVerifiedTx(ctx, a.db, id)
}

func (a *accounts) MarkEmailVerifiedTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := a.Repository.RawTx(ctx, tx, MarkEmailVerifiedSQL, id.String())
	if err != nil {
		return err
	}

	if len(res) == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func prepareAccountDefaults(record *Account) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.PasswordHash == "" {
		record.PasswordHash = RandomPasswordHash()
	}

	record.EnsureTwoFactorSecret()
}
