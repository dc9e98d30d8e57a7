package auth_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/imAdityaSharma/doc-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, auth.RunMigrations(context.Background(), db))

	return db
}

func registerMessage(email string) auth.RegisterAccountMessage {
	return auth.RegisterAccountMessage{
		Role:           "patient",
		FirstName:      "Asha",
		LastName:       "Verma",
		DateOfBirth:    "1990-04-12",
		City:           "Pune",
		PrimaryContact: "+919876543210",
		PrimaryEmail:   email,
		AadharSSN:      "4210-9876-5432",
		Password:       "password123",
	}
}

func TestRegistrationFlow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	client, _ := setupTestRedis(t)

	repo := auth.NewRepositoryManager(db)
	codes := auth.NewVerificationCodes(client)
	mailer := new(MockMailer)
	mailer.On("SendVerificationCode", mock.Anything, "a@x.com", mock.Anything).Return(nil)

	t.Run("register without handshake is rejected", func(t *testing.T) {
		handler := auth.NewRegisterAccountHandler(repo, codes)
		err := handler.Execute(ctx, registerMessage("a@x.com"))

		var rich *goerrors.Error
		require.ErrorAs(t, err, &rich)
		assert.Equal(t, "EMAIL_NOT_VERIFIED", rich.TextCode)
	})

	var code string
	t.Run("request stores and mails a code", func(t *testing.T) {
		handler := auth.NewRequestEmailVerificationHandler(repo, codes, mailer)

		var resp *auth.RequestEmailVerificationResponse
		err := handler.Execute(ctx, auth.RequestEmailVerificationMessage{
			Email: "a@x.com",
			OnResponse: func(r *auth.RequestEmailVerificationResponse) {
				resp = r
			},
		})
		require.NoError(t, err)
		require.NotNil(t, resp)
		assert.True(t, resp.Sent)

		code = mailer.Calls[0].Arguments.String(2)
		require.Len(t, code, 6)
	})

	t.Run("confirm marks the address verified", func(t *testing.T) {
		handler := auth.NewConfirmEmailVerificationHandler(codes)

		err := handler.Execute(ctx, auth.ConfirmEmailVerificationMessage{
			Email: "a@x.com",
			Code:  code,
		})
		require.NoError(t, err)

		verified, err := codes.IsVerified(ctx, "a@x.com")
		require.NoError(t, err)
		assert.True(t, verified)
	})

	t.Run("register creates account and profile, consumes handshake", func(t *testing.T) {
		handler := auth.NewRegisterAccountHandler(repo, codes)

		var resp *auth.RegisterAccountResponse
		msg := registerMessage("a@x.com")
		msg.OnResponse = func(r *auth.RegisterAccountResponse) {
			resp = r
		}

		require.NoError(t, handler.Execute(ctx, msg))
		require.NotNil(t, resp)
		assert.Equal(t, "patient", resp.Role)

		account, err := repo.Accounts().GetByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, auth.RolePatient, account.Role)
		assert.True(t, account.EmailVerified)
		assert.NotEmpty(t, account.TwoFactorSecret)
		assert.NotEqual(t, "password123", account.PasswordHash)

		profile, err := repo.PatientProfiles().GetByID(ctx, account.ID.String())
		require.NoError(t, err)
		assert.Equal(t, account.ID, profile.AccountID)

		// markers are gone, the handshake is single use
		verified, err := codes.IsVerified(ctx, "a@x.com")
		require.NoError(t, err)
		assert.False(t, verified)
	})

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		_, err := codes.Request(ctx, "a@x.com")
		require.NoError(t, err)

		reqHandler := auth.NewRequestEmailVerificationHandler(repo, codes, mailer)
		err = reqHandler.Execute(ctx, auth.RequestEmailVerificationMessage{Email: "a@x.com"})

		var rich *goerrors.Error
		require.ErrorAs(t, err, &rich)
		assert.Equal(t, goerrors.CategoryConflict, rich.Category)
	})

	t.Run("missing fields are reported together", func(t *testing.T) {
		handler := auth.NewRegisterAccountHandler(repo, codes)

		err := handler.Execute(ctx, auth.RegisterAccountMessage{Role: "doctor"})
		require.Error(t, err)

		var rich *goerrors.Error
		require.ErrorAs(t, err, &rich)
		assert.Equal(t, goerrors.CategoryValidation, rich.Category)
		assert.Contains(t, err.Error(), "invalid registration payload")
	})
}

func TestLoginLockoutFlow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	client, _ := setupTestRedis(t)

	repo := auth.NewRepositoryManager(db)

	hash, err := auth.HashPassword("password123")
	require.NoError(t, err)

	account, err := repo.Accounts().Create(ctx, &auth.Account{
		Role:         auth.RolePatient,
		FirstName:    "Asha",
		LastName:     "Verma",
		PrimaryEmail: "a@x.com",
		PasswordHash: hash,
	})
	require.NoError(t, err)

	provider := auth.NewAccountProvider(repo.Accounts())
	sessions := auth.NewSessionStore(client)
	tokens := auth.NewTokenService(testSigningKey, 24, "doc-auth", nil)
	auther := auth.NewAuthenticator(provider, tokens, sessions)

	t.Run("five failures lock the account", func(t *testing.T) {
		for i := 0; i < auth.MaxFailedLogins; i++ {
			_, err := auther.Login(ctx, "a@x.com", "wrong-password")
			assert.Equal(t, auth.ErrMismatchedHashAndPassword, err)
		}

		stored, err := repo.Accounts().GetByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, auth.MaxFailedLogins, stored.FailedLoginAttempts)
		require.NotNil(t, stored.AccountLockedUntil)
	})

	t.Run("correct password rejected while locked", func(t *testing.T) {
		result, err := auther.Login(ctx, "a@x.com", "password123")
		assert.Nil(t, result)
		assert.Equal(t, auth.ErrAccountLocked, err)
	})

	t.Run("successful login resets counters after manual unlock", func(t *testing.T) {
		// emulate the window elapsing by clearing the lock timestamp
		_, err := db.NewRaw(
			`UPDATE base_accounts SET account_locked_until = NULL WHERE id = ?`,
			account.ID.String(),
		).Exec(ctx)
		require.NoError(t, err)

		result, err := auther.Login(ctx, "a@x.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, "/puser/dashboard", result.Redirect)

		stored, err := repo.Accounts().GetByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, 0, stored.FailedLoginAttempts)
		assert.Nil(t, stored.LastFailedLogin)
		assert.Nil(t, stored.AccountLockedUntil)
	})
}

func TestChangePasswordFlow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	repo := auth.NewRepositoryManager(db)

	hash, err := auth.HashPassword("old-password-1")
	require.NoError(t, err)

	_, err = repo.Accounts().Create(ctx, &auth.Account{
		Role:         auth.RoleDoctor,
		FirstName:    "Ravi",
		LastName:     "Nair",
		PrimaryEmail: "doc@x.com",
		PasswordHash: hash,
	})
	require.NoError(t, err)

	handler := auth.NewChangePasswordHandler(repo)

	t.Run("wrong current password rejected", func(t *testing.T) {
		err := handler.Execute(ctx, auth.ChangePasswordMessage{
			Email:           "doc@x.com",
			CurrentPassword: "not-the-password",
			NewPassword:     "new-password-1",
		})
		assert.Equal(t, auth.ErrMismatchedHashAndPassword, err)
	})

	t.Run("rotates the hash and stamps the change", func(t *testing.T) {
		err := handler.Execute(ctx, auth.ChangePasswordMessage{
			Email:           "doc@x.com",
			CurrentPassword: "old-password-1",
			NewPassword:     "new-password-1",
		})
		require.NoError(t, err)

		stored, err := repo.Accounts().GetByEmail(ctx, "doc@x.com")
		require.NoError(t, err)
		assert.NoError(t, auth.ComparePasswordAndHash("new-password-1", stored.PasswordHash))
		assert.Error(t, auth.ComparePasswordAndHash("old-password-1", stored.PasswordHash))
		assert.NotNil(t, stored.PasswordChangedAt)
	})
}

func TestEmailTokenFlow(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	repo := auth.NewRepositoryManager(db)
	mailer := new(MockMailer)
	mailer.On("SendVerificationCode", mock.Anything, "doc@x.com", mock.Anything).Return(nil)

	_, err := repo.Accounts().Create(ctx, &auth.Account{
		Role:         auth.RoleDoctor,
		FirstName:    "Ravi",
		LastName:     "Nair",
		PrimaryEmail: "doc@x.com",
	})
	require.NoError(t, err)

	issue := auth.NewIssueEmailTokenHandler(repo, mailer)

	var token string
	err = issue.Execute(ctx, auth.IssueEmailTokenMessage{
		Email: "doc@x.com",
		OnResponse: func(r *auth.IssueEmailTokenResponse) {
			token = r.Token
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	verify := auth.NewVerifyEmailTokenHandler(repo)

	t.Run("wrong token rejected", func(t *testing.T) {
		err := verify.Execute(ctx, auth.VerifyEmailTokenMessage{
			Email: "doc@x.com",
			Token: "not-the-token",
		})

		var rich *goerrors.Error
		require.ErrorAs(t, err, &rich)
		assert.Equal(t, "EMAIL_TOKEN_MISMATCH", rich.TextCode)
	})

	t.Run("matching token verifies and clears", func(t *testing.T) {
		err := verify.Execute(ctx, auth.VerifyEmailTokenMessage{
			Email: "doc@x.com",
			Token: token,
		})
		require.NoError(t, err)

		stored, err := repo.Accounts().GetByEmail(ctx, "doc@x.com")
		require.NoError(t, err)
		assert.True(t, stored.EmailVerified)
		assert.Empty(t, stored.EmailVerificationToken)
	})
}
