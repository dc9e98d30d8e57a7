package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// EmailTokenWindow is how long the long lived account row token stays valid
var EmailTokenWindow = "24h"

// IssueEmailTokenMessage provisions the account row verification token, the
// long lived variant used for post registration address changes
type IssueEmailTokenMessage struct {
	Email      string `json:"email"`
	OnResponse func(r *IssueEmailTokenResponse)
}

func (e IssueEmailTokenMessage) Type() string { return "email_token.issue" }

func (e IssueEmailTokenMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
	)
}

type IssueEmailTokenResponse struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

type IssueEmailTokenHandler struct {
	repo   RepositoryManager
	mailer Mailer
}

func NewIssueEmailTokenHandler(repo RepositoryManager, mailer Mailer) *IssueEmailTokenHandler {
	return &IssueEmailTokenHandler{
		repo:   repo,
		mailer: mailer,
	}
}

func (h *IssueEmailTokenHandler) Execute(ctx context.Context, event IssueEmailTokenMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email token issue",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *IssueEmailTokenHandler) execute(ctx context.Context, event IssueEmailTokenMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid email token request")
	}

	token, err := generateEmailToken()
	if err != nil {
		return err
	}

	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := h.repo.Accounts().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrIdentityNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for email token")
		}

		return h.repo.Accounts().SetEmailVerificationTokenTx(ctx, tx, account.ID, token)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email token transaction failed")
	}

	if err := h.mailer.SendVerificationCode(ctx, event.Email, token); err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&IssueEmailTokenResponse{
			Email: event.Email,
			Token: token,
		})
	}

	return nil
}

func generateEmailToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate email token")
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// VerifyEmailTokenMessage submits the account row token for confirmation
type VerifyEmailTokenMessage struct {
	Email      string `json:"email"`
	Token      string `json:"token"`
	OnResponse func(r *VerifyEmailTokenResponse)
}

func (e VerifyEmailTokenMessage) Type() string { return "email_token.verify" }

func (e VerifyEmailTokenMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Token, validation.Required),
	)
}

type VerifyEmailTokenResponse struct {
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

type VerifyEmailTokenHandler struct {
	repo RepositoryManager
}

func NewVerifyEmailTokenHandler(repo RepositoryManager) *VerifyEmailTokenHandler {
	return &VerifyEmailTokenHandler{repo: repo}
}

func (h *VerifyEmailTokenHandler) Execute(ctx context.Context, event VerifyEmailTokenMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email token verification",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailTokenHandler) execute(ctx context.Context, event VerifyEmailTokenMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid email token confirmation")
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := h.repo.Accounts().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrIdentityNotFound
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for email token")
		}

		if account.EmailVerificationToken == "" {
			return goerrors.New("no email token pending for account", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound)
		}

		if account.EmailVerificationSentAt != nil {
			expired, err := IsOutsideThresholdPeriod(*account.EmailVerificationSentAt, EmailTokenWindow)
			if err != nil {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check token expiration period")
			}
			// the token is only cleared on success, an expired one stays
			// on the row until a new one replaces it
			if expired {
				return goerrors.New("email token expired", goerrors.CategoryAuth).
					WithTextCode(TextCodeEmailTokenExpired).
					WithCode(goerrors.CodeUnauthorized)
			}
		}

		if subtle.ConstantTimeCompare([]byte(account.EmailVerificationToken), []byte(event.Token)) != 1 {
			return goerrors.New("email token does not match", goerrors.CategoryAuth).
				WithTextCode(TextCodeEmailTokenMismatch).
				WithCode(goerrors.CodeUnauthorized)
		}

		return h.repo.Accounts().MarkEmailVerifiedTx(ctx, tx, account.ID)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "email token verification failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(&VerifyEmailTokenResponse{
			Email:    event.Email,
			Verified: true,
		})
	}

	return nil
}
