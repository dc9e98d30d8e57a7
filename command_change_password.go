package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ChangePasswordMessage rotates the password for a logged in account. The
// current password is required, lockout counters do not move here.
type ChangePasswordMessage struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	OnResponse      func(r *ChangePasswordResponse)
}

func (e ChangePasswordMessage) Type() string { return "account.change_password" }

// Validate will validate the message
func (e ChangePasswordMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.CurrentPassword, validation.Required),
		validation.Field(&e.NewPassword, validation.Required, validation.Length(8, 100)),
	)
}

type ChangePasswordResponse struct {
	Email   string `json:"email"`
	Changed bool   `json:"changed"`
}

type ChangePasswordHandler struct {
	repo RepositoryManager
}

func NewChangePasswordHandler(repo RepositoryManager) *ChangePasswordHandler {
	return &ChangePasswordHandler{repo: repo}
}

func (h *ChangePasswordHandler) Execute(ctx context.Context, event ChangePasswordMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password change",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ChangePasswordHandler) execute(ctx context.Context, event ChangePasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password change payload")
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		account, err := h.repo.Accounts().GetByEmailTx(ctx, tx, event.Email)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrMismatchedHashAndPassword
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password change")
		}

		if err := ComparePasswordAndHash(event.CurrentPassword, account.PasswordHash); err != nil {
			return ErrMismatchedHashAndPassword
		}

		hash, err := HashPassword(event.NewPassword)
		if err != nil {
			var richErr *goerrors.Error
			if goerrors.As(err, &richErr) {
				return goerrors.Wrap(richErr, goerrors.CategoryValidation, "invalid password provided")
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
		}

		return h.repo.Accounts().ChangePasswordTx(ctx, tx, account.ID, hash)
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "password change transaction failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(&ChangePasswordResponse{
			Email:   event.Email,
			Changed: true,
		})
	}

	return nil
}
