package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
)

// RequestEmailVerificationMessage asks for a fresh handshake code to be
// stored and mailed to a not yet registered address
type RequestEmailVerificationMessage struct {
	Email      string `json:"email"`
	OnResponse func(r *RequestEmailVerificationResponse)
}

func (e RequestEmailVerificationMessage) Type() string { return "verification.request" }

// Validate will validate the message
func (e RequestEmailVerificationMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
	)
}

type RequestEmailVerificationResponse struct {
	Email  string   `json:"email"`
	Sent   bool     `json:"sent"`
	Errors []string `json:"errors,omitempty"`
}

type RequestEmailVerificationHandler struct {
	repo   RepositoryManager
	codes  *VerificationCodes
	mailer Mailer
}

func NewRequestEmailVerificationHandler(repo RepositoryManager, codes *VerificationCodes, mailer Mailer) *RequestEmailVerificationHandler {
	return &RequestEmailVerificationHandler{
		repo:   repo,
		codes:  codes,
		mailer: mailer,
	}
}

func (h *RequestEmailVerificationHandler) Execute(ctx context.Context, event RequestEmailVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestEmailVerificationHandler) execute(ctx context.Context, event RequestEmailVerificationMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid verification request")
	}

	// a registered address never gets a pre registration code again
	if _, err := h.repo.Accounts().GetByEmail(ctx, event.Email); err == nil {
		return ErrEmailTaken
	} else if !goerrors.IsNotFound(err) {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing account")
	}

	code, err := h.codes.Request(ctx, event.Email)
	if err != nil {
		return err
	}

	// the code is stored before dispatch so a failed send can be retried
	// by confirming against a re-requested code
	if err := h.mailer.SendVerificationCode(ctx, event.Email, code); err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&RequestEmailVerificationResponse{
			Email: event.Email,
			Sent:  true,
		})
	}

	return nil
}
