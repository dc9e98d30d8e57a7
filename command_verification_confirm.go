package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
)

// ConfirmEmailVerificationMessage submits the code the user received
type ConfirmEmailVerificationMessage struct {
	Email      string `json:"email"`
	Code       string `json:"code"`
	OnResponse func(r *ConfirmEmailVerificationResponse)
}

func (e ConfirmEmailVerificationMessage) Type() string { return "verification.confirm" }

// Validate will validate the message
func (e ConfirmEmailVerificationMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.Code, validation.Required, validation.Length(6, 6), is.Hexadecimal),
	)
}

type ConfirmEmailVerificationResponse struct {
	Email    string `json:"email"`
	Verified bool   `json:"verified"`
}

type ConfirmEmailVerificationHandler struct {
	codes *VerificationCodes
}

func NewConfirmEmailVerificationHandler(codes *VerificationCodes) *ConfirmEmailVerificationHandler {
	return &ConfirmEmailVerificationHandler{codes: codes}
}

func (h *ConfirmEmailVerificationHandler) Execute(ctx context.Context, event ConfirmEmailVerificationMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during verification confirm",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmEmailVerificationHandler) execute(ctx context.Context, event ConfirmEmailVerificationMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid verification confirmation")
	}

	if err := h.codes.Confirm(ctx, event.Email, event.Code); err != nil {
		return err
	}

	if event.OnResponse != nil {
		event.OnResponse(&ConfirmEmailVerificationResponse{
			Email:    event.Email,
			Verified: true,
		})
	}

	return nil
}
