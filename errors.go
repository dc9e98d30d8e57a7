package auth

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	TextCodeAccountLocked         = "ACCOUNT_LOCKED"
	TextCodeEmailNotVerified      = "EMAIL_NOT_VERIFIED"
	TextCodeEmailTaken            = "EMAIL_TAKEN"
	TextCodeCodeNotFound          = "VERIFICATION_NOT_FOUND"
	TextCodeCodeExpired           = "VERIFICATION_EXPIRED"
	TextCodeCodeMismatch          = "VERIFICATION_MISMATCH"
	TextCodeTokenExpired          = "TOKEN_EXPIRED"
	TextCodeTokenMalformed        = "TOKEN_MALFORMED"
	TextCodeInvalidRole           = "INVALID_ROLE"
	TextCodeSessionNotFound       = "SESSION_NOT_FOUND"
	TextCodeMailDeliveryFailed    = "MAIL_DELIVERY_FAILED"
	TextCodeEmailTokenExpired     = "EMAIL_TOKEN_EXPIRED"
	TextCodeEmailTokenMismatch    = "EMAIL_TOKEN_MISMATCH"
	TextCodeEmailAlreadyConfirmed = "EMAIL_ALREADY_CONFIRMED"
)

// ErrIdentityNotFound is the error we return for non found identities
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrMismatchedHashAndPassword is returned for any credential failure. Unknown
// email and wrong password produce the same error so responses cannot be used
// to probe which addresses hold an account.
var ErrMismatchedHashAndPassword = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(errors.CodeUnauthorized)

// ErrAccountLocked is returned while the lockout window is active
var ErrAccountLocked = errors.New("account temporarily locked due to multiple failed login attempts", errors.CategoryAuth).
	WithTextCode(TextCodeAccountLocked).
	WithCode(errors.CodeUnauthorized)

// ErrEmailNotVerified blocks registration until the email handshake completed
var ErrEmailNotVerified = errors.New("email not verified", errors.CategoryAuth).
	WithTextCode(TextCodeEmailNotVerified).
	WithCode(errors.CodeForbidden)

// ErrEmailTaken is returned when the address already maps to an account
var ErrEmailTaken = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(errors.CodeConflict)

// ErrVerificationNotFound means no pending code exists for the address
var ErrVerificationNotFound = errors.New("no pending verification for email", errors.CategoryNotFound).
	WithTextCode(TextCodeCodeNotFound).
	WithCode(errors.CodeNotFound)

// ErrVerificationExpired means the pending code outlived its window
var ErrVerificationExpired = errors.New("verification code expired", errors.CategoryAuth).
	WithTextCode(TextCodeCodeExpired).
	WithCode(errors.CodeUnauthorized)

// ErrVerificationMismatch means the submitted code does not match the stored one
var ErrVerificationMismatch = errors.New("verification code does not match", errors.CategoryAuth).
	WithTextCode(TextCodeCodeMismatch).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a JWT is past its expiry claim
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed covers every other JWT parse or signature failure
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidRole rejects roles with no portal dashboard
var ErrInvalidRole = errors.New("invalid role", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidRole).
	WithCode(errors.CodeForbidden)

// ErrSessionNotFound means the session id is unknown or already expired
var ErrSessionNotFound = errors.New("session not found", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToFindSession is the error when our request has no token
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession unable to decode JWT claims
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized)

// ErrMailDeliveryFailed wraps upstream SMTP failures
var ErrMailDeliveryFailed = errors.New("failed to deliver verification email", errors.CategoryOperation).
	WithTextCode(TextCodeMailDeliveryFailed)

// ErrNoEmptyString guards against hashing empty passwords
var ErrNoEmptyString = errors.New("password cannot be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.TextCode == TextCodeTokenExpired
	}
	return false
}

// IsMalformedError will check for malformed token errors
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	var rich *errors.Error
	if errors.As(err, &rich) {
		return rich.TextCode == TextCodeTokenMalformed
	}
	return false
}
