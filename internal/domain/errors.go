package domain

import "errors"

// Sentinel errors for the application. The HTTP layer maps these to status
// codes in one place; services never swallow them.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("resource already exists")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal server error")

	// Credential failures. Login reports the same error for an unknown
	// email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Session validation failures, each reason distinguishable so clients
	// can message them differently.
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
	ErrSessionRevoked = errors.New("session revoked")
	ErrUnknownUser    = errors.New("unknown user")

	// Verification code terminal states.
	ErrCodeUsed    = errors.New("verification code already used")
	ErrCodeExpired = errors.New("verification code expired")

	// Email delivery failed; the code itself remains redeemable.
	ErrDelivery = errors.New("email delivery failed")
)
