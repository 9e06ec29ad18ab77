package auth

import "errors"

// Store-level sentinels.
var (
	ErrNotFound      = errors.New("auth: not found")
	ErrAlreadyExists = errors.New("auth: already exists")
	ErrInvalidInput  = errors.New("auth: invalid input")
)

// Error is a typed, non-fatal outcome reported to callers. Code is stable
// and machine-checkable; Message is the human-readable reason.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Token verification outcomes.
var (
	ErrTokenExpired      = &Error{Code: "TOKEN_EXPIRED", Message: "Token has expired."}
	ErrTokenMalformed    = &Error{Code: "TOKEN_MALFORMED", Message: "Invalid token."}
	ErrPrincipalNotFound = &Error{Code: "PRINCIPAL_NOT_FOUND", Message: "Account no longer exists."}

	ErrInvalidRefreshToken = &Error{Code: "INVALID_REFRESH_TOKEN", Message: "Refresh token is invalid or expired."}
)

// Login denial outcomes, in the order the precondition checks run.
var (
	ErrInvalidCredentials      = &Error{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password."}
	ErrWrongAccountType        = &Error{Code: "WRONG_ACCOUNT_TYPE", Message: "You need a different account type to login here."}
	ErrEmailNotVerified        = &Error{Code: "EMAIL_NOT_VERIFIED", Message: "Please verify your email to login."}
	ErrAccountDeactivated      = &Error{Code: "ACCOUNT_DEACTIVATED", Message: "Your account has been deactivated."}
	ErrRegistrationFeeRequired = &Error{Code: "REGISTRATION_FEE_REQUIRED", Message: "You need to pay your registration fee to login."}
)

// Registration/verification outcomes.
var (
	ErrAlreadyVerified = &Error{Code: "ALREADY_VERIFIED", Message: "User is already verified."}
)
