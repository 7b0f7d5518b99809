package xerrors

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const PGUniqueViolation = "23505"

func ParsePGErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return "unknown"
}

func IsUniqueViolation(err error) bool {
	return ParsePGErrorCode(err) == PGUniqueViolation
}

// Generic
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrInvalidInput   = errors.New("invalid input provided")
)

// Registration / Login
var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyInUse  = errors.New("email already in use")

	ErrEmailRequired      = errors.New("email required")
	ErrPasswordRequired   = errors.New("password required")
	ErrNameRequired       = errors.New("first name required")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrInvalidEmailFormat = errors.New("invalid email format")
)

// Verification / OTP
var (
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidOTP         = errors.New("invalid otp")
	ErrExpiredOTP         = errors.New("expired otp")
	ErrTooManyOTPRequests = errors.New("too many otp requests")
	ErrOTPCooldown        = errors.New("please wait before requesting another otp")
	ErrInvalidPurpose     = errors.New("invalid otp purpose")
)

// Password rules
var (
	ErrInvalidOldPassword = errors.New("invalid old password")
	ErrPasswordTooShort   = errors.New("password must be at least 6 characters long")
	ErrPasswordTooLong    = errors.New("password must not exceed 72 characters")
)

// Token
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
	ErrTokenRevoked = errors.New("token revoked")
)

// Service requests / certificates
var (
	ErrUnknownServiceType = errors.New("unknown service type")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidPriority    = errors.New("invalid priority")
	ErrRequestNotIssuable = errors.New("request is not approved for certificate issuance")
	ErrCertificateExists  = errors.New("certificate already issued for request")
	ErrHashRequired       = errors.New("hash required")
)

func IsTransitionError(err error) bool {
	return errors.Is(err, ErrInvalidTransition)
}
