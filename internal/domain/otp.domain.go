package domain

import "time"

const (
	PurposeLogin             = "login"
	PurposeEmailVerification = "email_verification"
	PurposePasswordReset     = "password_reset"
)

func IsValidOTPPurpose(p string) bool {
	switch p {
	case PurposeLogin, PurposeEmailVerification, PurposePasswordReset:
		return true
	}
	return false
}

type OTPRecord struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	OTP       string    `json:"-"`
	Purpose   string    `json:"purpose"`
	ExpiresAt time.Time `json:"expires_at"`
	Verified  bool      `json:"verified"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
