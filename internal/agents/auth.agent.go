package agents

import (
	"context"
	"strings"
	"time"

	"spark-service/internal/domain"
	"spark-service/pkg/middleware"
	xerrors "spark-service/pkg/xerrors"
)

type OTPRequester interface {
	RequestOTP(ctx context.Context, email, purpose, lang string) (time.Time, error)
}

type OTPVerifier interface {
	Verify(ctx context.Context, email, purpose, code string) (bool, error)
}

// AuthAgent issues and checks one-time passwords for the authenticated
// caller's own email. Codes are delivered by email and never returned.
type AuthAgent struct {
	issuer   OTPRequester
	verifier OTPVerifier
}

func NewAuthAgent(issuer OTPRequester, verifier OTPVerifier) *AuthAgent {
	return &AuthAgent{issuer: issuer, verifier: verifier}
}

func (a *AuthAgent) Name() string { return "auth" }
func (a *AuthAgent) Role() string { return "Authentication and OTP verification" }
func (a *AuthAgent) Actions() []string {
	return []string{"generate_otp", "verify_otp"}
}

func purposeOf(t Task) string {
	if p := t.Param("purpose"); p != "" {
		return p
	}
	return domain.PurposeLogin
}

// callerEmail binds the task to the email in the caller's token. A
// different email in the input is refused.
func callerEmail(ctx context.Context, t Task) (string, error) {
	caller := middleware.GetEmail(ctx)
	if caller == "" {
		return "", xerrors.ErrUnauthorized
	}
	if e := strings.TrimSpace(t.Param("email")); e != "" && !strings.EqualFold(e, caller) {
		return "", xerrors.ErrForbidden
	}
	return caller, nil
}

func (a *AuthAgent) Process(ctx context.Context, t Task) (any, error) {
	switch t.Action {
	case "generate_otp":
		email, err := callerEmail(ctx, t)
		if err != nil {
			return nil, err
		}
		exp, err := a.issuer.RequestOTP(ctx, email, purposeOf(t), t.Param("lang"))
		if err != nil {
			return nil, err
		}
		return map[string]any{"expires_at": exp}, nil
	case "verify_otp":
		email, err := callerEmail(ctx, t)
		if err != nil {
			return nil, err
		}
		if err := t.require("otp"); err != nil {
			return nil, err
		}
		return a.verifier.Verify(ctx, email, purposeOf(t), t.Param("otp"))
	default:
		return nil, unknownAction(a.Name(), t.Action)
	}
}
