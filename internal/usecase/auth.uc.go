package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"spark-service/internal/domain"
	"spark-service/internal/events"
	"spark-service/pkg/cache"
	"spark-service/pkg/jwtutil"
	"spark-service/pkg/middleware"
	xerrors "spark-service/pkg/xerrors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	// bcrypt ignores input past 72 bytes
	MaxPasswordLength = 72
)

type OTPService interface {
	Issue(ctx context.Context, email, name, purpose, lang string) (time.Time, error)
	Verify(ctx context.Context, email, purpose, code string) (bool, error)
}

type AuthUsecase struct {
	profiles  ProfileRepository
	otp       OTPService
	tokens    *jwtutil.Generator
	cache     *cache.Cache
	activity  *ActivityUsecase
	workflows WorkflowTrigger
	logger    *zap.Logger
}

func NewAuthUsecase(
	profiles ProfileRepository,
	otp OTPService,
	tokens *jwtutil.Generator,
	cache *cache.Cache,
	activity *ActivityUsecase,
	workflows WorkflowTrigger,
	logger *zap.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		profiles:  profiles,
		otp:       otp,
		tokens:    tokens,
		cache:     cache,
		activity:  activity,
		workflows: workflows,
		logger:    logger,
	}
}

type RegisterInput struct {
	Email           string  `json:"email"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"confirm_password"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Phone           *string `json:"phone,omitempty"`
	AadhaarNumber   *string `json:"aadhaar_number,omitempty"`
	Lang            string  `json:"-"`
}

type RegisterResult struct {
	User         *domain.Profile `json:"user"`
	OTPSent      bool            `json:"otp_sent"`
	OTPExpiresAt *time.Time      `json:"otp_expires_at,omitempty"`
}

type LoginResult struct {
	OTPRequired bool      `json:"otp_required"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Session struct {
	Valid     bool            `json:"valid"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      *domain.Profile `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if email == "" {
		return xerrors.ErrEmailRequired
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return xerrors.ErrInvalidEmailFormat
	}
	return nil
}

func validatePassword(pw string) error {
	switch {
	case pw == "":
		return xerrors.ErrPasswordRequired
	case len(pw) < MinPasswordLength:
		return xerrors.ErrPasswordTooShort
	case len(pw) > MaxPasswordLength:
		return xerrors.ErrPasswordTooLong
	}
	return nil
}

func (in *RegisterInput) validate() error {
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)

	if err := validateEmail(in.Email); err != nil {
		return err
	}
	if err := validatePassword(in.Password); err != nil {
		return err
	}
	if in.ConfirmPassword != in.Password {
		return xerrors.ErrPasswordMismatch
	}
	if in.FirstName == "" {
		return xerrors.ErrNameRequired
	}
	return nil
}

func (uc *AuthUsecase) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	p := &domain.Profile{
		ID:                uuid.New().String(),
		Email:             in.Email,
		FirstName:         in.FirstName,
		LastName:          in.LastName,
		Phone:             in.Phone,
		AadhaarNumber:     in.AadhaarNumber,
		Role:              domain.RoleCitizen,
		PasswordHash:      string(hash),
		NotificationPrefs: domain.DefaultNotificationPrefs(),
	}
	if err := uc.profiles.Create(ctx, p); err != nil {
		if errors.Is(err, xerrors.ErrEmailAlreadyInUse) {
			return nil, xerrors.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create profile: %w", err)
	}

	uc.logger.Info("user registered", zap.String("user_id", p.ID))
	uc.activity.Log(ctx, p.ID, domain.ActivityRegister, map[string]any{"email": p.Email})
	uc.activity.Emit(events.TypeUserRegistered, p.ID, map[string]any{"email": p.Email})
	uc.workflows.TriggerAsync("user-registration", map[string]any{
		"user_id": p.ID,
		"email":   p.Email,
	})

	res := &RegisterResult{User: p}
	exp, err := uc.otp.Issue(ctx, p.Email, p.FirstName, domain.PurposeEmailVerification, in.Lang)
	if err != nil {
		// the account exists; the client can ask for a new code
		uc.logger.Warn("verification otp not sent", zap.String("user_id", p.ID), zap.Error(err))
	} else {
		res.OTPSent = true
		res.OTPExpiresAt = &exp
	}
	return res, nil
}

// Login checks the password and starts the OTP step. Unverified accounts
// get a fresh verification code and ErrEmailNotVerified.
func (uc *AuthUsecase) Login(ctx context.Context, email, password, lang string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, xerrors.ErrInvalidCredentials
	}

	p, err := uc.profiles.GetByEmail(ctx, email)
	if errors.Is(err, xerrors.ErrUserNotFound) {
		return nil, xerrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return nil, xerrors.ErrInvalidCredentials
	}

	if !p.EmailVerified {
		if _, err := uc.otp.Issue(ctx, p.Email, p.FirstName, domain.PurposeEmailVerification, lang); err != nil {
			uc.logger.Info("verification otp not resent", zap.String("user_id", p.ID), zap.Error(err))
		}
		return nil, xerrors.ErrEmailNotVerified
	}

	exp, err := uc.otp.Issue(ctx, p.Email, p.FirstName, domain.PurposeLogin, lang)
	if err != nil {
		return nil, err
	}
	return &LoginResult{OTPRequired: true, ExpiresAt: exp}, nil
}

// VerifyOTP completes login or email verification and returns a session token.
func (uc *AuthUsecase) VerifyOTP(ctx context.Context, email, code, purpose, device string) (*Session, error) {
	email = normalizeEmail(email)
	if purpose == "" {
		purpose = domain.PurposeLogin
	}
	if purpose != domain.PurposeLogin && purpose != domain.PurposeEmailVerification {
		return nil, xerrors.ErrInvalidPurpose
	}

	ok, err := uc.otp.Verify(ctx, email, purpose, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, xerrors.ErrInvalidOTP
	}

	p, err := uc.profiles.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if purpose == domain.PurposeEmailVerification && !p.EmailVerified {
		if err := uc.profiles.MarkEmailVerified(ctx, p.ID); err != nil {
			return nil, fmt.Errorf("mark verified: %w", err)
		}
		p.EmailVerified = true
		uc.activity.Log(ctx, p.ID, domain.ActivityEmailVerified, nil)
	}

	token, jti, err := uc.tokens.Generate(p.ID, p.Email, p.Role, device, false, nil)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	uc.activity.Log(ctx, p.ID, domain.ActivityLogin, map[string]any{"purpose": purpose, "jti": jti})
	uc.activity.Emit(events.TypeUserLoggedIn, p.ID, map[string]any{"device": device})

	return &Session{
		Valid:     true,
		Token:     token,
		ExpiresAt: time.Now().Add(uc.tokens.Ttl).UTC(),
		User:      p,
	}, nil
}

// RequestOTP reissues a code for an existing account.
func (uc *AuthUsecase) RequestOTP(ctx context.Context, email, purpose, lang string) (time.Time, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return time.Time{}, err
	}
	if purpose == "" {
		purpose = domain.PurposeLogin
	}
	p, err := uc.profiles.GetByEmail(ctx, email)
	if err != nil {
		return time.Time{}, err
	}
	return uc.otp.Issue(ctx, p.Email, p.FirstName, purpose, lang)
}

func (uc *AuthUsecase) CurrentUser(ctx context.Context, userID string) (*domain.Profile, error) {
	return uc.profiles.GetByID(ctx, userID)
}

// Logout denylists the token id until the token would have expired anyway.
func (uc *AuthUsecase) Logout(ctx context.Context, userID, jti string, expiresAt time.Time) error {
	if jti == "" {
		return xerrors.ErrInvalidToken
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := uc.cache.Set(ctx, middleware.RevokedNamespace, jti, "1", ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	uc.activity.Log(ctx, userID, domain.ActivityLogout, nil)
	return nil
}

func (uc *AuthUsecase) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	p, err := uc.profiles.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(oldPassword)) != nil {
		return xerrors.ErrInvalidOldPassword
	}
	return uc.setPassword(ctx, p.ID, newPassword)
}

// ResetPassword sets a new password after a password_reset OTP.
func (uc *AuthUsecase) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	ok, err := uc.otp.Verify(ctx, email, domain.PurposePasswordReset, code)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.ErrInvalidOTP
	}
	p, err := uc.profiles.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return uc.setPassword(ctx, p.ID, newPassword)
}

func (uc *AuthUsecase) setPassword(ctx context.Context, userID, pw string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := uc.profiles.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return err
	}
	uc.invalidateTokens(ctx, userID)
	uc.activity.Log(ctx, userID, domain.ActivityPasswordChanged, nil)
	return nil
}

// invalidateTokens rejects every token for userID issued before now. The
// marker lives as long as a token can.
func (uc *AuthUsecase) invalidateTokens(ctx context.Context, userID string) {
	cutoff := strconv.FormatInt(time.Now().Unix(), 10)
	if err := uc.cache.Set(ctx, middleware.TokensValidAfterNamespace, userID, cutoff, uc.tokens.Ttl); err != nil {
		uc.logger.Error("failed to invalidate tokens", zap.String("user_id", userID), zap.Error(err))
	}
}
