package usecase

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"spark-service/internal/domain"
	"spark-service/internal/mailer"
	"spark-service/pkg/cache"
	"spark-service/pkg/id"
	xerrors "spark-service/pkg/xerrors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	OTPLength = 6
	// OTPMaxAttempts wrong guesses burn the live code.
	OTPMaxAttempts = 5

	otpNamespace         = "otp"
	otpAttemptsNamespace = "otp_attempts"
)

var (
	otpIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spark_otp_issued_total",
		Help: "One-time passwords issued, by purpose.",
	}, []string{"purpose"})
	otpVerified = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "spark_otp_verifications_total",
		Help: "One-time password checks, by purpose and outcome.",
	}, []string{"purpose", "result"})
)

type OTPUsecase struct {
	repo    OTPRepository
	limiter RateLimiter
	cache   *cache.Cache
	sf      *id.Snowflake
	mailer  OTPMailer
	ttl     time.Duration
	logger  *zap.Logger
}

func NewOTPUsecase(
	repo OTPRepository,
	limiter RateLimiter,
	cache *cache.Cache,
	sf *id.Snowflake,
	mailer OTPMailer,
	ttl time.Duration,
	logger *zap.Logger,
) *OTPUsecase {
	return &OTPUsecase{repo: repo, limiter: limiter, cache: cache, sf: sf, mailer: mailer, ttl: ttl, logger: logger}
}

func otpKey(email, purpose string) string {
	return strings.ToLower(strings.TrimSpace(email)) + ":" + purpose
}

// Issue generates a code, stores the live copy in redis, writes an audit row
// in the background and emails the code. The code itself is never returned.
func (uc *OTPUsecase) Issue(ctx context.Context, email, name, purpose, lang string) (time.Time, error) {
	if !domain.IsValidOTPPurpose(purpose) {
		return time.Time{}, xerrors.ErrInvalidPurpose
	}
	if err := uc.limiter.CanRequest(ctx, email, purpose); err != nil {
		return time.Time{}, err
	}

	code, err := randomCode(OTPLength)
	if err != nil {
		return time.Time{}, err
	}
	now := time.Now().UTC()
	rec := &domain.OTPRecord{
		ID:        uc.sf.Generate(),
		Email:     strings.ToLower(email),
		OTP:       code,
		Purpose:   purpose,
		ExpiresAt: now.Add(uc.ttl),
		IsActive:  true,
		CreatedAt: now,
	}

	key := otpKey(email, purpose)
	if err := uc.cache.Set(ctx, otpNamespace, key, code, uc.ttl); err != nil {
		return time.Time{}, fmt.Errorf("store otp: %w", err)
	}
	if err := uc.cache.Delete(ctx, otpAttemptsNamespace, key); err != nil {
		uc.logger.Warn("otp attempt reset failed", zap.Error(err))
	}

	go func() {
		if err := uc.repo.Create(context.Background(), rec); err != nil {
			uc.logger.Warn("otp audit insert failed", zap.String("purpose", purpose), zap.Error(err))
		}
	}()

	if err := uc.mailer.SendOTP(ctx, mailer.OTPEmail{
		To: email, Name: name, Purpose: purpose, Code: code, TTL: uc.ttl, Lang: lang,
	}); err != nil {
		uc.logger.Error("otp email failed", zap.String("purpose", purpose), zap.Error(err))
		return time.Time{}, fmt.Errorf("deliver otp: %w", err)
	}

	otpIssued.WithLabelValues(purpose).Inc()
	uc.logger.Info("otp issued", zap.String("purpose", purpose), zap.Time("expires_at", rec.ExpiresAt))
	return rec.ExpiresAt, nil
}

// Verify checks code against the live copy. A match consumes the code and
// OTPMaxAttempts misses burn it. Unknown or expired codes report false with
// a nil error.
func (uc *OTPUsecase) Verify(ctx context.Context, email, purpose, code string) (bool, error) {
	key := otpKey(email, purpose)

	val, err := uc.cache.Get(ctx, otpNamespace, key)
	if errors.Is(err, redis.Nil) {
		otpVerified.WithLabelValues(purpose, "expired").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load otp: %w", err)
	}

	if len(code) != OTPLength || subtle.ConstantTimeCompare([]byte(val), []byte(code)) != 1 {
		return false, uc.recordMiss(ctx, key, purpose)
	}

	uc.burn(ctx, key)

	go func() {
		if _, err := uc.repo.VerifyAndInvalidate(context.Background(), email, purpose, code); err != nil {
			uc.logger.Warn("otp audit update failed", zap.Error(err))
		}
	}()

	otpVerified.WithLabelValues(purpose, "ok").Inc()
	return true, nil
}

func (uc *OTPUsecase) recordMiss(ctx context.Context, key, purpose string) error {
	n, err := uc.cache.IncrWithExpire(ctx, otpAttemptsNamespace, key, uc.ttl)
	if err != nil {
		// without a counter the code cannot be protected against guessing
		uc.burn(ctx, key)
		return fmt.Errorf("count otp attempt: %w", err)
	}
	if n >= OTPMaxAttempts {
		uc.burn(ctx, key)
		otpVerified.WithLabelValues(purpose, "burned").Inc()
		uc.logger.Warn("otp burned after repeated misses", zap.String("purpose", purpose), zap.Int64("attempts", n))
		return nil
	}
	otpVerified.WithLabelValues(purpose, "mismatch").Inc()
	return nil
}

// burn removes the live code and its attempt counter.
func (uc *OTPUsecase) burn(ctx context.Context, key string) {
	if err := uc.cache.Delete(ctx, otpNamespace, key); err != nil {
		uc.logger.Warn("otp delete failed", zap.Error(err))
	}
	if err := uc.cache.Delete(ctx, otpAttemptsNamespace, key); err != nil {
		uc.logger.Warn("otp attempt reset failed", zap.Error(err))
	}
}

func randomCode(digits int) (string, error) {
	max := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
