package usecase

import (
	"context"
	"time"

	"spark-service/internal/domain"
	"spark-service/internal/mailer"
)

type ProfileRepository interface {
	Create(ctx context.Context, p *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	Update(ctx context.Context, id string, u domain.ProfileUpdate) (*domain.Profile, error)
	UpdateNotificationPrefs(ctx context.Context, id string, prefs domain.NotificationPrefs) error
	MarkEmailVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hash string) error
	Count(ctx context.Context) (int64, error)
}

type RequestRepository interface {
	Create(ctx context.Context, req *domain.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	ListByUser(ctx context.Context, userID string) ([]domain.ServiceRequest, error)
	ListRecent(ctx context.Context, limit int) ([]domain.ServiceRequest, error)
	UpdateStatus(ctx context.Context, id, from string, progress int, upd *domain.ServiceRequestUpdate) (*domain.ServiceRequest, error)
	ListUpdates(ctx context.Context, requestID string) ([]domain.ServiceRequestUpdate, error)
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) ([]domain.KeyCount, error)
	CountByServiceType(ctx context.Context) ([]domain.KeyCount, error)
}

type CertificateRepository interface {
	Create(ctx context.Context, c *domain.Certificate) error
	GetByID(ctx context.Context, id string) (*domain.Certificate, error)
	GetByHash(ctx context.Context, hash string) (*domain.Certificate, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Certificate, error)
	Count(ctx context.Context) (int64, error)
}

type OTPRepository interface {
	Create(ctx context.Context, o *domain.OTPRecord) error
	VerifyAndInvalidate(ctx context.Context, email, purpose, code string) (bool, error)
}

type ActivityRepository interface {
	Insert(ctx context.Context, a *domain.UserActivity) error
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.UserActivity, error)
}

type RateLimiter interface {
	CanRequest(ctx context.Context, subject, purpose string) error
}

type OTPMailer interface {
	SendOTP(ctx context.Context, e mailer.OTPEmail) error
}

type CertificateMailer interface {
	SendCertificateReady(ctx context.Context, e mailer.CertificateEmail) error
}

// Notifier pushes realtime notifications to a user's open sessions.
type Notifier interface {
	Send(userID string, n domain.Notification) int
}

// WorkflowTrigger starts an automation workflow without waiting for it.
type WorkflowTrigger interface {
	TriggerAsync(workflowID string, data map[string]any)
}

type Localizer interface {
	Message(lang, id string, data map[string]any) string
}

type Anchorer interface {
	Anchor(v any) (hash, signature string, err error)
	Verify(hash, signature string) error
	Algorithm() string
}

// Clock is swapped in tests.
type Clock func() time.Time
