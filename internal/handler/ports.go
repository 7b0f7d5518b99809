package handler

import (
	"context"
	"time"

	"spark-service/internal/agents"
	"spark-service/internal/automation"
	"spark-service/internal/domain"
	"spark-service/internal/health"
	"spark-service/internal/i18n"
	"spark-service/internal/usecase"
)

type AuthService interface {
	Register(ctx context.Context, in usecase.RegisterInput) (*usecase.RegisterResult, error)
	Login(ctx context.Context, email, password, lang string) (*usecase.LoginResult, error)
	VerifyOTP(ctx context.Context, email, code, purpose, device string) (*usecase.Session, error)
	RequestOTP(ctx context.Context, email, purpose, lang string) (time.Time, error)
	CurrentUser(ctx context.Context, userID string) (*domain.Profile, error)
	Logout(ctx context.Context, userID, jti string, expiresAt time.Time) error
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

type ProfileService interface {
	Get(ctx context.Context, userID string) (*domain.Profile, error)
	Update(ctx context.Context, userID string, u domain.ProfileUpdate) (*domain.Profile, error)
	UpdateNotificationPrefs(ctx context.Context, userID string, prefs domain.NotificationPrefs) (domain.NotificationPrefs, error)
	SendTestNotification(ctx context.Context, userID, lang string) (int, error)
}

type RequestService interface {
	ServiceTypes() []domain.ServiceType
	Create(ctx context.Context, userID string, in domain.NewServiceRequest) (*domain.ServiceRequest, error)
	ListMine(ctx context.Context, userID string) ([]domain.ServiceRequest, error)
	Get(ctx context.Context, viewerID, viewerRole, id string) (*domain.ServiceRequest, error)
	Updates(ctx context.Context, viewerID, viewerRole, id string) ([]domain.ServiceRequestUpdate, error)
	UpdateStatus(ctx context.Context, actorID, id, status, message string) (*domain.ServiceRequest, error)
}

type CertificateService interface {
	Issue(ctx context.Context, actorID, requestID string) (*domain.Certificate, error)
	ListMine(ctx context.Context, userID string) ([]domain.Certificate, error)
	Get(ctx context.Context, viewerID, viewerRole, id string) (*domain.Certificate, error)
	Download(ctx context.Context, viewerID, viewerRole, id string) (*domain.SignedCertificate, error)
	Verify(ctx context.Context, hash string) (*domain.CertificateVerification, error)
}

type ActivityService interface {
	List(ctx context.Context, userID string, limit int) ([]domain.UserActivity, error)
}

type MetricsService interface {
	SystemMetrics(ctx context.Context) (*domain.SystemMetrics, error)
	RunNamedQuery(ctx context.Context, name string, params map[string]any) (any, error)
}

type AgentRunner interface {
	List() []agents.Info
	Execute(ctx context.Context, agentName string, task agents.Task) (any, error)
	RunWorkflow(ctx context.Context, steps []agents.Step) ([]agents.StepResult, error)
}

type WorkflowEngine interface {
	List() []automation.Workflow
	Get(id string) (automation.Workflow, error)
	Pause(id string) (automation.Workflow, error)
	Resume(id string) (automation.Workflow, error)
	Trigger(ctx context.Context, id string, data map[string]any) (*automation.Job, error)
	Jobs(limit int) []automation.Job
	Stats() automation.Stats
}

type HealthChecker interface {
	Check(ctx context.Context) health.Report
	Database(ctx context.Context) health.Probe
}

// Broadcaster pushes a notification to every connected client.
type Broadcaster interface {
	Broadcast(n domain.Notification) int
}

type Languages interface {
	Languages() []i18n.Language
	Normalize(lang string) string
}
