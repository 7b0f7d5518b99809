package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"spark-service/internal/domain"
	"spark-service/internal/events"
	"spark-service/pkg/id"
	xerrors "spark-service/pkg/xerrors"

	"go.uber.org/zap"
)

// SystemActor marks status changes made by automation.
const SystemActor = "system"

type RequestUsecase struct {
	requests  RequestRepository
	sf        *id.Snowflake
	activity  *ActivityUsecase
	workflows WorkflowTrigger
	notifier  Notifier
	loc       Localizer
	now       Clock
	logger    *zap.Logger
}

func NewRequestUsecase(
	requests RequestRepository,
	sf *id.Snowflake,
	activity *ActivityUsecase,
	workflows WorkflowTrigger,
	notifier Notifier,
	loc Localizer,
	logger *zap.Logger,
) *RequestUsecase {
	return &RequestUsecase{
		requests:  requests,
		sf:        sf,
		activity:  activity,
		workflows: workflows,
		notifier:  notifier,
		loc:       loc,
		now:       time.Now,
		logger:    logger,
	}
}

func (uc *RequestUsecase) ServiceTypes() []domain.ServiceType {
	return domain.ServiceTypes()
}

func (uc *RequestUsecase) Create(ctx context.Context, userID string, in domain.NewServiceRequest) (*domain.ServiceRequest, error) {
	st, ok := domain.LookupServiceType(in.ServiceType)
	if !ok {
		return nil, xerrors.ErrUnknownServiceType
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "New Application"
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "general"
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.IsValidPriority(priority) {
		return nil, xerrors.ErrInvalidPriority
	}
	for _, d := range in.Documents {
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("%w: document name required", xerrors.ErrInvalidInput)
		}
	}

	eta := uc.now().UTC().AddDate(0, 0, st.ProcessingDays())
	req := &domain.ServiceRequest{
		ID:                      uc.sf.Generate(),
		UserID:                  userID,
		ServiceType:             st.Code,
		Status:                  domain.StatusPending,
		Progress:                domain.ProgressFor(domain.StatusPending),
		Title:                   title,
		Description:             strings.TrimSpace(in.Description),
		Category:                category,
		Priority:                priority,
		Documents:               in.Documents,
		EstimatedCompletionDate: &eta,
	}
	if err := uc.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Derive()

	uc.activity.Log(ctx, userID, domain.ActivityApplicationCreate, map[string]any{
		"request_id": req.ID, "service_type": req.ServiceType,
	})
	uc.activity.Emit(events.TypeApplicationCreated, userID, map[string]any{
		"request_id": req.ID, "service_type": req.ServiceType, "priority": req.Priority,
	})
	uc.workflows.TriggerAsync("application-processing", map[string]any{
		"request_id":   req.ID,
		"user_id":      userID,
		"service_type": req.ServiceType,
		"priority":     req.Priority,
		"documents":    len(req.Documents),
	})
	return req, nil
}

func (uc *RequestUsecase) ListMine(ctx context.Context, userID string) ([]domain.ServiceRequest, error) {
	return uc.requests.ListByUser(ctx, userID)
}

// Get returns the request when the viewer owns it or is staff. Others get
// ErrNotFound so ids cannot be probed.
func (uc *RequestUsecase) Get(ctx context.Context, viewerID, viewerRole, id string) (*domain.ServiceRequest, error) {
	req, err := uc.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.UserID != viewerID && !domain.IsStaff(viewerRole) {
		return nil, xerrors.ErrNotFound
	}
	return req, nil
}

func (uc *RequestUsecase) Updates(ctx context.Context, viewerID, viewerRole, id string) ([]domain.ServiceRequestUpdate, error) {
	if _, err := uc.Get(ctx, viewerID, viewerRole, id); err != nil {
		return nil, err
	}
	ups, err := uc.requests.ListUpdates(ctx, id)
	if err != nil {
		return nil, err
	}
	if ups == nil {
		ups = []domain.ServiceRequestUpdate{}
	}
	return ups, nil
}

// UpdateStatus applies a transition from the status table and notifies the owner.
func (uc *RequestUsecase) UpdateStatus(ctx context.Context, actorID, id, status, message string) (*domain.ServiceRequest, error) {
	if !domain.IsKnownStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", xerrors.ErrInvalidInput, status)
	}
	current, err := uc.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(current.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", xerrors.ErrInvalidTransition, current.Status, status)
	}

	if message == "" {
		message = fmt.Sprintf("Status changed to %s", status)
	}
	upd := &domain.ServiceRequestUpdate{
		ID:        uc.sf.Generate(),
		RequestID: id,
		Status:    status,
		Message:   message,
		CreatedBy: actorID,
	}
	updated, err := uc.requests.UpdateStatus(ctx, id, current.Status, domain.ProgressFor(status), upd)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("request status changed",
		zap.String("request_id", id),
		zap.String("from", current.Status),
		zap.String("to", status),
		zap.String("actor", actorID))

	details := map[string]any{"request_id": id, "from": current.Status, "to": status, "actor": actorID}
	uc.activity.Log(ctx, updated.UserID, domain.ActivityStatusChanged, details)
	uc.activity.Emit(events.TypeApplicationStatus, updated.UserID, details)
	uc.notifier.Send(updated.UserID, domain.Notification{
		Type:  "application_status",
		Title: uc.loc.Message("en", "status_changed_title", nil),
		Body:  uc.loc.Message("en", "status_changed_body", map[string]any{"ID": id, "Status": status}),
		Data:  map[string]any{"request_id": id, "status": status, "progress": updated.Progress},
	})
	return updated, nil
}

// SystemUpdateStatus is used by automation. Transitions that no longer apply
// are skipped rather than failing the workflow.
func (uc *RequestUsecase) SystemUpdateStatus(ctx context.Context, id, status, message string) (bool, error) {
	_, err := uc.UpdateStatus(ctx, SystemActor, id, status, message)
	if err == nil {
		return true, nil
	}
	if xerrors.IsTransitionError(err) {
		return false, nil
	}
	return false, err
}

func (uc *RequestUsecase) Recent(ctx context.Context, limit int) ([]domain.ServiceRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return uc.requests.ListRecent(ctx, limit)
}
