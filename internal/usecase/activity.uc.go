package usecase

import (
	"context"
	"time"

	"spark-service/internal/domain"
	"spark-service/internal/events"
	"spark-service/pkg/id"

	"go.uber.org/zap"
)

const DefaultActivityLimit = 50

type ActivityUsecase struct {
	repo      ActivityRepository
	publisher events.Publisher
	logger    *zap.Logger
}

func NewActivityUsecase(repo ActivityRepository, publisher events.Publisher, logger *zap.Logger) *ActivityUsecase {
	return &ActivityUsecase{repo: repo, publisher: publisher, logger: logger}
}

// Log records a user action. Failures are logged and never surface.
func (uc *ActivityUsecase) Log(ctx context.Context, userID, action string, details map[string]any) {
	if userID == "" {
		return
	}
	a := &domain.UserActivity{
		ID:        id.GenerateUUID("act"),
		UserID:    userID,
		Action:    action,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
	// detached so a cancelled request still gets its audit row
	ctx = context.WithoutCancel(ctx)
	if err := uc.repo.Insert(ctx, a); err != nil {
		uc.logger.Warn("activity insert failed",
			zap.String("user_id", userID),
			zap.String("action", action),
			zap.Error(err))
	}
}

// Emit publishes a domain event in the background.
func (uc *ActivityUsecase) Emit(eventType, userID string, payload map[string]any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = uc.publisher.Publish(ctx, domain.Event{
			Type:    eventType,
			UserID:  userID,
			Payload: payload,
		})
	}()
}

func (uc *ActivityUsecase) List(ctx context.Context, userID string, limit int) ([]domain.UserActivity, error) {
	if limit <= 0 || limit > DefaultActivityLimit {
		limit = DefaultActivityLimit
	}
	acts, err := uc.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if acts == nil {
		acts = []domain.UserActivity{}
	}
	return acts, nil
}
