package repository

import (
	"context"

	"spark-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ActivityRepo struct {
	db *pgxpool.Pool
}

func NewActivityRepo(db *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{db: db}
}

func (r *ActivityRepo) Insert(ctx context.Context, a *domain.UserActivity) error {
	details := a.Details
	if details == nil {
		details = map[string]any{}
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO user_activities (id, user_id, action, details, timestamp)
		VALUES ($1,$2,$3,$4,$5)
	`, a.ID, a.UserID, a.Action, details, a.Timestamp)
	return err
}

func (r *ActivityRepo) ListByUser(ctx context.Context, userID string, limit int) ([]domain.UserActivity, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, action, details, timestamp
		FROM user_activities
		WHERE user_id=$1
		ORDER BY timestamp DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.UserActivity, error) {
		var a domain.UserActivity
		err := row.Scan(&a.ID, &a.UserID, &a.Action, &a.Details, &a.Timestamp)
		return a, err
	})
}
