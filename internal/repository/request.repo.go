package repository

import (
	"context"
	"errors"

	"spark-service/internal/domain"
	xerrors "spark-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RequestRepo struct {
	db *pgxpool.Pool
}

func NewRequestRepo(db *pgxpool.Pool) *RequestRepo {
	return &RequestRepo{db: db}
}

const requestColumns = `id, user_id, service_type, status, progress, title, description, category,
	priority, documents, estimated_completion_date, created_at, updated_at`

func scanRequest(row pgx.Row) (*domain.ServiceRequest, error) {
	var r domain.ServiceRequest
	err := row.Scan(&r.ID, &r.UserID, &r.ServiceType, &r.Status, &r.Progress, &r.Title, &r.Description,
		&r.Category, &r.Priority, &r.Documents, &r.EstimatedCompletionDate, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Derive()
	return &r, nil
}

func (r *RequestRepo) Create(ctx context.Context, req *domain.ServiceRequest) error {
	if req.Documents == nil {
		req.Documents = []domain.Document{}
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO service_requests (id, user_id, service_type, status, progress, title, description,
			category, priority, documents, estimated_completion_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at, updated_at
	`, req.ID, req.UserID, req.ServiceType, req.Status, req.Progress, req.Title, req.Description,
		req.Category, req.Priority, req.Documents, req.EstimatedCompletionDate).Scan(&req.CreatedAt, &req.UpdatedAt)
}

func (r *RequestRepo) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	return scanRequest(r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM service_requests WHERE id=$1`, id))
}

func (r *RequestRepo) ListByUser(ctx context.Context, userID string) ([]domain.ServiceRequest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+requestColumns+` FROM service_requests
		WHERE user_id=$1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func (r *RequestRepo) ListRecent(ctx context.Context, limit int) ([]domain.ServiceRequest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+requestColumns+` FROM service_requests
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectRequests(rows)
}

func collectRequests(rows pgx.Rows) ([]domain.ServiceRequest, error) {
	defer rows.Close()
	out := []domain.ServiceRequest{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

// UpdateStatus moves a request from `from` to the update's status and records
// the history row in one transaction. A concurrent change of status makes it
// fail with ErrInvalidTransition.
func (r *RequestRepo) UpdateStatus(ctx context.Context, id, from string, progress int, upd *domain.ServiceRequestUpdate) (*domain.ServiceRequest, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	updated, err := scanRequest(tx.QueryRow(ctx, `
		UPDATE service_requests
		SET status=$3, progress=$4, updated_at=NOW()
		WHERE id=$1 AND status=$2
		RETURNING `+requestColumns, id, from, upd.Status, progress))
	if errors.Is(err, xerrors.ErrNotFound) {
		return nil, xerrors.ErrInvalidTransition
	}
	if err != nil {
		return nil, err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO service_request_updates (id, request_id, status, message, created_by)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, upd.ID, id, upd.Status, upd.Message, upd.CreatedBy).Scan(&upd.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *RequestRepo) ListUpdates(ctx context.Context, requestID string) ([]domain.ServiceRequestUpdate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, request_id, status, message, created_by, created_at
		FROM service_request_updates
		WHERE request_id=$1
		ORDER BY created_at ASC`, requestID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ServiceRequestUpdate, error) {
		var u domain.ServiceRequestUpdate
		err := row.Scan(&u.ID, &u.RequestID, &u.Status, &u.Message, &u.CreatedBy, &u.CreatedAt)
		return u, err
	})
}

func (r *RequestRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM service_requests`).Scan(&n)
	return n, err
}

func (r *RequestRepo) CountByStatus(ctx context.Context) ([]domain.KeyCount, error) {
	return r.groupCount(ctx, `SELECT status, COUNT(*) FROM service_requests GROUP BY status ORDER BY status`)
}

func (r *RequestRepo) CountByServiceType(ctx context.Context) ([]domain.KeyCount, error) {
	return r.groupCount(ctx, `SELECT service_type, COUNT(*) FROM service_requests GROUP BY service_type ORDER BY service_type`)
}

func (r *RequestRepo) groupCount(ctx context.Context, sql string) ([]domain.KeyCount, error) {
	rows, err := r.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.KeyCount, error) {
		var kc domain.KeyCount
		err := row.Scan(&kc.Key, &kc.Count)
		return kc, err
	})
}
