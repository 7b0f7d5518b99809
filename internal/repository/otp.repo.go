package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"spark-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OTPRepo struct {
	db *pgxpool.Pool
}

func NewOTPRepo(db *pgxpool.Pool) *OTPRepo {
	return &OTPRepo{db: db}
}

func (r *OTPRepo) Create(ctx context.Context, o *domain.OTPRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO otp_records (id, email, otp, purpose, expires_at, verified, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)
	`, o.ID, strings.ToLower(o.Email), o.OTP, o.Purpose, o.ExpiresAt, o.Verified, o.IsActive, o.CreatedAt)
	return err
}

// VerifyAndInvalidate marks the matching active row verified. Expired rows
// are deactivated and reported as not verified.
func (r *OTPRepo) VerifyAndInvalidate(ctx context.Context, email, purpose, code string) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var id string
	var expiresAt time.Time
	err = tx.QueryRow(ctx, `
		SELECT id, expires_at FROM otp_records
		WHERE email=$1 AND purpose=$2 AND otp=$3 AND is_active=TRUE AND verified=FALSE
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`, strings.ToLower(email), purpose, code).Scan(&id, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if time.Now().After(expiresAt) {
		_, _ = tx.Exec(ctx, `UPDATE otp_records SET is_active=FALSE, updated_at=NOW() WHERE id=$1`, id)
		return false, tx.Commit(ctx)
	}

	if _, err = tx.Exec(ctx, `UPDATE otp_records SET verified=TRUE, is_active=FALSE, updated_at=NOW() WHERE id=$1`, id); err != nil {
		return false, err
	}
	// older codes for the same purpose are superseded
	if _, err = tx.Exec(ctx, `
		UPDATE otp_records SET is_active=FALSE, updated_at=NOW()
		WHERE email=$1 AND purpose=$2 AND is_active=TRUE`, strings.ToLower(email), purpose); err != nil {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}
