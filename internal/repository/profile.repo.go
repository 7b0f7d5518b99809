package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"spark-service/internal/domain"
	xerrors "spark-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProfileRepo struct {
	db *pgxpool.Pool
}

func NewProfileRepo(db *pgxpool.Pool) *ProfileRepo {
	return &ProfileRepo{db: db}
}

const profileColumns = `id, email, first_name, last_name, phone, aadhaar_number, role,
	password_hash, email_verified, notification_prefs, created_at, updated_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Phone, &p.AadhaarNumber, &p.Role,
		&p.PasswordHash, &p.EmailVerified, &p.NotificationPrefs, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProfileRepo) Create(ctx context.Context, p *domain.Profile) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO profiles (id, email, first_name, last_name, phone, aadhaar_number, role,
			password_hash, email_verified, notification_prefs)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at
	`, p.ID, strings.ToLower(p.Email), p.FirstName, p.LastName, p.Phone, p.AadhaarNumber, p.Role,
		p.PasswordHash, p.EmailVerified, p.NotificationPrefs).Scan(&p.CreatedAt, &p.UpdatedAt)
	if xerrors.IsUniqueViolation(err) {
		return xerrors.ErrEmailAlreadyInUse
	}
	return err
}

func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return scanProfile(r.db.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id=$1`, id))
}

func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return scanProfile(r.db.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email=$1`, strings.ToLower(email)))
}

func (r *ProfileRepo) Update(ctx context.Context, id string, u domain.ProfileUpdate) (*domain.Profile, error) {
	return scanProfile(r.db.QueryRow(ctx, `
		UPDATE profiles SET
			first_name = COALESCE($2, first_name),
			last_name  = COALESCE($3, last_name),
			phone      = COALESCE($4, phone),
			updated_at = NOW()
		WHERE id=$1
		RETURNING `+profileColumns, id, u.FirstName, u.LastName, u.Phone))
}

func (r *ProfileRepo) UpdateNotificationPrefs(ctx context.Context, id string, prefs domain.NotificationPrefs) error {
	return r.execOne(ctx, `UPDATE profiles SET notification_prefs=$2, updated_at=NOW() WHERE id=$1`, id, prefs)
}

func (r *ProfileRepo) MarkEmailVerified(ctx context.Context, id string) error {
	return r.execOne(ctx, `UPDATE profiles SET email_verified=TRUE, updated_at=NOW() WHERE id=$1`, id)
}

func (r *ProfileRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.execOne(ctx, `UPDATE profiles SET password_hash=$2, updated_at=NOW() WHERE id=$1`, id, hash)
}

func (r *ProfileRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&n)
	return n, err
}

func (r *ProfileRepo) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *ProfileRepo) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrUserNotFound
	}
	return nil
}
