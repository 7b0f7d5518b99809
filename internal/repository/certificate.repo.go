package repository

import (
	"context"
	"errors"

	"spark-service/internal/domain"
	xerrors "spark-service/pkg/xerrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CertificateRepo struct {
	db *pgxpool.Pool
}

func NewCertificateRepo(db *pgxpool.Pool) *CertificateRepo {
	return &CertificateRepo{db: db}
}

const certificateColumns = `id, user_id, request_id, type, name, holder_name, issue_date, valid_until,
	authority, blockchain_hash, ipfs_hash, digital_signature, created_at, updated_at`

func scanCertificate(row pgx.Row) (*domain.Certificate, error) {
	var c domain.Certificate
	err := row.Scan(&c.ID, &c.UserID, &c.RequestID, &c.Type, &c.Name, &c.HolderName, &c.IssueDate,
		&c.ValidUntil, &c.Authority, &c.BlockchainHash, &c.IPFSHash, &c.DigitalSignature,
		&c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CertificateRepo) Create(ctx context.Context, c *domain.Certificate) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO certificates (id, user_id, request_id, type, name, holder_name, issue_date, valid_until,
			authority, blockchain_hash, ipfs_hash, digital_signature)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at
	`, c.ID, c.UserID, c.RequestID, c.Type, c.Name, c.HolderName, c.IssueDate, c.ValidUntil,
		c.Authority, c.BlockchainHash, c.IPFSHash, c.DigitalSignature).Scan(&c.CreatedAt, &c.UpdatedAt)
	if xerrors.IsUniqueViolation(err) {
		return xerrors.ErrCertificateExists
	}
	return err
}

func (r *CertificateRepo) GetByID(ctx context.Context, id string) (*domain.Certificate, error) {
	return scanCertificate(r.db.QueryRow(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE id=$1`, id))
}

func (r *CertificateRepo) GetByHash(ctx context.Context, hash string) (*domain.Certificate, error) {
	return scanCertificate(r.db.QueryRow(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE LOWER(blockchain_hash)=LOWER($1)`, hash))
}

func (r *CertificateRepo) ListByUser(ctx context.Context, userID string) ([]domain.Certificate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+certificateColumns+` FROM certificates
		WHERE user_id=$1
		ORDER BY issue_date DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Certificate{}
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CertificateRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM certificates`).Scan(&n)
	return n, err
}
