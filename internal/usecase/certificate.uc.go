package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"spark-service/internal/domain"
	"spark-service/internal/events"
	"spark-service/internal/ledger"
	"spark-service/internal/mailer"
	"spark-service/pkg/id"
	xerrors "spark-service/pkg/xerrors"

	"go.uber.org/zap"
)

type StatusChanger interface {
	UpdateStatus(ctx context.Context, actorID, id, status, message string) (*domain.ServiceRequest, error)
}

type CertificateUsecase struct {
	certs    CertificateRepository
	requests RequestRepository
	profiles ProfileRepository
	status   StatusChanger
	ledger   Anchorer
	mailer   CertificateMailer
	activity *ActivityUsecase
	notifier Notifier
	now      Clock
	logger   *zap.Logger
}

func NewCertificateUsecase(
	certs CertificateRepository,
	requests RequestRepository,
	profiles ProfileRepository,
	status StatusChanger,
	anchorer Anchorer,
	mailer CertificateMailer,
	activity *ActivityUsecase,
	notifier Notifier,
	logger *zap.Logger,
) *CertificateUsecase {
	return &CertificateUsecase{
		certs:    certs,
		requests: requests,
		profiles: profiles,
		status:   status,
		ledger:   anchorer,
		mailer:   mailer,
		activity: activity,
		notifier: notifier,
		now:      time.Now,
		logger:   logger,
	}
}

// Issue creates the certificate for an approved or completed request,
// anchors it on the ledger and completes the request.
func (uc *CertificateUsecase) Issue(ctx context.Context, actorID, requestID string) (*domain.Certificate, error) {
	req, err := uc.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.StatusApproved && req.Status != domain.StatusCompleted {
		return nil, xerrors.ErrRequestNotIssuable
	}
	st, ok := domain.LookupServiceType(req.ServiceType)
	if !ok {
		return nil, xerrors.ErrUnknownServiceType
	}
	owner, err := uc.profiles.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load owner: %w", err)
	}

	ipfs, err := ledger.IPFSHash()
	if err != nil {
		return nil, err
	}
	issued := uc.now().UTC()
	cert := &domain.Certificate{
		ID:         id.GenerateTransactionID("CERT"),
		UserID:     req.UserID,
		RequestID:  &req.ID,
		Type:       st.Code,
		Name:       st.Name,
		HolderName: owner.FullName(),
		IssueDate:  issued,
		ValidUntil: issued.AddDate(st.ValidYears, 0, 0),
		Authority:  st.Authority,
		IPFSHash:   ipfs,
	}
	cert.BlockchainHash, cert.DigitalSignature, err = uc.ledger.Anchor(cert.Payload())
	if err != nil {
		return nil, fmt.Errorf("anchor certificate: %w", err)
	}

	if err := uc.certs.Create(ctx, cert); err != nil {
		return nil, err
	}

	if req.Status == domain.StatusApproved {
		if _, err := uc.status.UpdateStatus(ctx, actorID, req.ID, domain.StatusCompleted,
			"Certificate "+cert.ID+" issued"); err != nil {
			uc.logger.Warn("request not completed after issuance",
				zap.String("request_id", req.ID), zap.Error(err))
		}
	}

	uc.logger.Info("certificate issued",
		zap.String("certificate_id", cert.ID),
		zap.String("request_id", req.ID),
		zap.String("hash", cert.BlockchainHash))

	details := map[string]any{"certificate_id": cert.ID, "request_id": req.ID, "type": cert.Type}
	uc.activity.Log(ctx, cert.UserID, domain.ActivityCertificateIssued, details)
	uc.activity.Emit(events.TypeCertificateIssued, cert.UserID, details)
	uc.notifier.Send(cert.UserID, domain.Notification{
		Type:  "certificate_issued",
		Title: cert.Name + " issued",
		Body:  "Your certificate is ready to download.",
		Data:  details,
	})

	mail := mailer.CertificateEmail{
		To: owner.Email, Name: owner.FullName(), CertificateName: cert.Name,
		CertificateID: cert.ID, Hash: cert.BlockchainHash,
	}
	if owner.NotificationPrefs.Email {
		go func() {
			mctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := uc.mailer.SendCertificateReady(mctx, mail); err != nil {
				uc.logger.Warn("certificate email failed", zap.String("certificate_id", cert.ID), zap.Error(err))
			}
		}()
	}
	return cert, nil
}

func (uc *CertificateUsecase) ListMine(ctx context.Context, userID string) ([]domain.Certificate, error) {
	return uc.certs.ListByUser(ctx, userID)
}

func (uc *CertificateUsecase) Get(ctx context.Context, viewerID, viewerRole, id string) (*domain.Certificate, error) {
	c, err := uc.certs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != viewerID && !domain.IsStaff(viewerRole) {
		return nil, xerrors.ErrNotFound
	}
	return c, nil
}

func (uc *CertificateUsecase) Download(ctx context.Context, viewerID, viewerRole, id string) (*domain.SignedCertificate, error) {
	c, err := uc.Get(ctx, viewerID, viewerRole, id)
	if err != nil {
		return nil, err
	}
	return &domain.SignedCertificate{
		Certificate: c.Payload(),
		Hash:        c.BlockchainHash,
		Signature:   c.DigitalSignature,
		Algorithm:   uc.ledger.Algorithm(),
		GeneratedAt: uc.now().UTC(),
	}, nil
}

// Verify looks a certificate up by ledger hash, recomputes the hash from the
// stored fields and checks the signature. A certificate is valid when it is
// untampered and not expired.
func (uc *CertificateUsecase) Verify(ctx context.Context, hash string) (*domain.CertificateVerification, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, xerrors.ErrHashRequired
	}
	if !ledger.IsHash(hash) {
		return &domain.CertificateVerification{}, nil
	}

	c, err := uc.certs.GetByHash(ctx, hash)
	if errors.Is(err, xerrors.ErrNotFound) {
		return &domain.CertificateVerification{}, nil
	}
	if err != nil {
		return nil, err
	}

	res := &domain.CertificateVerification{Certificate: c}
	recomputed, err := ledger.Hash(c.Payload())
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(recomputed, c.BlockchainHash) || uc.ledger.Verify(c.BlockchainHash, c.DigitalSignature) != nil {
		res.Tampered = true
	}
	res.Expired = c.IsExpired(uc.now())
	res.Valid = !res.Tampered && !res.Expired
	return res, nil
}
