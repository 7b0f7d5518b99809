package usecase

import (
	"context"
	"fmt"

	"spark-service/internal/domain"
	xerrors "spark-service/pkg/xerrors"

	"golang.org/x/sync/errgroup"
)

// Named read-only queries exposed to administrators.
const (
	QueryProfilesCount  = "profiles.count"
	QueryRequestsCount  = "service_requests.count"
	QueryCertsCount     = "certificates.count"
	QueryRecentRequests = "service_requests.recent"
	QuerySystemMetrics  = "metrics"
)

type MetricsUsecase struct {
	profiles ProfileRepository
	requests RequestRepository
	certs    CertificateRepository
}

func NewMetricsUsecase(profiles ProfileRepository, requests RequestRepository, certs CertificateRepository) *MetricsUsecase {
	return &MetricsUsecase{profiles: profiles, requests: requests, certs: certs}
}

// SystemMetrics runs the count queries concurrently.
func (uc *MetricsUsecase) SystemMetrics(ctx context.Context) (*domain.SystemMetrics, error) {
	m := &domain.SystemMetrics{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		m.TotalUsers, err = uc.profiles.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		m.TotalApplications, err = uc.requests.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		m.TotalCertificates, err = uc.certs.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		m.ServiceTypes, err = uc.requests.CountByServiceType(gctx)
		return err
	})
	g.Go(func() (err error) {
		m.ApplicationStatus, err = uc.requests.CountByStatus(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}
	if m.ServiceTypes == nil {
		m.ServiceTypes = []domain.KeyCount{}
	}
	if m.ApplicationStatus == nil {
		m.ApplicationStatus = []domain.KeyCount{}
	}
	return m, nil
}

func NamedQueries() []string {
	return []string{QueryProfilesCount, QueryRequestsCount, QueryCertsCount, QueryRecentRequests, QuerySystemMetrics}
}

// RunNamedQuery executes one of the whitelisted queries. Raw SQL is never accepted.
func (uc *MetricsUsecase) RunNamedQuery(ctx context.Context, name string, params map[string]any) (any, error) {
	switch name {
	case QueryProfilesCount:
		n, err := uc.profiles.Count(ctx)
		return map[string]int64{"count": n}, err
	case QueryRequestsCount:
		n, err := uc.requests.Count(ctx)
		return map[string]int64{"count": n}, err
	case QueryCertsCount:
		n, err := uc.certs.Count(ctx)
		return map[string]int64{"count": n}, err
	case QueryRecentRequests:
		limit := 20
		if v, ok := params["limit"].(float64); ok && v > 0 && v <= 100 {
			limit = int(v)
		}
		return uc.requests.ListRecent(ctx, limit)
	case QuerySystemMetrics:
		return uc.SystemMetrics(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown query %q", xerrors.ErrInvalidRequest, name)
	}
}
