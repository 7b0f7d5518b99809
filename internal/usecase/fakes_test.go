package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"spark-service/internal/domain"
	"spark-service/internal/events"
	"spark-service/internal/i18n"
	"spark-service/internal/mailer"
	"spark-service/pkg/cache"
	"spark-service/pkg/id"
	xerrors "spark-service/pkg/xerrors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memProfiles struct {
	mu   sync.Mutex
	byID map[string]*domain.Profile
}

func newMemProfiles() *memProfiles {
	return &memProfiles{byID: map[string]*domain.Profile{}}
}

func (m *memProfiles) Create(_ context.Context, p *domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Email == strings.ToLower(p.Email) {
			return xerrors.ErrEmailAlreadyInUse
		}
	}
	p.Email = strings.ToLower(p.Email)
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	cp := *p
	m.byID[p.ID] = &cp
	return nil
}

func (m *memProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, xerrors.ErrUserNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Email == strings.ToLower(email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, xerrors.ErrUserNotFound
}

func (m *memProfiles) Update(_ context.Context, id string, u domain.ProfileUpdate) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, xerrors.ErrUserNotFound
	}
	if u.FirstName != nil {
		p.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		p.LastName = *u.LastName
	}
	if u.Phone != nil {
		p.Phone = u.Phone
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) mutate(id string, fn func(p *domain.Profile)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return xerrors.ErrUserNotFound
	}
	fn(p)
	return nil
}

func (m *memProfiles) UpdateNotificationPrefs(_ context.Context, id string, prefs domain.NotificationPrefs) error {
	return m.mutate(id, func(p *domain.Profile) { p.NotificationPrefs = prefs })
}

func (m *memProfiles) MarkEmailVerified(_ context.Context, id string) error {
	return m.mutate(id, func(p *domain.Profile) { p.EmailVerified = true })
}

func (m *memProfiles) UpdatePassword(_ context.Context, id, hash string) error {
	return m.mutate(id, func(p *domain.Profile) { p.PasswordHash = hash })
}

func (m *memProfiles) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byID)), nil
}

type memRequests struct {
	mu      sync.Mutex
	byID    map[string]*domain.ServiceRequest
	updates map[string][]domain.ServiceRequestUpdate
}

func newMemRequests() *memRequests {
	return &memRequests{byID: map[string]*domain.ServiceRequest{}, updates: map[string][]domain.ServiceRequestUpdate{}}
}

func (m *memRequests) Create(_ context.Context, r *domain.ServiceRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.CreatedAt = time.Now().Add(time.Duration(len(m.byID)) * time.Millisecond)
	r.UpdatedAt = r.CreatedAt
	cp := *r
	m.byID[r.ID] = &cp
	return nil
}

func (m *memRequests) GetByID(_ context.Context, id string) (*domain.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *r
	cp.Derive()
	return &cp, nil
}

func (m *memRequests) list(filter func(*domain.ServiceRequest) bool) []domain.ServiceRequest {
	out := []domain.ServiceRequest{}
	for _, r := range m.byID {
		if filter(r) {
			cp := *r
			cp.Derive()
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memRequests) ListByUser(_ context.Context, userID string) ([]domain.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.list(func(r *domain.ServiceRequest) bool { return r.UserID == userID }), nil
}

func (m *memRequests) ListRecent(_ context.Context, limit int) ([]domain.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.list(func(*domain.ServiceRequest) bool { return true })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRequests) UpdateStatus(_ context.Context, id, from string, progress int, upd *domain.ServiceRequestUpdate) (*domain.ServiceRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok || r.Status != from {
		return nil, xerrors.ErrInvalidTransition
	}
	r.Status = upd.Status
	r.Progress = progress
	r.UpdatedAt = time.Now()
	upd.CreatedAt = r.UpdatedAt
	m.updates[id] = append(m.updates[id], *upd)
	cp := *r
	cp.Derive()
	return &cp, nil
}

func (m *memRequests) ListUpdates(_ context.Context, id string) ([]domain.ServiceRequestUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ServiceRequestUpdate(nil), m.updates[id]...), nil
}

func (m *memRequests) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byID)), nil
}

func (m *memRequests) group(key func(*domain.ServiceRequest) string) []domain.KeyCount {
	counts := map[string]int64{}
	for _, r := range m.byID {
		counts[key(r)]++
	}
	out := []domain.KeyCount{}
	for k, v := range counts {
		out = append(out, domain.KeyCount{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (m *memRequests) CountByStatus(context.Context) ([]domain.KeyCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.group(func(r *domain.ServiceRequest) string { return r.Status }), nil
}

func (m *memRequests) CountByServiceType(context.Context) ([]domain.KeyCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.group(func(r *domain.ServiceRequest) string { return r.ServiceType }), nil
}

type memCerts struct {
	mu   sync.Mutex
	byID map[string]*domain.Certificate
}

func newMemCerts() *memCerts {
	return &memCerts{byID: map[string]*domain.Certificate{}}
}

func (m *memCerts) Create(_ context.Context, c *domain.Certificate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if c.RequestID != nil && existing.RequestID != nil && *existing.RequestID == *c.RequestID {
			return xerrors.ErrCertificateExists
		}
	}
	cp := *c
	m.byID[c.ID] = &cp
	return nil
}

func (m *memCerts) GetByID(_ context.Context, id string) (*domain.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, xerrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCerts) GetByHash(_ context.Context, hash string) (*domain.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		if strings.EqualFold(c.BlockchainHash, hash) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, xerrors.ErrNotFound
}

func (m *memCerts) ListByUser(_ context.Context, userID string) ([]domain.Certificate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Certificate{}
	for _, c := range m.byID {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memCerts) Count(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.byID)), nil
}

type memOTPRepo struct {
	mu   sync.Mutex
	rows []domain.OTPRecord
}

func (m *memOTPRepo) Create(_ context.Context, o *domain.OTPRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *o)
	return nil
}

func (m *memOTPRepo) VerifyAndInvalidate(_ context.Context, email, purpose, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		r := &m.rows[i]
		if r.Email == email && r.Purpose == purpose && r.OTP == code && r.IsActive {
			r.Verified, r.IsActive = true, false
			return true, nil
		}
	}
	return false, nil
}

type memActivities struct {
	mu   sync.Mutex
	rows []domain.UserActivity
}

func (m *memActivities) Insert(_ context.Context, a *domain.UserActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, *a)
	return nil
}

func (m *memActivities) ListByUser(_ context.Context, userID string, limit int) ([]domain.UserActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.UserActivity
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].UserID == userID {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

func (m *memActivities) actions(userID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, r.Action)
		}
	}
	return out
}

type captureMailer struct {
	mu    sync.Mutex
	otps  []mailer.OTPEmail
	certs []mailer.CertificateEmail
}

func (c *captureMailer) SendOTP(_ context.Context, e mailer.OTPEmail) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.otps = append(c.otps, e)
	return nil
}

func (c *captureMailer) SendCertificateReady(_ context.Context, e mailer.CertificateEmail) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.certs = append(c.certs, e)
	return nil
}

func (c *captureMailer) lastOTP(t *testing.T) mailer.OTPEmail {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.otps)
	return c.otps[len(c.otps)-1]
}

func (c *captureMailer) certCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.certs)
}

type captureNotifier struct {
	mu   sync.Mutex
	sent map[string][]domain.Notification
}

func (c *captureNotifier) Send(userID string, n domain.Notification) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent == nil {
		c.sent = map[string][]domain.Notification{}
	}
	c.sent[userID] = append(c.sent[userID], n)
	return 1
}

func (c *captureNotifier) count(userID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent[userID])
}

type triggerCall struct {
	workflow string
	data     map[string]any
}

type captureTrigger struct {
	mu    sync.Mutex
	calls []triggerCall
}

func (c *captureTrigger) TriggerAsync(workflowID string, data map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, triggerCall{workflowID, data})
}

func (c *captureTrigger) workflows() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, call := range c.calls {
		out = append(out, call.workflow)
	}
	return out
}

type allowAll struct{}

func (allowAll) CanRequest(context.Context, string, string) error { return nil }

type env struct {
	profiles   *memProfiles
	requests   *memRequests
	certs      *memCerts
	otpRepo    *memOTPRepo
	activities *memActivities
	mail       *captureMailer
	notifier   *captureNotifier
	trigger    *captureTrigger
	cache      *cache.Cache
	redis      *miniredis.Miniredis
	sf         *id.Snowflake
	activity   *ActivityUsecase
	otp        *OTPUsecase
	loc        *i18n.Translator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.FromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	sf, err := id.NewSnowflake(1)
	require.NoError(t, err)
	loc, err := i18n.New()
	require.NoError(t, err)

	e := &env{
		profiles:   newMemProfiles(),
		requests:   newMemRequests(),
		certs:      newMemCerts(),
		otpRepo:    &memOTPRepo{},
		activities: &memActivities{},
		mail:       &captureMailer{},
		notifier:   &captureNotifier{},
		trigger:    &captureTrigger{},
		cache:      c,
		redis:      mr,
		sf:         sf,
		loc:        loc,
	}
	e.activity = NewActivityUsecase(e.activities, events.NoopPublisher{}, zap.NewNop())
	e.otp = NewOTPUsecase(e.otpRepo, allowAll{}, c, sf, e.mail, 10*time.Minute, zap.NewNop())
	return e
}

func (e *env) seedProfile(t *testing.T, email, role string, verified bool) *domain.Profile {
	t.Helper()
	p := &domain.Profile{
		ID: "u-" + strings.Split(email, "@")[0], Email: email, FirstName: "Test", LastName: "User",
		Role: role, EmailVerified: verified, NotificationPrefs: domain.DefaultNotificationPrefs(),
	}
	require.NoError(t, e.profiles.Create(context.Background(), p))
	return p
}
