package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"spark-service/internal/agents"
	"spark-service/internal/automation"
	"spark-service/internal/domain"
	"spark-service/internal/health"
	"spark-service/internal/i18n"
	"spark-service/internal/rate"
	"spark-service/internal/usecase"
	"spark-service/pkg/jwtutil"
	"spark-service/pkg/middleware"
	"spark-service/pkg/response"
	xerrors "spark-service/pkg/xerrors"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuth struct {
	AuthService
	loginErr  error
	verifyErr error
	logoutJTI string
}

func (f *fakeAuth) Login(ctx context.Context, email, password, lang string) (*usecase.LoginResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &usecase.LoginResult{OTPRequired: true, ExpiresAt: time.Now().Add(10 * time.Minute)}, nil
}

func (f *fakeAuth) VerifyOTP(ctx context.Context, email, code, purpose, device string) (*usecase.Session, error) {
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	return &usecase.Session{Valid: true, Token: "tok-" + code, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAuth) RequestOTP(ctx context.Context, email, purpose, lang string) (time.Time, error) {
	return time.Time{}, &rate.LimitError{Err: xerrors.ErrOTPCooldown, RetryAfter: 42 * time.Second}
}

func (f *fakeAuth) Logout(ctx context.Context, userID, jti string, expiresAt time.Time) error {
	f.logoutJTI = jti
	return nil
}

type fakeRequests struct {
	RequestService
	created domain.NewServiceRequest
}

func (f *fakeRequests) Create(ctx context.Context, userID string, in domain.NewServiceRequest) (*domain.ServiceRequest, error) {
	f.created = in
	return &domain.ServiceRequest{ID: "req-1", UserID: userID, ServiceType: in.ServiceType, Status: domain.StatusPending}, nil
}

func (f *fakeRequests) UpdateStatus(ctx context.Context, actorID, id, status, message string) (*domain.ServiceRequest, error) {
	return nil, xerrors.ErrInvalidTransition
}

func (f *fakeRequests) Get(ctx context.Context, viewerID, viewerRole, id string) (*domain.ServiceRequest, error) {
	return nil, plainError("db down")
}

type fakeCerts struct {
	CertificateService
}

func (f *fakeCerts) Verify(ctx context.Context, hash string) (*domain.CertificateVerification, error) {
	if hash == "" {
		return nil, xerrors.ErrHashRequired
	}
	return &domain.CertificateVerification{Valid: false}, nil
}

type fakeMetrics struct {
	MetricsService
}

func (fakeMetrics) RunNamedQuery(ctx context.Context, name string, params map[string]any) (any, error) {
	if name != usecase.QueryProfilesCount {
		return nil, xerrors.ErrInvalidRequest
	}
	return map[string]int64{"count": 3}, nil
}

type fakeAgents struct{}

func (fakeAgents) List() []agents.Info { return []agents.Info{{Name: "monitor"}} }

func (fakeAgents) Execute(ctx context.Context, name string, task agents.Task) (any, error) {
	if name != "community" {
		return nil, agents.ErrAgentNotFound
	}
	return task.Input, nil
}

func (fakeAgents) RunWorkflow(ctx context.Context, steps []agents.Step) ([]agents.StepResult, error) {
	return []agents.StepResult{{Agent: steps[0].Agent, Action: steps[0].Action}}, agents.ErrUnknownAction
}

type fakeWorkflows struct {
	WorkflowEngine
}

func (fakeWorkflows) Trigger(ctx context.Context, id string, data map[string]any) (*automation.Job, error) {
	if id != "health-monitoring" {
		return nil, automation.ErrWorkflowNotFound
	}
	return &automation.Job{ID: "job-1", WorkflowID: id, Status: automation.JobSucceeded, Success: true}, nil
}

type fakeHealth struct{ rep health.Report }

func (f fakeHealth) Check(ctx context.Context) health.Report { return f.rep }
func (f fakeHealth) Database(ctx context.Context) health.Probe {
	return f.rep.Database
}

type plainError string

func (e plainError) Error() string { return string(e) }

type fakeLangs struct{}

func (fakeLangs) Languages() []i18n.Language { return []i18n.Language{{Code: "en"}, {Code: "hi"}} }

func (fakeLangs) Normalize(lang string) string {
	if strings.HasPrefix(lang, "hi") {
		return "hi"
	}
	return "en"
}

type fakeHub struct {
	sent []domain.Notification
}

func (f *fakeHub) Broadcast(n domain.Notification) int {
	f.sent = append(f.sent, n)
	return 3
}

type fixture struct {
	h        *Handler
	auth     *fakeAuth
	requests *fakeRequests
	hub      *fakeHub
}

func newFixture(rep health.Report) fixture {
	f := fixture{auth: &fakeAuth{}, requests: &fakeRequests{}, hub: &fakeHub{}}
	f.h = New(Services{
		Auth:         f.auth,
		Requests:     f.requests,
		Certificates: &fakeCerts{},
		Metrics:      fakeMetrics{},
		Agents:       fakeAgents{},
		Workflows:    fakeWorkflows{},
		Health:       fakeHealth{rep: rep},
		Languages:    fakeLangs{},
		Broadcaster:  f.hub,
	}, zap.NewNop())
	return f
}

func do(t *testing.T, h http.HandlerFunc, method, target, body string, claims *jwtutil.Claims, params map[string]string) (*httptest.ResponseRecorder, response.APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := req.Context()
	if claims != nil {
		ctx = middleware.WithClaims(ctx, claims, "tok")
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx))

	var out response.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func citizen() *jwtutil.Claims {
	return &jwtutil.Claims{
		UserID:           "u-1",
		Role:             domain.RoleCitizen,
		RegisteredClaims: jwt.RegisteredClaims{ID: "jti-1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}
}

func TestLoginMapsErrors(t *testing.T) {
	f := newFixture(health.Report{})

	rec, out := do(t, f.h.Login, http.MethodPost, "/api/auth/login", "{", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", out.Status)

	f.auth.loginErr = xerrors.ErrInvalidCredentials
	rec, out = do(t, f.h.Login, http.MethodPost, "/api/auth/login", `{"email":"a@b.in","password":"x"}`, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, xerrors.ErrInvalidCredentials.Error(), out.Message)

	f.auth.loginErr = xerrors.ErrEmailNotVerified
	rec, _ = do(t, f.h.Login, http.MethodPost, "/api/auth/login", `{"email":"a@b.in","password":"x"}`, nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVerifyOTPSetsCookie(t *testing.T) {
	f := newFixture(health.Report{})

	rec, out := do(t, f.h.VerifyOTP, http.MethodPost, "/api/auth/verify-otp", `{"email":"a@b.in","otp":" 123456 "}`, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", out.Status)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Equal(t, "tok-123456", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestVerifyOTPRejectsBadCode(t *testing.T) {
	f := newFixture(health.Report{})
	f.auth.verifyErr = xerrors.ErrInvalidOTP

	rec, out := do(t, f.h.VerifyOTP, http.MethodPost, "/api/auth/verify-otp", `{"email":"a@b.in","otp":"000000"}`, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, map[string]any{"valid": false}, out.Data)
	assert.Empty(t, rec.Result().Cookies())

	rec, _ = do(t, f.h.VerifyOTP, http.MethodPost, "/api/auth/verify-otp", `{"email":"a@b.in"}`, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStoreOTPRateLimited(t *testing.T) {
	f := newFixture(health.Report{})

	rec, _ := do(t, f.h.StoreOTP, http.MethodPost, "/api/auth/store-otp", `{"email":"a@b.in"}`, nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
}

func TestLogoutUsesTokenID(t *testing.T) {
	f := newFixture(health.Report{})

	rec, _ := do(t, f.h.Logout, http.MethodPost, "/api/auth/logout", "", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, f.h.Logout, http.MethodPost, "/api/auth/logout", "", citizen(), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jti-1", f.auth.logoutJTI)
}

func TestCreateApplication(t *testing.T) {
	f := newFixture(health.Report{})
	body := `{"service_type":"birth_cert","title":"Birth certificate for Asha"}`

	rec, _ := do(t, f.h.CreateApplication, http.MethodPost, "/api/applications", body, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out := do(t, f.h.CreateApplication, http.MethodPost, "/api/applications", body, citizen(), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "birth_cert", f.requests.created.ServiceType)
	assert.Equal(t, "req-1", out.Data.(map[string]any)["id"])
}

func TestUpdateStatusConflict(t *testing.T) {
	f := newFixture(health.Report{})

	rec, _ := do(t, f.h.UpdateApplicationStatus, http.MethodPatch, "/api/applications/req-1/status",
		`{"status":"completed"}`, citizen(), map[string]string{"id": "req-1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestInternalErrorsAreMasked(t *testing.T) {
	f := newFixture(health.Report{})

	rec, out := do(t, f.h.GetApplication, http.MethodGet, "/api/applications/req-1", "", citizen(), map[string]string{"id": "req-1"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", out.Message)
}

func TestVerifyCertificate(t *testing.T) {
	f := newFixture(health.Report{})

	rec, _ := do(t, f.h.VerifyCertificate, http.MethodPost, "/api/certificates/verify", `{}`, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out := do(t, f.h.VerifyCertificate, http.MethodPost, "/api/certificates/verify", `{"hash":"0xabc"}`, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, out.Data.(map[string]any)["valid"])
}

func TestAgentEndpoints(t *testing.T) {
	f := newFixture(health.Report{})

	rec, _ := do(t, f.h.RunAgentTask, http.MethodPost, "/api/agents/nobody/tasks", `{"action":"x"}`, citizen(), map[string]string{"agent": "nobody"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, f.h.RunAgentTask, http.MethodPost, "/api/agents/community/tasks", `{}`, citizen(), map[string]string{"agent": "community"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out := do(t, f.h.RunAgentTask, http.MethodPost, "/api/agents/community/tasks?lang=hi",
		`{"action":"get_posts"}`, citizen(), map[string]string{"agent": "community"})
	require.Equal(t, http.StatusOK, rec.Code)
	result := out.Data.(map[string]any)["result"].(map[string]any)
	assert.Equal(t, "hi", result["lang"])

	rec, out = do(t, f.h.RunAgentWorkflow, http.MethodPost, "/api/agents/workflow",
		`{"steps":[{"agent":"monitor","action":"bogus"}]}`, citizen(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, out.Data.(map[string]any)["results"], 1)
}

func TestTriggerWorkflow(t *testing.T) {
	f := newFixture(health.Report{})

	rec, _ := do(t, f.h.TriggerWorkflow, http.MethodPost, "/api/automation/workflows/none/trigger", "", citizen(), map[string]string{"id": "none"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, out := do(t, f.h.TriggerWorkflow, http.MethodPost, "/api/automation/workflows/health-monitoring/trigger", "", citizen(),
		map[string]string{"id": "health-monitoring"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out.Data.(map[string]any)["success"])
}

func TestHealthStatusCodes(t *testing.T) {
	rec, _ := do(t, newFixture(health.Report{Status: "degraded"}).h.Health, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, out := do(t, newFixture(health.Report{Status: "unhealthy"}).h.Health, http.MethodGet, "/health", "", nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", out.Data.(map[string]any)["status"])
}

func TestAdminDatabaseEndpoints(t *testing.T) {
	f := newFixture(health.Report{Database: health.Probe{Connected: true, LatencyMS: 1.5}})

	rec, out := do(t, f.h.TestDB, http.MethodGet, "/api/admin/db/test", "", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out.Data.(map[string]any)["connected"])

	rec, _ = do(t, f.h.QueryDB, http.MethodPost, "/api/admin/db/query", `{"query":"SELECT * FROM profiles"}`, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out = do(t, f.h.QueryDB, http.MethodPost, "/api/admin/db/query", `{"query":"profiles.count"}`, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "profiles.count", out.Data.(map[string]any)["query"])
}

func TestAnnounceBroadcastsToConnectedClients(t *testing.T) {
	f := newFixture(health.Report{})

	rec, _ := do(t, f.h.Announce, http.MethodPost, "/api/announcements", `{"title":"  "}`, nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.hub.sent)

	rec, out := do(t, f.h.Announce, http.MethodPost, "/api/announcements",
		`{"title":" Portal maintenance ","body":"Sunday 02:00 IST"}`, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, out.Data.(map[string]any)["delivered"])
	require.Len(t, f.hub.sent, 1)
	assert.Equal(t, "announcement", f.hub.sent[0].Type)
	assert.Equal(t, "Portal maintenance", f.hub.sent[0].Title)
}
