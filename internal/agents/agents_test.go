package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"spark-service/internal/health"
	"spark-service/internal/i18n"
	"spark-service/internal/ledger"
	"spark-service/pkg/jwtutil"
	"spark-service/pkg/middleware"
	xerrors "spark-service/pkg/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeOTP struct {
	issued   []string
	code     string
	issueErr error
}

func (f *fakeOTP) RequestOTP(_ context.Context, email, purpose, _ string) (time.Time, error) {
	if f.issueErr != nil {
		return time.Time{}, f.issueErr
	}
	f.issued = append(f.issued, email+"/"+purpose)
	return time.Date(2025, 1, 1, 0, 10, 0, 0, time.UTC), nil
}

func (f *fakeOTP) Verify(_ context.Context, _, _, code string) (bool, error) {
	return code == f.code, nil
}

func newTestOrchestrator(t *testing.T, otp *fakeOTP) *Orchestrator {
	t.Helper()
	tr, err := i18n.New()
	require.NoError(t, err)
	up := health.PingerFunc(func(context.Context) error { return nil })
	return NewOrchestrator(zap.NewNop(),
		NewAuthAgent(otp, otp),
		NewCertificateAgent(),
		NewAnalyticsAgent(),
		NewCommunityAgent(tr),
		NewMonitorAgent(health.NewChecker(up, up)),
	)
}

func TestOrchestratorLookup(t *testing.T) {
	o := newTestOrchestrator(t, &fakeOTP{})

	names := []string{}
	for _, a := range o.List() {
		names = append(names, a.Name)
		assert.NotEmpty(t, a.Actions)
	}
	assert.Equal(t, []string{"analytics", "auth", "certificate", "community", "monitor"}, names)

	_, err := o.Execute(context.Background(), "oracle", Task{Action: "x"})
	assert.ErrorIs(t, err, ErrAgentNotFound)

	_, err = o.Execute(context.Background(), "analytics", Task{Action: "dance"})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func asCaller(email string) context.Context {
	return middleware.WithClaims(context.Background(), &jwtutil.Claims{UserID: "u-1", Email: email}, "tok")
}

func TestAuthAgent(t *testing.T) {
	otp := &fakeOTP{code: "123456"}
	o := newTestOrchestrator(t, otp)
	ctx := asCaller("a@b.co")

	out, err := o.Execute(ctx, "auth", Task{Action: "generate_otp", Input: map[string]any{"email": "A@B.co"}})
	require.NoError(t, err)
	assert.Contains(t, out, "expires_at")
	assert.NotContains(t, out, "otp")

	_, err = o.Execute(ctx, "auth", Task{Action: "generate_otp"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a@b.co/login", "a@b.co/login"}, otp.issued)

	_, err = o.Execute(ctx, "auth", Task{Action: "verify_otp"})
	assert.ErrorIs(t, err, ErrMissingInput)

	ok, err := o.Execute(ctx, "auth", Task{Action: "verify_otp", Input: map[string]any{"otp": "123456"}})
	require.NoError(t, err)
	assert.Equal(t, true, ok)

	ok, err = o.Execute(ctx, "auth", Task{Action: "verify_otp", Input: map[string]any{"email": "a@b.co", "otp": "000000"}})
	require.NoError(t, err)
	assert.Equal(t, false, ok)
}

func TestAuthAgentStaysOnCallersEmail(t *testing.T) {
	otp := &fakeOTP{code: "123456"}
	o := newTestOrchestrator(t, otp)

	_, err := o.Execute(asCaller("a@b.co"), "auth", Task{Action: "verify_otp", Input: map[string]any{"email": "victim@b.co", "otp": "123456"}})
	assert.ErrorIs(t, err, xerrors.ErrForbidden)

	_, err = o.Execute(asCaller("a@b.co"), "auth", Task{Action: "generate_otp", Input: map[string]any{"email": "victim@b.co", "purpose": "password_reset"}})
	assert.ErrorIs(t, err, xerrors.ErrForbidden)
	assert.Empty(t, otp.issued)

	_, err = o.Execute(context.Background(), "auth", Task{Action: "generate_otp", Input: map[string]any{"email": "a@b.co"}})
	assert.ErrorIs(t, err, xerrors.ErrUnauthorized)
}

func TestCertificateAgent(t *testing.T) {
	a := NewCertificateAgent()
	ctx := context.Background()
	data := map[string]any{"certificate_data": map[string]any{"name": "Birth Certificate"}}

	h1, err := a.Process(ctx, Task{Action: "generate_hash", Input: data})
	require.NoError(t, err)
	h2, err := a.Process(ctx, Task{Action: "generate_hash", Input: data})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.True(t, ledger.IsHash(h1.(string)))

	ipfs, err := a.Process(ctx, Task{Action: "upload_ipfs"})
	require.NoError(t, err)
	assert.True(t, ledger.IsIPFSHash(ipfs.(string)))

	out, err := a.Process(ctx, Task{Action: "create_certificate", Input: data})
	require.NoError(t, err)
	res := out.(map[string]string)
	assert.Equal(t, h1, res["blockchain_hash"])
	assert.True(t, ledger.IsIPFSHash(res["ipfs_hash"]))
}

func TestAnalyticsPredictDemand(t *testing.T) {
	a := NewAnalyticsAgent()
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	a.rnd = func() float64 { return 0.6349 }
	out, err := a.Process(context.Background(), Task{Action: "predict_demand", Input: map[string]any{
		"service_type": "income_certificate", "timeframe": "week",
	}})
	require.NoError(t, err)
	p := out.(DemandPrediction)
	assert.Equal(t, 91.3, p.Confidence)
	assert.Equal(t, []string{"09:00-11:00", "15:00-17:00"}, p.Prediction.PeakHours)
	assert.Equal(t, 80, p.Prediction.ExpectedLoad)
	assert.Equal(t, "week", p.Timeframe)
	assert.Equal(t, fixed, p.Timestamp)

	out, err = a.Process(context.Background(), Task{Action: "predict_demand", Input: map[string]any{"service_type": "passport"}})
	require.NoError(t, err)
	p = out.(DemandPrediction)
	assert.Equal(t, "Allocate 2 additional counters during peak hours", p.Prediction.Recommendation)
	assert.Equal(t, "passport", p.ServiceType)

	out, err = a.Process(context.Background(), Task{Action: "predict_demand", Input: map[string]any{"service_type": "income_cert"}})
	require.NoError(t, err)
	assert.Equal(t, "Enable online processing to reduce physical visits", out.(DemandPrediction).Prediction.Recommendation)
}

func TestAnalyticsRanges(t *testing.T) {
	a := NewAnalyticsAgent()
	for i := 0; i < 200; i++ {
		p := a.predictDemand("birth_certificate", "day")
		assert.GreaterOrEqual(t, p.Confidence, 85.0)
		assert.LessOrEqual(t, p.Confidence, 95.0)
		assert.GreaterOrEqual(t, p.Prediction.ExpectedLoad, 50)
		assert.Less(t, p.Prediction.ExpectedLoad, 150)

		b := a.analyzeBehavior("u1")
		assert.GreaterOrEqual(t, b.RiskScore, 0.0)
		assert.Less(t, b.RiskScore, 0.3)
	}
	b := a.analyzeBehavior("u1")
	assert.Equal(t, []string{"birth_certificate", "aadhaar_update"}, b.FrequentServices)
	assert.Len(t, b.Recommendations, 2)
}

func TestCommunityAgent(t *testing.T) {
	tr, err := i18n.New()
	require.NoError(t, err)
	a := NewCommunityAgent(tr)
	ctx := context.Background()

	out, err := a.Process(ctx, Task{Action: "translate", Input: map[string]any{"text": "Dashboard", "target_language": "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "डैशबोर्ड", out)

	out, err = a.Process(ctx, Task{Action: "translate", Input: map[string]any{"text": "Unknown phrase", "target_language": "ta"}})
	require.NoError(t, err)
	assert.Equal(t, "Unknown phrase", out)

	cases := []struct {
		category, language string
		want               []string
	}{
		{"all", "en", []string{"1", "2"}},
		{"", "", []string{"1", "2"}},
		{"help", "en", []string{"1"}},
		{"updates", "en", []string{"2"}},
		{"all", "hi", nil},
	}
	for _, tc := range cases {
		out, err := a.Process(ctx, Task{Action: "get_posts", Input: map[string]any{"category": tc.category, "language": tc.language}})
		require.NoError(t, err)
		var ids []string
		for _, p := range out.([]Post) {
			ids = append(ids, p.ID)
		}
		assert.Equal(t, tc.want, ids, "%s/%s", tc.category, tc.language)
	}
}

func TestMonitorAgent(t *testing.T) {
	down := health.PingerFunc(func(context.Context) error { return errors.New("refused") })
	up := health.PingerFunc(func(context.Context) error { return nil })
	a := NewMonitorAgent(health.NewChecker(up, down))

	out, err := a.Process(context.Background(), Task{Action: "health_check"})
	require.NoError(t, err)
	rep := out.(health.Report)
	assert.True(t, rep.Database.Connected)
	assert.False(t, rep.Redis.Connected)
	assert.Equal(t, "degraded", rep.Status)
}

func TestRunWorkflowStopsAtFirstError(t *testing.T) {
	o := newTestOrchestrator(t, &fakeOTP{})
	ctx := context.Background()

	res, err := o.RunWorkflow(ctx, []Step{
		{Agent: "certificate", Task: Task{Action: "upload_ipfs"}},
		{Agent: "analytics", Task: Task{Action: "analyze_behavior", Input: map[string]any{"user_id": "u1"}}},
	})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "analyze_behavior", res[1].Action)

	res, err = o.RunWorkflow(ctx, []Step{
		{Agent: "certificate", Task: Task{Action: "upload_ipfs"}},
		{Agent: "ghost", Task: Task{Action: "noop"}},
		{Agent: "analytics", Task: Task{Action: "analyze_behavior"}},
	})
	assert.ErrorIs(t, err, ErrAgentNotFound)
	assert.Len(t, res, 1)
}
