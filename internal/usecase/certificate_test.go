package usecase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"spark-service/internal/domain"
	"spark-service/internal/ledger"
	xerrors "spark-service/pkg/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type certFixture struct {
	*env
	requests *RequestUsecase
	certs    *CertificateUsecase
	owner    *domain.Profile
}

func newCertFixture(t *testing.T) *certFixture {
	t.Helper()
	e := newEnv(t)
	k, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	reqs := newRequests(e)
	certs := NewCertificateUsecase(e.certs, e.requests, e.profiles, reqs, ledger.New(k, &k.PublicKey),
		e.mail, e.activity, e.notifier, zap.NewNop())
	return &certFixture{env: e, requests: reqs, certs: certs, owner: e.seedProfile(t, "meera@example.com", domain.RoleCitizen, true)}
}

func (f *certFixture) approvedRequest(t *testing.T, serviceType string) *domain.ServiceRequest {
	t.Helper()
	ctx := context.Background()
	req, err := f.requests.Create(ctx, f.owner.ID, domain.NewServiceRequest{ServiceType: serviceType})
	require.NoError(t, err)
	for _, st := range []string{domain.StatusUnderReview, domain.StatusProcessing, domain.StatusApproved} {
		req, err = f.requests.UpdateStatus(ctx, "officer", req.ID, st, "")
		require.NoError(t, err)
	}
	return req
}

func TestIssueCertificate(t *testing.T) {
	f := newCertFixture(t)
	ctx := context.Background()
	req := f.approvedRequest(t, "income_cert")

	cert, err := f.certs.Issue(ctx, "officer", req.ID)
	require.NoError(t, err)

	assert.Regexp(t, `^CERT-\d{4}[A-Z0-9]{4}$`, cert.ID)
	assert.Equal(t, "Income Certificate", cert.Name)
	assert.Equal(t, f.owner.FullName(), cert.HolderName)
	assert.Equal(t, domain.AuthorityRevenue, cert.Authority)
	assert.Equal(t, cert.IssueDate.AddDate(1, 0, 0), cert.ValidUntil)
	assert.True(t, ledger.IsHash(cert.BlockchainHash))
	assert.True(t, ledger.IsIPFSHash(cert.IPFSHash))
	assert.NotEmpty(t, cert.DigitalSignature)

	done, err := f.requests.Get(ctx, f.owner.ID, domain.RoleCitizen, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)

	assert.Eventually(t, func() bool { return f.mail.certCount() == 1 }, time.Second, 10*time.Millisecond)
	assert.Contains(t, f.activities.actions(f.owner.ID), domain.ActivityCertificateIssued)

	_, err = f.certs.Issue(ctx, "officer", req.ID)
	assert.ErrorIs(t, err, xerrors.ErrCertificateExists)
}

func TestIssueRequiresApproval(t *testing.T) {
	f := newCertFixture(t)
	req, err := f.requests.Create(context.Background(), f.owner.ID, domain.NewServiceRequest{ServiceType: "birth_cert"})
	require.NoError(t, err)

	_, err = f.certs.Issue(context.Background(), "officer", req.ID)
	assert.ErrorIs(t, err, xerrors.ErrRequestNotIssuable)
}

func TestIssueSkipsEmailWhenOptedOut(t *testing.T) {
	f := newCertFixture(t)
	require.NoError(t, f.profiles.UpdateNotificationPrefs(context.Background(), f.owner.ID, domain.NotificationPrefs{Push: true}))
	req := f.approvedRequest(t, "birth_cert")

	_, err := f.certs.Issue(context.Background(), "officer", req.ID)
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, f.mail.certCount())
}

func TestCertificateVisibilityAndDownload(t *testing.T) {
	f := newCertFixture(t)
	ctx := context.Background()
	cert, err := f.certs.Issue(ctx, "officer", f.approvedRequest(t, "birth_cert").ID)
	require.NoError(t, err)

	_, err = f.certs.Get(ctx, "stranger", domain.RoleCitizen, cert.ID)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	doc, err := f.certs.Download(ctx, f.owner.ID, domain.RoleCitizen, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, cert.BlockchainHash, doc.Hash)
	assert.Equal(t, "RS256", doc.Algorithm)
	assert.Equal(t, cert.ID, doc.Certificate.ID)

	mine, err := f.certs.ListMine(ctx, f.owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestVerifyCertificate(t *testing.T) {
	f := newCertFixture(t)
	ctx := context.Background()
	cert, err := f.certs.Issue(ctx, "officer", f.approvedRequest(t, "birth_cert").ID)
	require.NoError(t, err)

	_, err = f.certs.Verify(ctx, "  ")
	assert.ErrorIs(t, err, xerrors.ErrHashRequired)

	res, err := f.certs.Verify(ctx, "not-a-hash")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Nil(t, res.Certificate)

	unknown, err := ledger.Hash("something else")
	require.NoError(t, err)
	res, err = f.certs.Verify(ctx, unknown)
	require.NoError(t, err)
	assert.False(t, res.Valid)

	res, err = f.certs.Verify(ctx, cert.BlockchainHash)
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.False(t, res.Tampered)
	assert.False(t, res.Expired)
	assert.Equal(t, cert.ID, res.Certificate.ID)

	f.certs.now = func() time.Time { return time.Now().AddDate(6, 0, 0) }
	res, err = f.certs.Verify(ctx, cert.BlockchainHash)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.True(t, res.Expired)
	f.certs.now = time.Now

	f.env.certs.mu.Lock()
	f.env.certs.byID[cert.ID].HolderName = "Someone Else"
	f.env.certs.mu.Unlock()

	res, err = f.certs.Verify(ctx, cert.BlockchainHash)
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.True(t, res.Tampered)
}
