package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestServiceCatalogue(t *testing.T) {
	types := ServiceTypes()
	assert.Len(t, types, 5)
	assert.Equal(t, "birth_cert", types[0].Code)

	income, ok := LookupServiceType("income_cert")
	assert.True(t, ok)
	assert.True(t, income.Fee.Equal(decimal.NewFromInt(75)))
	assert.Equal(t, 7, income.ProcessingDays())
	assert.Equal(t, 1, income.ValidYears)
	assert.Equal(t, AuthorityRevenue, income.Authority)

	_, ok = LookupServiceType("passport")
	assert.False(t, ok)

	assert.Equal(t, DefaultProcessingDays, ServiceType{}.ProcessingDays())
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusUnderReview))
	assert.True(t, CanTransition(StatusApproved, StatusCompleted))
	assert.True(t, CanTransition(StatusResubmissionRequired, StatusPending))
	assert.True(t, CanTransition(StatusProcessing, StatusRejected))

	assert.False(t, CanTransition(StatusPending, StatusCompleted))
	assert.False(t, CanTransition(StatusCompleted, StatusRejected))
	assert.False(t, CanTransition(StatusRejected, StatusPending))

	for _, s := range []string{StatusPending, StatusUnderReview, StatusProcessing, StatusApproved, StatusResubmissionRequired} {
		assert.True(t, CanTransition(s, StatusRejected), s)
	}
}

func TestProgressFor(t *testing.T) {
	assert.Equal(t, 0, ProgressFor(StatusPending))
	assert.Equal(t, 25, ProgressFor(StatusUnderReview))
	assert.Equal(t, 60, ProgressFor(StatusProcessing))
	assert.Equal(t, 90, ProgressFor(StatusApproved))
	assert.Equal(t, 100, ProgressFor(StatusCompleted))
	assert.Equal(t, 10, ProgressFor(StatusResubmissionRequired))
	assert.False(t, IsKnownStatus("archived"))
}

func TestServiceRequestDerive(t *testing.T) {
	now := time.Now()
	r := &ServiceRequest{Status: StatusCompleted, UpdatedAt: now}
	r.Derive()
	if assert.NotNil(t, r.CompletedAt) {
		assert.Equal(t, now, *r.CompletedAt)
	}
	assert.NotNil(t, r.Documents)

	r.Status = StatusProcessing
	r.Derive()
	assert.Nil(t, r.CompletedAt)
}

func TestCertificatePayloadDates(t *testing.T) {
	req := "42"
	c := &Certificate{
		ID: "CERT-1", RequestID: &req,
		IssueDate:  time.Date(2025, 3, 1, 23, 0, 0, 0, time.UTC),
		ValidUntil: time.Date(2030, 3, 1, 23, 0, 0, 0, time.UTC),
	}
	p := c.Payload()
	assert.Equal(t, "2025-03-01", p.IssueDate)
	assert.Equal(t, "2030-03-01", p.ValidUntil)
	assert.Equal(t, "42", p.RequestID)
	assert.False(t, c.IsExpired(time.Date(2029, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, c.IsExpired(time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestProfileFullName(t *testing.T) {
	assert.Equal(t, "Asha", (&Profile{FirstName: "Asha"}).FullName())
	assert.Equal(t, "Asha Rao", (&Profile{FirstName: "Asha", LastName: "Rao"}).FullName())
}
