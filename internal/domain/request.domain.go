package domain

import (
	"slices"
	"time"
)

const (
	StatusPending              = "pending"
	StatusUnderReview          = "under_review"
	StatusProcessing           = "processing"
	StatusApproved             = "approved"
	StatusCompleted            = "completed"
	StatusRejected             = "rejected"
	StatusResubmissionRequired = "resubmission_required"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

var statusProgress = map[string]int{
	StatusPending:              0,
	StatusUnderReview:          25,
	StatusProcessing:           60,
	StatusApproved:             90,
	StatusCompleted:            100,
	StatusRejected:             100,
	StatusResubmissionRequired: 10,
}

var statusTransitions = map[string][]string{
	StatusPending:              {StatusUnderReview, StatusRejected},
	StatusUnderReview:          {StatusProcessing, StatusResubmissionRequired, StatusRejected},
	StatusProcessing:           {StatusApproved, StatusResubmissionRequired, StatusRejected},
	StatusApproved:             {StatusCompleted, StatusRejected},
	StatusResubmissionRequired: {StatusPending, StatusRejected},
}

func IsKnownStatus(status string) bool {
	_, ok := statusProgress[status]
	return ok
}

func ProgressFor(status string) int {
	return statusProgress[status]
}

func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusRejected
}

func CanTransition(from, to string) bool {
	return slices.Contains(statusTransitions[from], to)
}

func IsValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

type Document struct {
	Name string `json:"name"`
	Hash string `json:"hash,omitempty"`
	Size int64  `json:"size,omitempty"`
}

type ServiceRequest struct {
	ID                      string     `json:"id"`
	UserID                  string     `json:"user_id"`
	ServiceType             string     `json:"service_type"`
	Status                  string     `json:"status"`
	Progress                int        `json:"progress"`
	Title                   string     `json:"title"`
	Description             string     `json:"description,omitempty"`
	Category                string     `json:"category"`
	Priority                string     `json:"priority"`
	Documents               []Document `json:"documents"`
	EstimatedCompletionDate *time.Time `json:"estimated_completion_date,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
	CompletedAt             *time.Time `json:"completed_at,omitempty"`
}

// Derive fills fields computed from the stored row.
func (r *ServiceRequest) Derive() {
	if r.Status == StatusCompleted {
		t := r.UpdatedAt
		r.CompletedAt = &t
	} else {
		r.CompletedAt = nil
	}
	if r.Documents == nil {
		r.Documents = []Document{}
	}
}

type ServiceRequestUpdate struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type NewServiceRequest struct {
	ServiceType string     `json:"service_type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	Documents   []Document `json:"documents"`
}
