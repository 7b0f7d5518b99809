package domain

import "time"

type UserActivity struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

const (
	ActivityRegister          = "register"
	ActivityLogin             = "login"
	ActivityLogout            = "logout"
	ActivityEmailVerified     = "email_verified"
	ActivityPasswordChanged   = "password_changed"
	ActivityProfileUpdated    = "profile_updated"
	ActivityPrefsUpdated      = "notification_prefs_updated"
	ActivityApplicationCreate = "application_created"
	ActivityStatusChanged     = "application_status_changed"
	ActivityCertificateIssued = "certificate_issued"
)

// Event is what goes onto the event stream.
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	UserID     string         `json:"user_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
