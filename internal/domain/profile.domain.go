package domain

import "time"

const (
	RoleCitizen = "citizen"
	RoleOfficer = "officer"
	RoleAdmin   = "admin"
)

func IsStaff(role string) bool {
	return role == RoleOfficer || role == RoleAdmin
}

type NotificationPrefs struct {
	SMS   bool `json:"sms"`
	Push  bool `json:"push"`
	Email bool `json:"email"`
}

func DefaultNotificationPrefs() NotificationPrefs {
	return NotificationPrefs{Email: true}
}

type Profile struct {
	ID                string            `json:"id"`
	Email             string            `json:"email"`
	FirstName         string            `json:"first_name"`
	LastName          string            `json:"last_name"`
	Phone             *string           `json:"phone,omitempty"`
	AadhaarNumber     *string           `json:"aadhaar_number,omitempty"`
	Role              string            `json:"role"`
	PasswordHash      string            `json:"-"`
	EmailVerified     bool              `json:"email_verified"`
	NotificationPrefs NotificationPrefs `json:"notification_prefs"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

func (p *Profile) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// ProfileUpdate carries the editable fields; nil means unchanged.
type ProfileUpdate struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}
