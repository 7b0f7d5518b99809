package domain

import "time"

type Certificate struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RequestID        *string   `json:"request_id,omitempty"`
	Type             string    `json:"type"`
	Name             string    `json:"name"`
	HolderName       string    `json:"holder_name"`
	IssueDate        time.Time `json:"issue_date"`
	ValidUntil       time.Time `json:"valid_until"`
	Authority        string    `json:"authority"`
	BlockchainHash   string    `json:"blockchain_hash"`
	IPFSHash         string    `json:"ipfs_hash"`
	DigitalSignature string    `json:"digital_signature"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Payload is the part of a certificate covered by its blockchain hash.
type CertificatePayload struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	RequestID  string `json:"request_id,omitempty"`
	Type       string `json:"type"`
	HolderName string `json:"holder_name"`
	IssueDate  string `json:"issue_date"`
	ValidUntil string `json:"valid_until"`
	Authority  string `json:"authority"`
	IPFSHash   string `json:"ipfs_hash"`
}

func (c *Certificate) Payload() CertificatePayload {
	p := CertificatePayload{
		ID:         c.ID,
		UserID:     c.UserID,
		Type:       c.Type,
		HolderName: c.HolderName,
		IssueDate:  c.IssueDate.UTC().Format("2006-01-02"),
		ValidUntil: c.ValidUntil.UTC().Format("2006-01-02"),
		Authority:  c.Authority,
		IPFSHash:   c.IPFSHash,
	}
	if c.RequestID != nil {
		p.RequestID = *c.RequestID
	}
	return p
}

func (c *Certificate) IsExpired(now time.Time) bool {
	return now.After(c.ValidUntil)
}

type CertificateVerification struct {
	Valid       bool         `json:"valid"`
	Tampered    bool         `json:"tampered"`
	Expired     bool         `json:"expired"`
	Certificate *Certificate `json:"certificate,omitempty"`
}

// SignedCertificate is the downloadable document.
type SignedCertificate struct {
	Certificate CertificatePayload `json:"certificate"`
	Hash        string             `json:"blockchain_hash"`
	Signature   string             `json:"digital_signature"`
	Algorithm   string             `json:"algorithm"`
	GeneratedAt time.Time          `json:"generated_at"`
}
