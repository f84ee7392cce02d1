package domain

import "time"

// RequiredConsentCount is the number of active consent templates every bank
// must maintain. A donor's consent stage is complete only when all of them
// have been signed and verified.
const RequiredConsentCount = 4

type ConsentStatus string

const (
	ConsentStatusPending  ConsentStatus = "pending"
	ConsentStatusSigned   ConsentStatus = "signed"
	ConsentStatusVerified ConsentStatus = "verified"
	ConsentStatusRejected ConsentStatus = "rejected"
)

type ConsentTemplate struct {
	ID     string `json:"id"`
	BankID string `json:"bank_id"`

	Title   string `json:"title"`
	Content string `json:"content"` // text body or stored PDF URL
	Version string `json:"version"`
	Order   int32  `json:"order"` // display order, 1..4

	IsActive bool `json:"is_active"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type DonorConsent struct {
	ID         string `json:"id"`
	DonorID    string `json:"donor_id"`
	TemplateID string `json:"template_id"`

	Status ConsentStatus `json:"status"`

	SignedAt      *time.Time     `json:"signed_at,omitempty"`
	SignatureData map[string]any `json:"signature_data,omitempty"`

	VerifiedAt        *time.Time `json:"verified_at,omitempty"`
	VerifiedBy        string     `json:"verified_by,omitempty"` // bank ID
	VerificationNotes string     `json:"verification_notes,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	Template *ConsentTemplate `json:"template,omitempty"` // populated on donor reads
}
