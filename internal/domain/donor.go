package domain

import "time"

type DonorState string

const (
	DonorStateVisitor             DonorState = "visitor"
	DonorStateBankSelected        DonorState = "bank_selected"
	DonorStateLeadCreated         DonorState = "lead_created"
	DonorStateAccountCreated      DonorState = "account_created"
	DonorStateCounselingRequested DonorState = "counseling_requested"
	DonorStateConsentPending      DonorState = "consent_pending"
	DonorStateConsentVerified     DonorState = "consent_verified"
	DonorStateTestsPending        DonorState = "tests_pending"
	DonorStateEligibilityDecision DonorState = "eligibility_decision"
	DonorStateOnboarded           DonorState = "donor_onboarded"
)

type EligibilityStatus string

const (
	EligibilityPending  EligibilityStatus = "pending"
	EligibilityApproved EligibilityStatus = "approved"
	EligibilityRejected EligibilityStatus = "rejected"
)

type Donor struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	State          DonorState `json:"state"`

	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Phone       string     `json:"phone"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Address     string     `json:"address"`

	// Captured at lead creation; free-form answers from the intake form.
	MedicalInterestInfo map[string]any `json:"medical_interest_info,omitempty"`

	// BankID is set once when the donor selects a bank and never changes
	// afterward.
	BankID     *string    `json:"bank_id,omitempty"`
	SelectedAt *time.Time `json:"selected_at,omitempty"`

	LegalDocuments []DocumentRef `json:"legal_documents,omitempty"`

	ConsentPending    bool `json:"consent_pending"`
	CounselingPending bool `json:"counseling_pending"`
	TestsPending      bool `json:"tests_pending"`

	EligibilityStatus    EligibilityStatus `json:"eligibility_status"`
	EligibilityNotes     string            `json:"eligibility_notes,omitempty"`
	EligibilityDecidedAt *time.Time        `json:"eligibility_decided_at,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// DocumentRef points at a stored file; the backing object lives in object
// storage and only the reference is persisted.
type DocumentRef struct {
	FileName   string    `json:"filename"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}
