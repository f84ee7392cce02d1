package domain

import "time"

type TestReportSource string

const (
	TestSourceBankConducted  TestReportSource = "bank_conducted"
	TestSourceDonorSubmitted TestReportSource = "donor_submitted"
)

// TestReport records a lab result. Regardless of source, the owning donor can
// always read it.
type TestReport struct {
	ID      string `json:"id"`
	DonorID string `json:"donor_id"`
	BankID  string `json:"bank_id"`

	Source TestReportSource `json:"source"`

	TestType string `json:"test_type"`
	TestName string `json:"test_name"`
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name,omitempty"`

	UploadedBy string    `json:"uploaded_by"` // bank or donor ID
	UploadedAt time.Time `json:"uploaded_at"`

	TestDate *time.Time `json:"test_date,omitempty"`
	LabName  string     `json:"lab_name,omitempty"`
	Notes    string     `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
