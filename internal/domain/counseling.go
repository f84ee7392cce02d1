package domain

import "time"

type CounselingMethod string

const (
	CounselingMethodCall     CounselingMethod = "call"
	CounselingMethodVideo    CounselingMethod = "video"
	CounselingMethodInPerson CounselingMethod = "in_person"
	CounselingMethodEmail    CounselingMethod = "email"
)

type CounselingStatus string

const (
	CounselingStatusRequested CounselingStatus = "requested"
	CounselingStatusScheduled CounselingStatus = "scheduled"
	CounselingStatusCompleted CounselingStatus = "completed"
	CounselingStatusCancelled CounselingStatus = "cancelled"
)

type CounselingSession struct {
	ID      string `json:"id"`
	DonorID string `json:"donor_id"`
	BankID  string `json:"bank_id"`

	Status CounselingStatus `json:"status"`
	Method CounselingMethod `json:"method"`

	RequestedAt time.Time  `json:"requested_at"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	MeetingLink string `json:"meeting_link,omitempty"` // video sessions
	Location    string `json:"location,omitempty"`     // in-person sessions
	Notes       string `json:"notes,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
