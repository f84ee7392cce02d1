package domain

import "time"

// Role identifies who is attempting a workflow action.
type Role string

const (
	RoleDonor  Role = "donor"
	RoleBank   Role = "bank"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

// DonorStateHistory rows are append-only; the repository exposes no update or
// delete for them.
type DonorStateHistory struct {
	ID      string `json:"id"`
	DonorID string `json:"donor_id"`

	FromState DonorState `json:"from_state"`
	ToState   DonorState `json:"to_state"`

	ChangedBy     string `json:"changed_by"`
	ChangedByRole Role   `json:"changed_by_role"`
	Reason        string `json:"reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type BankStateHistory struct {
	ID     string `json:"id"`
	BankID string `json:"bank_id"`

	FromState BankState `json:"from_state"`
	ToState   BankState `json:"to_state"`

	ChangedBy     string `json:"changed_by"`
	ChangedByRole Role   `json:"changed_by_role"`
	Reason        string `json:"reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
