package domain

import "time"

type BankState string

const (
	BankStateAccountCreated      BankState = "account_created"
	BankStateVerificationPending BankState = "verification_pending"
	BankStateVerified            BankState = "verified"
	BankStateSubscriptionPending BankState = "subscription_pending"
	BankStateSubscribedOnboarded BankState = "subscribed_onboarded"
	BankStateOperational         BankState = "operational"
)

// CounselingConfig is owned by the bank and read by the donor workflow at
// scheduling time.
type CounselingConfig struct {
	Methods     []CounselingMethod `json:"methods"`
	TimeSlots   []string           `json:"time_slots"`
	AutoApprove bool               `json:"auto_approve"`
}

// AllowsMethod reports whether the given counseling method is permitted.
// An empty config permits every method.
func (c *CounselingConfig) AllowsMethod(method CounselingMethod) bool {
	if c == nil || len(c.Methods) == 0 {
		return true
	}
	for _, m := range c.Methods {
		if m == method {
			return true
		}
	}
	return false
}

type Bank struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	HashedPassword string    `json:"-"`
	Name           string    `json:"name"`
	State          BankState `json:"state"`

	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Website     string `json:"website"`
	Description string `json:"description"`
	LogoURL     string `json:"logo_url,omitempty"`

	CertificationDocuments []DocumentRef `json:"certification_documents,omitempty"`

	IsVerified bool       `json:"is_verified"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
	VerifiedBy string     `json:"verified_by,omitempty"` // admin ID

	IsSubscribed          bool           `json:"is_subscribed"`
	SubscriptionTier      string         `json:"subscription_tier,omitempty"`
	SubscriptionStartedAt *time.Time     `json:"subscription_started_at,omitempty"`
	SubscriptionExpiresAt *time.Time     `json:"subscription_expires_at,omitempty"`
	BillingDetails        map[string]any `json:"billing_details,omitempty"`

	CounselingConfig *CounselingConfig `json:"counseling_config,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}
