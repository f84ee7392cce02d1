package repository

import (
	"context"
	"time"

	"donorlink-backend/internal/domain"
)

// Transactor runs fn inside a single database transaction. The transaction
// is carried in the context; repository methods pick it up automatically, so
// guard evaluation, entity mutation and history append commit atomically.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type BankFilter struct {
	State        string
	IsVerified   *bool
	IsSubscribed *bool
	Search       string
}

type DonorFilter struct {
	State  string
	BankID string
	Search string
}

type BankRepository interface {
	Create(ctx context.Context, bank *domain.Bank) error
	GetByID(ctx context.Context, id string) (*domain.Bank, error)
	// GetByIDForUpdate locks the row for the rest of the transaction so
	// concurrent transition attempts serialize.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Bank, error)
	GetByEmail(ctx context.Context, email string) (*domain.Bank, error)
	Update(ctx context.Context, bank *domain.Bank) error
	// ListPublic returns verified, subscribed banks for the donor-facing
	// browse surface.
	ListPublic(ctx context.Context, location, search string) ([]domain.Bank, error)
	List(ctx context.Context, filter BankFilter, page, pageSize int32) ([]domain.Bank, int32, error)
}

type DonorRepository interface {
	Create(ctx context.Context, donor *domain.Donor) error
	GetByID(ctx context.Context, id string) (*domain.Donor, error)
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Donor, error)
	GetByEmail(ctx context.Context, email string) (*domain.Donor, error)
	Update(ctx context.Context, donor *domain.Donor) error
	ListByBank(ctx context.Context, bankID string) ([]domain.Donor, error)
	List(ctx context.Context, filter DonorFilter, page, pageSize int32) ([]domain.Donor, int32, error)
	CountByBank(ctx context.Context, bankID string) (int32, error)
}

type ConsentRepository interface {
	CreateTemplate(ctx context.Context, tpl *domain.ConsentTemplate) error
	GetTemplate(ctx context.Context, id string) (*domain.ConsentTemplate, error)
	UpdateTemplate(ctx context.Context, tpl *domain.ConsentTemplate) error
	ListTemplatesByBank(ctx context.Context, bankID string, activeOnly bool) ([]domain.ConsentTemplate, error)
	CountActiveTemplates(ctx context.Context, bankID string) (int32, error)

	CreateConsent(ctx context.Context, consent *domain.DonorConsent) error
	GetConsent(ctx context.Context, id string) (*domain.DonorConsent, error)
	GetConsentForUpdate(ctx context.Context, id string) (*domain.DonorConsent, error)
	GetConsentByTemplate(ctx context.Context, donorID, templateID string) (*domain.DonorConsent, error)
	UpdateConsent(ctx context.Context, consent *domain.DonorConsent) error
	ListConsentsByDonor(ctx context.Context, donorID string) ([]domain.DonorConsent, error)
	CountConsentsByStatus(ctx context.Context, donorID string, statuses ...domain.ConsentStatus) (int32, error)
}

type CounselingRepository interface {
	Create(ctx context.Context, session *domain.CounselingSession) error
	GetByID(ctx context.Context, id string) (*domain.CounselingSession, error)
	Update(ctx context.Context, session *domain.CounselingSession) error
	ListByDonor(ctx context.Context, donorID string) ([]domain.CounselingSession, error)
	ListByBank(ctx context.Context, bankID string, status string) ([]domain.CounselingSession, error)
}

type TestReportRepository interface {
	Create(ctx context.Context, report *domain.TestReport) error
	GetByID(ctx context.Context, id string) (*domain.TestReport, error)
	ListByDonor(ctx context.Context, donorID string) ([]domain.TestReport, error)
}

// HistoryRepository is insert-and-read only. Past transitions are never
// updated or deleted.
type HistoryRepository interface {
	AppendDonor(ctx context.Context, h *domain.DonorStateHistory) error
	ListDonor(ctx context.Context, donorID string) ([]domain.DonorStateHistory, error)
	AppendBank(ctx context.Context, h *domain.BankStateHistory) error
	ListBank(ctx context.Context, bankID string) ([]domain.BankStateHistory, error)
}

type AdminRepository interface {
	Create(ctx context.Context, admin *domain.Admin) error
	GetByID(ctx context.Context, id string) (*domain.Admin, error)
	GetByEmail(ctx context.Context, email string) (*domain.Admin, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

type ActivityLogRepository interface {
	Create(ctx context.Context, log *domain.ActivityLog) error
	List(ctx context.Context, page, pageSize int32) ([]domain.ActivityLog, int32, error)
}

// DashboardStats are the admin landing-page aggregates.
type DashboardStats struct {
	TotalBanks            int32 `json:"total_banks"`
	VerifiedBanks         int32 `json:"verified_banks"`
	SubscribedBanks       int32 `json:"subscribed_banks"`
	OperationalBanks      int32 `json:"operational_banks"`
	PendingVerifications  int32 `json:"pending_verifications"`
	ExpiringSubscriptions int32 `json:"expiring_subscriptions"`
	ExpiredSubscriptions  int32 `json:"expired_subscriptions"`
	RecentSignups         int32 `json:"recent_signups"`
	TotalDonors           int32 `json:"total_donors"`
	OnboardedDonors       int32 `json:"onboarded_donors"`
}

type TierCount struct {
	Tier  string `json:"tier"`
	Count int32  `json:"count"`
}

type MonthlyTrend struct {
	Month            string `json:"month"`
	NewSubscriptions int32  `json:"new_subscriptions"`
}

type AnalyticsRepository interface {
	Dashboard(ctx context.Context, now time.Time) (*DashboardStats, error)
	SubscriptionTiers(ctx context.Context) ([]TierCount, error)
	MonthlySubscriptionTrend(ctx context.Context, now time.Time, months int) ([]MonthlyTrend, error)
	// ExpiringBanks lists subscribed banks whose subscription lapses within
	// the window; the expiry sweep job emails these.
	ExpiringBanks(ctx context.Context, now time.Time, within time.Duration) ([]domain.Bank, error)
	// MarkExpiredSubscriptions flips is_subscribed off for banks past their
	// expiry. State is never rewound; only the flag changes.
	MarkExpiredSubscriptions(ctx context.Context, now time.Time) (int64, error)
}
