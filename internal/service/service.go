package service

import (
	"context"
	"io"
	"time"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/repository"
)

type AuthService interface {
	RegisterBank(ctx context.Context, email, password, name, address, phone, website, description string) (*domain.Bank, string, string, error) // bank, access, refresh
	LoginBank(ctx context.Context, email, password string) (*domain.Bank, string, string, error)
	LoginDonor(ctx context.Context, email, password string) (*domain.Donor, string, string, error)
	LoginAdmin(ctx context.Context, email, password string) (*domain.Admin, string, string, error)
	Refresh(ctx context.Context, refreshToken string) (string, string, error)
}

// DonorLeadInput is the intake form captured at lead creation.
type DonorLeadInput struct {
	FirstName           string
	LastName            string
	Phone               string
	MedicalInterestInfo map[string]any
}

// DonorAccountInput completes registration after the lead stage.
type DonorAccountInput struct {
	Email       string
	Password    string
	DateOfBirth *time.Time
	Address     string
}

type DonorService interface {
	// ListBanks is the public browse surface: verified, subscribed banks only.
	ListBanks(ctx context.Context, location, search string) ([]domain.Bank, error)
	GetBank(ctx context.Context, bankID string) (*domain.Bank, error)

	// SelectBank creates the donor record and binds it to the chosen bank.
	// The binding is permanent.
	SelectBank(ctx context.Context, bankID string) (*domain.Donor, error)
	CreateLead(ctx context.Context, donorID string, in DonorLeadInput) (*domain.Donor, error)
	CreateAccount(ctx context.Context, donorID string, in DonorAccountInput) (*domain.Donor, error)

	RequestCounseling(ctx context.Context, donorID string, method domain.CounselingMethod, notes string) (*domain.CounselingSession, error)

	ListConsentTemplates(ctx context.Context, donorID string) ([]domain.ConsentTemplate, error)
	// SignConsent records a signature. The first signature moves the donor
	// into the consent stage.
	SignConsent(ctx context.Context, donorID, templateID string, signatureData map[string]any) (*domain.DonorConsent, error)
	ListMyConsents(ctx context.Context, donorID string) ([]domain.DonorConsent, error)

	UploadTestReport(ctx context.Context, donorID string, in TestReportInput) (*domain.TestReport, error)
	ListMyTestReports(ctx context.Context, donorID string) ([]domain.TestReport, error)
	ListMyCounseling(ctx context.Context, donorID string) ([]domain.CounselingSession, error)

	GetProfile(ctx context.Context, donorID string) (*domain.Donor, error)
	// Status returns the donor plus the next state in the chain, empty when
	// terminal.
	Status(ctx context.Context, donorID string) (*domain.Donor, domain.DonorState, error)
	History(ctx context.Context, donorID string) ([]domain.DonorStateHistory, error)
}

// TestReportInput describes a lab result upload from either side.
type TestReportInput struct {
	TestType string
	TestName string
	FileURL  string
	FileName string
	TestDate *time.Time
	LabName  string
	Notes    string
}

// SubscriptionInput starts a subscription purchase.
type SubscriptionInput struct {
	Tier           string
	Months         int
	BillingDetails map[string]any
}

type BankService interface {
	GetProfile(ctx context.Context, bankID string) (*domain.Bank, error)
	UpdateProfile(ctx context.Context, bankID string, name, address, phone, website, description, logoURL string) (*domain.Bank, error)
	UpdateCounselingConfig(ctx context.Context, bankID string, cfg domain.CounselingConfig) (*domain.Bank, error)

	// SubmitCertification attaches the uploaded documents and moves the bank
	// into verification review.
	SubmitCertification(ctx context.Context, bankID string, docs []domain.DocumentRef) (*domain.Bank, error)

	ActivateSubscription(ctx context.Context, bankID string, in SubscriptionInput) (*domain.Bank, error)
	// ConfirmSubscription completes payment, marks the bank subscribed and,
	// when verification also holds, takes it operational.
	ConfirmSubscription(ctx context.Context, bankID string) (*domain.Bank, error)

	CreateConsentTemplate(ctx context.Context, bankID string, title, content, version string, order int32) (*domain.ConsentTemplate, error)
	UpdateConsentTemplate(ctx context.Context, bankID, templateID string, title, content, version string, isActive bool) (*domain.ConsentTemplate, error)
	ListConsentTemplates(ctx context.Context, bankID string) ([]domain.ConsentTemplate, error)

	// VerifyConsent approves or rejects a signed consent. Approving the last
	// outstanding one completes the donor's consent stage.
	VerifyConsent(ctx context.Context, bankID, consentID string, approve bool, notes string) (*domain.DonorConsent, error)

	ListCounselingSessions(ctx context.Context, bankID, status string) ([]domain.CounselingSession, error)
	ScheduleCounseling(ctx context.Context, bankID, sessionID string, scheduledAt time.Time, meetingLink, location string) (*domain.CounselingSession, error)
	CompleteCounseling(ctx context.Context, bankID, sessionID string, notes string) (*domain.CounselingSession, error)

	BeginTesting(ctx context.Context, bankID, donorID string) (*domain.Donor, error)
	UploadTestReport(ctx context.Context, bankID, donorID string, in TestReportInput) (*domain.TestReport, error)
	CompleteTesting(ctx context.Context, bankID, donorID string) (*domain.Donor, error)
	DecideEligibility(ctx context.Context, bankID, donorID string, approve bool, notes string) (*domain.Donor, error)

	ListDonors(ctx context.Context, bankID string, filter repository.DonorFilter, page, pageSize int32) ([]domain.Donor, int32, error)
	GetDonor(ctx context.Context, bankID, donorID string) (*domain.Donor, error)
	DonorHistory(ctx context.Context, bankID, donorID string) ([]domain.DonorStateHistory, error)
}

type AdminService interface {
	// VerifyBank approves or refuses a pending verification. Refusal leaves
	// the bank in review; only approval transitions.
	VerifyBank(ctx context.Context, adminID, bankID string, approve bool, notes, ipAddress string) (*domain.Bank, error)
	UpdateSubscription(ctx context.Context, adminID, bankID, tier string, expiresAt *time.Time, ipAddress string) (*domain.Bank, error)

	Dashboard(ctx context.Context) (*repository.DashboardStats, error)
	SubscriptionAnalytics(ctx context.Context) ([]repository.TierCount, []repository.MonthlyTrend, error)

	ListBanks(ctx context.Context, filter repository.BankFilter, page, pageSize int32) ([]domain.Bank, int32, error)
	GetBank(ctx context.Context, bankID string) (*domain.Bank, error)
	BankHistory(ctx context.Context, bankID string) ([]domain.BankStateHistory, error)
	ListDonors(ctx context.Context, filter repository.DonorFilter, page, pageSize int32) ([]domain.Donor, int32, error)
	GetDonor(ctx context.Context, donorID string) (*domain.Donor, error)

	ActivityLogs(ctx context.Context, page, pageSize int32) ([]domain.ActivityLog, int32, error)
}

type DocumentService interface {
	// Upload validates and stores a PDF, returning the persistent reference.
	Upload(ctx context.Context, bucket, fileName, contentType string, size int64, r io.Reader) (*domain.DocumentRef, error)
}

type EmailService interface {
	SendBankWelcome(ctx context.Context, email, bankName string) error
	SendVerificationDecision(ctx context.Context, email, bankName string, approved bool, notes string) error
	SendSubscriptionActivated(ctx context.Context, email, bankName, tier string, expiresAt time.Time) error
	SendSubscriptionExpiryReminder(ctx context.Context, email, bankName string, expiresAt time.Time) error
	SendDonorWelcome(ctx context.Context, email, firstName, bankName string) error
	SendEligibilityDecision(ctx context.Context, email, firstName string, approved bool, notes string) error
}
