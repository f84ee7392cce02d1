package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/repository"
)

// passthroughTx runs the function without a real transaction.
type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockBankRepo
type MockBankRepo struct {
	mock.Mock
}

func (m *MockBankRepo) Create(ctx context.Context, bank *domain.Bank) error {
	args := m.Called(ctx, bank)
	return args.Error(0)
}
func (m *MockBankRepo) GetByID(ctx context.Context, id string) (*domain.Bank, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bank), args.Error(1)
}
func (m *MockBankRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Bank, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bank), args.Error(1)
}
func (m *MockBankRepo) GetByEmail(ctx context.Context, email string) (*domain.Bank, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Bank), args.Error(1)
}
func (m *MockBankRepo) Update(ctx context.Context, bank *domain.Bank) error {
	args := m.Called(ctx, bank)
	return args.Error(0)
}
func (m *MockBankRepo) ListPublic(ctx context.Context, location, search string) ([]domain.Bank, error) {
	args := m.Called(ctx, location, search)
	return args.Get(0).([]domain.Bank), args.Error(1)
}
func (m *MockBankRepo) List(ctx context.Context, filter repository.BankFilter, page, pageSize int32) ([]domain.Bank, int32, error) {
	args := m.Called(ctx, filter, page, pageSize)
	return args.Get(0).([]domain.Bank), args.Get(1).(int32), args.Error(2)
}

// MockDonorRepo
type MockDonorRepo struct {
	mock.Mock
}

func (m *MockDonorRepo) Create(ctx context.Context, donor *domain.Donor) error {
	args := m.Called(ctx, donor)
	return args.Error(0)
}
func (m *MockDonorRepo) GetByID(ctx context.Context, id string) (*domain.Donor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Donor), args.Error(1)
}
func (m *MockDonorRepo) GetByIDForUpdate(ctx context.Context, id string) (*domain.Donor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Donor), args.Error(1)
}
func (m *MockDonorRepo) GetByEmail(ctx context.Context, email string) (*domain.Donor, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Donor), args.Error(1)
}
func (m *MockDonorRepo) Update(ctx context.Context, donor *domain.Donor) error {
	args := m.Called(ctx, donor)
	return args.Error(0)
}
func (m *MockDonorRepo) ListByBank(ctx context.Context, bankID string) ([]domain.Donor, error) {
	args := m.Called(ctx, bankID)
	return args.Get(0).([]domain.Donor), args.Error(1)
}
func (m *MockDonorRepo) List(ctx context.Context, filter repository.DonorFilter, page, pageSize int32) ([]domain.Donor, int32, error) {
	args := m.Called(ctx, filter, page, pageSize)
	return args.Get(0).([]domain.Donor), args.Get(1).(int32), args.Error(2)
}
func (m *MockDonorRepo) CountByBank(ctx context.Context, bankID string) (int32, error) {
	args := m.Called(ctx, bankID)
	return args.Get(0).(int32), args.Error(1)
}

// MockConsentRepo
type MockConsentRepo struct {
	mock.Mock
}

func (m *MockConsentRepo) CreateTemplate(ctx context.Context, tpl *domain.ConsentTemplate) error {
	args := m.Called(ctx, tpl)
	return args.Error(0)
}
func (m *MockConsentRepo) GetTemplate(ctx context.Context, id string) (*domain.ConsentTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ConsentTemplate), args.Error(1)
}
func (m *MockConsentRepo) UpdateTemplate(ctx context.Context, tpl *domain.ConsentTemplate) error {
	args := m.Called(ctx, tpl)
	return args.Error(0)
}
func (m *MockConsentRepo) ListTemplatesByBank(ctx context.Context, bankID string, activeOnly bool) ([]domain.ConsentTemplate, error) {
	args := m.Called(ctx, bankID, activeOnly)
	return args.Get(0).([]domain.ConsentTemplate), args.Error(1)
}
func (m *MockConsentRepo) CountActiveTemplates(ctx context.Context, bankID string) (int32, error) {
	args := m.Called(ctx, bankID)
	return args.Get(0).(int32), args.Error(1)
}
func (m *MockConsentRepo) CreateConsent(ctx context.Context, consent *domain.DonorConsent) error {
	args := m.Called(ctx, consent)
	return args.Error(0)
}
func (m *MockConsentRepo) GetConsent(ctx context.Context, id string) (*domain.DonorConsent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DonorConsent), args.Error(1)
}
func (m *MockConsentRepo) GetConsentForUpdate(ctx context.Context, id string) (*domain.DonorConsent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DonorConsent), args.Error(1)
}
func (m *MockConsentRepo) GetConsentByTemplate(ctx context.Context, donorID, templateID string) (*domain.DonorConsent, error) {
	args := m.Called(ctx, donorID, templateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DonorConsent), args.Error(1)
}
func (m *MockConsentRepo) UpdateConsent(ctx context.Context, consent *domain.DonorConsent) error {
	args := m.Called(ctx, consent)
	return args.Error(0)
}
func (m *MockConsentRepo) ListConsentsByDonor(ctx context.Context, donorID string) ([]domain.DonorConsent, error) {
	args := m.Called(ctx, donorID)
	return args.Get(0).([]domain.DonorConsent), args.Error(1)
}
func (m *MockConsentRepo) CountConsentsByStatus(ctx context.Context, donorID string, statuses ...domain.ConsentStatus) (int32, error) {
	callArgs := []any{ctx, donorID}
	for _, s := range statuses {
		callArgs = append(callArgs, s)
	}
	args := m.Called(callArgs...)
	return args.Get(0).(int32), args.Error(1)
}

// MockCounselingRepo
type MockCounselingRepo struct {
	mock.Mock
}

func (m *MockCounselingRepo) Create(ctx context.Context, session *domain.CounselingSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}
func (m *MockCounselingRepo) GetByID(ctx context.Context, id string) (*domain.CounselingSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CounselingSession), args.Error(1)
}
func (m *MockCounselingRepo) Update(ctx context.Context, session *domain.CounselingSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}
func (m *MockCounselingRepo) ListByDonor(ctx context.Context, donorID string) ([]domain.CounselingSession, error) {
	args := m.Called(ctx, donorID)
	return args.Get(0).([]domain.CounselingSession), args.Error(1)
}
func (m *MockCounselingRepo) ListByBank(ctx context.Context, bankID string, status string) ([]domain.CounselingSession, error) {
	args := m.Called(ctx, bankID, status)
	return args.Get(0).([]domain.CounselingSession), args.Error(1)
}

// MockTestReportRepo
type MockTestReportRepo struct {
	mock.Mock
}

func (m *MockTestReportRepo) Create(ctx context.Context, report *domain.TestReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}
func (m *MockTestReportRepo) GetByID(ctx context.Context, id string) (*domain.TestReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TestReport), args.Error(1)
}
func (m *MockTestReportRepo) ListByDonor(ctx context.Context, donorID string) ([]domain.TestReport, error) {
	args := m.Called(ctx, donorID)
	return args.Get(0).([]domain.TestReport), args.Error(1)
}

// MockHistoryRepo
type MockHistoryRepo struct {
	mock.Mock
}

func (m *MockHistoryRepo) AppendDonor(ctx context.Context, h *domain.DonorStateHistory) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}
func (m *MockHistoryRepo) ListDonor(ctx context.Context, donorID string) ([]domain.DonorStateHistory, error) {
	args := m.Called(ctx, donorID)
	return args.Get(0).([]domain.DonorStateHistory), args.Error(1)
}
func (m *MockHistoryRepo) AppendBank(ctx context.Context, h *domain.BankStateHistory) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}
func (m *MockHistoryRepo) ListBank(ctx context.Context, bankID string) ([]domain.BankStateHistory, error) {
	args := m.Called(ctx, bankID)
	return args.Get(0).([]domain.BankStateHistory), args.Error(1)
}

// MockAdminRepo
type MockAdminRepo struct {
	mock.Mock
}

func (m *MockAdminRepo) Create(ctx context.Context, admin *domain.Admin) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}
func (m *MockAdminRepo) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Admin), args.Error(1)
}
func (m *MockAdminRepo) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Admin), args.Error(1)
}
func (m *MockAdminRepo) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

// MockActivityRepo
type MockActivityRepo struct {
	mock.Mock
}

func (m *MockActivityRepo) Create(ctx context.Context, log *domain.ActivityLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}
func (m *MockActivityRepo) List(ctx context.Context, page, pageSize int32) ([]domain.ActivityLog, int32, error) {
	args := m.Called(ctx, page, pageSize)
	return args.Get(0).([]domain.ActivityLog), args.Get(1).(int32), args.Error(2)
}

// MockAnalyticsRepo
type MockAnalyticsRepo struct {
	mock.Mock
}

func (m *MockAnalyticsRepo) Dashboard(ctx context.Context, now time.Time) (*repository.DashboardStats, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.DashboardStats), args.Error(1)
}
func (m *MockAnalyticsRepo) SubscriptionTiers(ctx context.Context) ([]repository.TierCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]repository.TierCount), args.Error(1)
}
func (m *MockAnalyticsRepo) MonthlySubscriptionTrend(ctx context.Context, now time.Time, months int) ([]repository.MonthlyTrend, error) {
	args := m.Called(ctx, now, months)
	return args.Get(0).([]repository.MonthlyTrend), args.Error(1)
}
func (m *MockAnalyticsRepo) ExpiringBanks(ctx context.Context, now time.Time, within time.Duration) ([]domain.Bank, error) {
	args := m.Called(ctx, now, within)
	return args.Get(0).([]domain.Bank), args.Error(1)
}
func (m *MockAnalyticsRepo) MarkExpiredSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendBankWelcome(ctx context.Context, email, bankName string) error {
	args := m.Called(ctx, email, bankName)
	return args.Error(0)
}
func (m *MockEmailService) SendVerificationDecision(ctx context.Context, email, bankName string, approved bool, notes string) error {
	args := m.Called(ctx, email, bankName, approved, notes)
	return args.Error(0)
}
func (m *MockEmailService) SendSubscriptionActivated(ctx context.Context, email, bankName, tier string, expiresAt time.Time) error {
	args := m.Called(ctx, email, bankName, tier, expiresAt)
	return args.Error(0)
}
func (m *MockEmailService) SendSubscriptionExpiryReminder(ctx context.Context, email, bankName string, expiresAt time.Time) error {
	args := m.Called(ctx, email, bankName, expiresAt)
	return args.Error(0)
}
func (m *MockEmailService) SendDonorWelcome(ctx context.Context, email, firstName, bankName string) error {
	args := m.Called(ctx, email, firstName, bankName)
	return args.Error(0)
}
func (m *MockEmailService) SendEligibilityDecision(ctx context.Context, email, firstName string, approved bool, notes string) error {
	args := m.Called(ctx, email, firstName, approved, notes)
	return args.Error(0)
}
