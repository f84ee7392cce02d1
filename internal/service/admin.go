package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/logger"
	"donorlink-backend/internal/repository"
	"donorlink-backend/internal/workflow"
)

type adminService struct {
	tx            repository.Transactor
	bankRepo      repository.BankRepository
	donorRepo     repository.DonorRepository
	historyRepo   repository.HistoryRepository
	activityRepo  repository.ActivityLogRepository
	analyticsRepo repository.AnalyticsRepository
	guard         *workflow.Guard
	emailSvc      EmailService
}

func NewAdminService(
	tx repository.Transactor,
	bankRepo repository.BankRepository,
	donorRepo repository.DonorRepository,
	historyRepo repository.HistoryRepository,
	activityRepo repository.ActivityLogRepository,
	analyticsRepo repository.AnalyticsRepository,
	guard *workflow.Guard,
	emailSvc EmailService,
) AdminService {
	return &adminService{
		tx:            tx,
		bankRepo:      bankRepo,
		donorRepo:     donorRepo,
		historyRepo:   historyRepo,
		activityRepo:  activityRepo,
		analyticsRepo: analyticsRepo,
		guard:         guard,
		emailSvc:      emailSvc,
	}
}

func (s *adminService) VerifyBank(ctx context.Context, adminID, bankID string, approve bool, notes, ipAddress string) (*domain.Bank, error) {
	var bank *domain.Bank
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.bankRepo.GetByIDForUpdate(ctx, bankID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("bank")
			}
			return err
		}

		if approve {
			dec := evaluateBank(s.guard, b, workflow.ActionVerifyBank, domain.RoleAdmin)
			if !dec.Allowed {
				return denied(ctx, "bank", b.ID, workflow.ActionVerifyBank, dec)
			}
			if err := commitBankTransition(ctx, s.bankRepo, s.historyRepo, b, dec,
				workflow.ActionVerifyBank, adminID, domain.RoleAdmin, notes); err != nil {
				return err
			}
		} else {
			// Refusal keeps the bank in review so it can resubmit.
			if b.State != domain.BankStateVerificationPending {
				return domain.NewWorkflowError(domain.CodeInvalidTransition,
					"bank is %s, not awaiting verification", b.State)
			}
		}

		if err := s.activityRepo.Create(ctx, &domain.ActivityLog{
			AdminID:    adminID,
			Action:     "bank_verification",
			EntityType: "bank",
			EntityID:   b.ID,
			Details:    map[string]any{"approved": approve, "notes": notes},
			IPAddress:  ipAddress,
		}); err != nil {
			return err
		}
		bank = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.emailSvc.SendVerificationDecision(ctx, bank.Email, bank.Name, approve, notes); err != nil {
		logger.ErrorContext(ctx, "send verification decision email", "bank_id", bank.ID, "error", err)
	}
	return bank, nil
}

func (s *adminService) UpdateSubscription(ctx context.Context, adminID, bankID, tier string, expiresAt *time.Time, ipAddress string) (*domain.Bank, error) {
	var bank *domain.Bank
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.bankRepo.GetByIDForUpdate(ctx, bankID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("bank")
			}
			return err
		}

		if tier != "" {
			b.SubscriptionTier = tier
		}
		if expiresAt != nil {
			b.SubscriptionExpiresAt = expiresAt
			b.IsSubscribed = expiresAt.After(time.Now())
		}
		if err := s.bankRepo.Update(ctx, b); err != nil {
			return err
		}

		if err := s.activityRepo.Create(ctx, &domain.ActivityLog{
			AdminID:    adminID,
			Action:     "subscription_update",
			EntityType: "bank",
			EntityID:   b.ID,
			Details:    map[string]any{"tier": tier, "expires_at": expiresAt},
			IPAddress:  ipAddress,
		}); err != nil {
			return err
		}
		bank = b
		return nil
	})
	return bank, err
}

func (s *adminService) Dashboard(ctx context.Context) (*repository.DashboardStats, error) {
	return s.analyticsRepo.Dashboard(ctx, time.Now())
}

func (s *adminService) SubscriptionAnalytics(ctx context.Context) ([]repository.TierCount, []repository.MonthlyTrend, error) {
	tiers, err := s.analyticsRepo.SubscriptionTiers(ctx)
	if err != nil {
		return nil, nil, err
	}
	trend, err := s.analyticsRepo.MonthlySubscriptionTrend(ctx, time.Now(), 6)
	if err != nil {
		return nil, nil, err
	}
	return tiers, trend, nil
}

func (s *adminService) ListBanks(ctx context.Context, filter repository.BankFilter, page, pageSize int32) ([]domain.Bank, int32, error) {
	return s.bankRepo.List(ctx, filter, page, pageSize)
}

func (s *adminService) GetBank(ctx context.Context, bankID string) (*domain.Bank, error) {
	b, err := s.bankRepo.GetByID(ctx, bankID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("bank")
		}
		return nil, err
	}
	return b, nil
}

func (s *adminService) BankHistory(ctx context.Context, bankID string) ([]domain.BankStateHistory, error) {
	return s.historyRepo.ListBank(ctx, bankID)
}

func (s *adminService) ListDonors(ctx context.Context, filter repository.DonorFilter, page, pageSize int32) ([]domain.Donor, int32, error) {
	return s.donorRepo.List(ctx, filter, page, pageSize)
}

func (s *adminService) GetDonor(ctx context.Context, donorID string) (*domain.Donor, error) {
	d, err := s.donorRepo.GetByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("donor")
		}
		return nil, err
	}
	return d, nil
}

func (s *adminService) ActivityLogs(ctx context.Context, page, pageSize int32) ([]domain.ActivityLog, int32, error) {
	return s.activityRepo.List(ctx, page, pageSize)
}
