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

type bankService struct {
	tx             repository.Transactor
	bankRepo       repository.BankRepository
	donorRepo      repository.DonorRepository
	consentRepo    repository.ConsentRepository
	counselingRepo repository.CounselingRepository
	testRepo       repository.TestReportRepository
	historyRepo    repository.HistoryRepository
	guard          *workflow.Guard
	emailSvc       EmailService
}

func NewBankService(
	tx repository.Transactor,
	bankRepo repository.BankRepository,
	donorRepo repository.DonorRepository,
	consentRepo repository.ConsentRepository,
	counselingRepo repository.CounselingRepository,
	testRepo repository.TestReportRepository,
	historyRepo repository.HistoryRepository,
	guard *workflow.Guard,
	emailSvc EmailService,
) BankService {
	return &bankService{
		tx:             tx,
		bankRepo:       bankRepo,
		donorRepo:      donorRepo,
		consentRepo:    consentRepo,
		counselingRepo: counselingRepo,
		testRepo:       testRepo,
		historyRepo:    historyRepo,
		guard:          guard,
		emailSvc:       emailSvc,
	}
}

func (s *bankService) GetProfile(ctx context.Context, bankID string) (*domain.Bank, error) {
	return s.getBank(ctx, bankID)
}

func (s *bankService) UpdateProfile(ctx context.Context, bankID string, name, address, phone, website, description, logoURL string) (*domain.Bank, error) {
	bank, err := s.getBank(ctx, bankID)
	if err != nil {
		return nil, err
	}
	if name != "" {
		bank.Name = name
	}
	bank.Address = address
	bank.Phone = phone
	bank.Website = website
	bank.Description = description
	if logoURL != "" {
		bank.LogoURL = logoURL
	}
	if err := s.bankRepo.Update(ctx, bank); err != nil {
		return nil, err
	}
	return bank, nil
}

func (s *bankService) UpdateCounselingConfig(ctx context.Context, bankID string, cfg domain.CounselingConfig) (*domain.Bank, error) {
	for _, m := range cfg.Methods {
		switch m {
		case domain.CounselingMethodCall, domain.CounselingMethodVideo,
			domain.CounselingMethodInPerson, domain.CounselingMethodEmail:
		default:
			return nil, domain.NewWorkflowError(domain.CodeValidation, "unknown counseling method %q", m)
		}
	}

	bank, err := s.getBank(ctx, bankID)
	if err != nil {
		return nil, err
	}
	bank.CounselingConfig = &cfg
	if err := s.bankRepo.Update(ctx, bank); err != nil {
		return nil, err
	}
	return bank, nil
}

func (s *bankService) SubmitCertification(ctx context.Context, bankID string, docs []domain.DocumentRef) (*domain.Bank, error) {
	if len(docs) == 0 {
		return nil, domain.NewWorkflowError(domain.CodeValidation, "at least one certification document is required")
	}

	var bank *domain.Bank
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.lockBank(ctx, bankID)
		if err != nil {
			return err
		}

		b.CertificationDocuments = append(b.CertificationDocuments, docs...)

		// Documents can be attached at any stage; only the first submission
		// moves the bank into verification review.
		if b.State != domain.BankStateAccountCreated {
			if err := s.bankRepo.Update(ctx, b); err != nil {
				return err
			}
			bank = b
			return nil
		}

		dec := evaluateBank(s.guard, b, workflow.ActionSubmitCertification, domain.RoleBank)
		if !dec.Allowed {
			return denied(ctx, "bank", b.ID, workflow.ActionSubmitCertification, dec)
		}
		if err := commitBankTransition(ctx, s.bankRepo, s.historyRepo, b, dec,
			workflow.ActionSubmitCertification, b.ID, domain.RoleBank, "certification submitted"); err != nil {
			return err
		}
		bank = b
		return nil
	})
	return bank, err
}

func (s *bankService) ActivateSubscription(ctx context.Context, bankID string, in SubscriptionInput) (*domain.Bank, error) {
	if in.Tier == "" {
		return nil, domain.NewWorkflowError(domain.CodeValidation, "subscription tier is required")
	}
	months := in.Months
	if months <= 0 {
		months = 12
	}

	var bank *domain.Bank
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.lockBank(ctx, bankID)
		if err != nil {
			return err
		}

		dec := evaluateBank(s.guard, b, workflow.ActionActivateSubscription, domain.RoleBank)
		if !dec.Allowed {
			return denied(ctx, "bank", b.ID, workflow.ActionActivateSubscription, dec)
		}

		b.SubscriptionTier = in.Tier
		if b.BillingDetails == nil {
			b.BillingDetails = map[string]any{}
		}
		for k, v := range in.BillingDetails {
			b.BillingDetails[k] = v
		}
		b.BillingDetails["term_months"] = months

		if err := commitBankTransition(ctx, s.bankRepo, s.historyRepo, b, dec,
			workflow.ActionActivateSubscription, b.ID, domain.RoleBank, "subscription purchase started"); err != nil {
			return err
		}
		bank = b
		return nil
	})
	return bank, err
}

func (s *bankService) ConfirmSubscription(ctx context.Context, bankID string) (*domain.Bank, error) {
	var bank *domain.Bank
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		b, err := s.lockBank(ctx, bankID)
		if err != nil {
			return err
		}

		dec := evaluateBank(s.guard, b, workflow.ActionConfirmSubscription, domain.RoleBank)
		if !dec.Allowed {
			return denied(ctx, "bank", b.ID, workflow.ActionConfirmSubscription, dec)
		}

		now := time.Now()
		expires := now.AddDate(0, subscriptionTermMonths(b), 0)
		b.IsSubscribed = true
		b.SubscriptionStartedAt = &now
		b.SubscriptionExpiresAt = &expires

		if err := commitBankTransition(ctx, s.bankRepo, s.historyRepo, b, dec,
			workflow.ActionConfirmSubscription, b.ID, domain.RoleBank, "payment confirmed"); err != nil {
			return err
		}

		// Verified and subscribed now both hold, so the bank goes straight to
		// operational. Both steps are audited separately.
		opDec := evaluateBank(s.guard, b, workflow.ActionGoOperational, domain.RoleBank)
		if !opDec.Allowed {
			return denied(ctx, "bank", b.ID, workflow.ActionGoOperational, opDec)
		}
		if err := commitBankTransition(ctx, s.bankRepo, s.historyRepo, b, opDec,
			workflow.ActionGoOperational, b.ID, domain.RoleBank, "verification and subscription in place"); err != nil {
			return err
		}
		bank = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.emailSvc.SendSubscriptionActivated(ctx, bank.Email, bank.Name, bank.SubscriptionTier, *bank.SubscriptionExpiresAt); err != nil {
		logger.ErrorContext(ctx, "send subscription activated email", "bank_id", bank.ID, "error", err)
	}
	return bank, nil
}

func subscriptionTermMonths(b *domain.Bank) int {
	if v, ok := b.BillingDetails["term_months"]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64: // JSON round trip
			return int(n)
		}
	}
	return 12
}

func (s *bankService) CreateConsentTemplate(ctx context.Context, bankID string, title, content, version string, order int32) (*domain.ConsentTemplate, error) {
	if title == "" || content == "" {
		return nil, domain.NewWorkflowError(domain.CodeValidation, "title and content are required")
	}
	if order < 1 || order > domain.RequiredConsentCount {
		return nil, domain.NewWorkflowError(domain.CodeValidation,
			"order must be between 1 and %d", domain.RequiredConsentCount)
	}

	active, err := s.consentRepo.CountActiveTemplates(ctx, bankID)
	if err != nil {
		return nil, err
	}
	if active >= domain.RequiredConsentCount {
		return nil, domain.NewWorkflowError(domain.CodeConflict,
			"bank already has %d active consent templates", domain.RequiredConsentCount)
	}

	tpl := &domain.ConsentTemplate{
		BankID:   bankID,
		Title:    title,
		Content:  content,
		Version:  version,
		Order:    order,
		IsActive: true,
	}
	if err := s.consentRepo.CreateTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *bankService) UpdateConsentTemplate(ctx context.Context, bankID, templateID string, title, content, version string, isActive bool) (*domain.ConsentTemplate, error) {
	tpl, err := s.consentRepo.GetTemplate(ctx, templateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("consent template")
		}
		return nil, err
	}
	if tpl.BankID != bankID {
		return nil, notFound("consent template")
	}

	if title != "" {
		tpl.Title = title
	}
	if content != "" {
		tpl.Content = content
	}
	if version != "" {
		tpl.Version = version
	}
	tpl.IsActive = isActive
	if err := s.consentRepo.UpdateTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *bankService) ListConsentTemplates(ctx context.Context, bankID string) ([]domain.ConsentTemplate, error) {
	return s.consentRepo.ListTemplatesByBank(ctx, bankID, false)
}

func (s *bankService) VerifyConsent(ctx context.Context, bankID, consentID string, approve bool, notes string) (*domain.DonorConsent, error) {
	var consent *domain.DonorConsent
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		c, err := s.consentRepo.GetConsentForUpdate(ctx, consentID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("consent")
			}
			return err
		}

		d, err := s.donorRepo.GetByIDForUpdate(ctx, c.DonorID)
		if err != nil {
			return err
		}
		if d.BankID == nil || *d.BankID != bankID {
			return notFound("consent")
		}
		if c.Status != domain.ConsentStatusSigned {
			return domain.NewWorkflowError(domain.CodeConflict,
				"consent is %s, only signed consents can be reviewed", c.Status)
		}

		now := time.Now()
		if approve {
			c.Status = domain.ConsentStatusVerified
			c.VerifiedAt = &now
			c.VerifiedBy = bankID
		} else {
			c.Status = domain.ConsentStatusRejected
		}
		c.VerificationNotes = notes
		if err := s.consentRepo.UpdateConsent(ctx, c); err != nil {
			return err
		}
		consent = c

		if !approve {
			return nil
		}

		// Approving the last outstanding consent completes the stage.
		verified, err := s.consentRepo.CountConsentsByStatus(ctx, d.ID, domain.ConsentStatusVerified)
		if err != nil {
			return err
		}
		if int(verified) < domain.RequiredConsentCount || d.State != domain.DonorStateConsentPending {
			return nil
		}

		dec, err := evaluateDonor(ctx, s.guard, s.consentRepo, d, workflow.ActionCompleteConsent, domain.RoleBank)
		if err != nil {
			return err
		}
		if !dec.Allowed {
			return denied(ctx, "donor", d.ID, workflow.ActionCompleteConsent, dec)
		}
		return commitDonorTransition(ctx, s.donorRepo, s.historyRepo, d, dec,
			workflow.ActionCompleteConsent, bankID, domain.RoleBank, "all consents verified")
	})
	return consent, err
}

func (s *bankService) ListCounselingSessions(ctx context.Context, bankID, status string) ([]domain.CounselingSession, error) {
	return s.counselingRepo.ListByBank(ctx, bankID, status)
}

func (s *bankService) ScheduleCounseling(ctx context.Context, bankID, sessionID string, scheduledAt time.Time, meetingLink, location string) (*domain.CounselingSession, error) {
	sess, err := s.ownedSession(ctx, bankID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != domain.CounselingStatusRequested && sess.Status != domain.CounselingStatusScheduled {
		return nil, domain.NewWorkflowError(domain.CodeConflict, "session is %s", sess.Status)
	}

	sess.Status = domain.CounselingStatusScheduled
	sess.ScheduledAt = &scheduledAt
	sess.MeetingLink = meetingLink
	sess.Location = location
	if err := s.counselingRepo.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *bankService) CompleteCounseling(ctx context.Context, bankID, sessionID string, notes string) (*domain.CounselingSession, error) {
	sess, err := s.ownedSession(ctx, bankID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != domain.CounselingStatusScheduled {
		return nil, domain.NewWorkflowError(domain.CodeConflict,
			"only scheduled sessions can be completed, session is %s", sess.Status)
	}

	now := time.Now()
	sess.Status = domain.CounselingStatusCompleted
	sess.CompletedAt = &now
	if notes != "" {
		sess.Notes = notes
	}
	if err := s.counselingRepo.Update(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *bankService) BeginTesting(ctx context.Context, bankID, donorID string) (*domain.Donor, error) {
	return s.transitionOwnedDonor(ctx, bankID, donorID, workflow.ActionBeginTesting, "testing stage opened", nil)
}

func (s *bankService) UploadTestReport(ctx context.Context, bankID, donorID string, in TestReportInput) (*domain.TestReport, error) {
	if in.FileURL == "" || in.TestType == "" {
		return nil, domain.NewWorkflowError(domain.CodeValidation, "test type and file are required")
	}

	var report *domain.TestReport
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.lockOwnedDonor(ctx, bankID, donorID)
		if err != nil {
			return err
		}

		// The first bank-conducted result opens the testing stage.
		if d.State == domain.DonorStateConsentVerified {
			dec, err := evaluateDonor(ctx, s.guard, s.consentRepo, d, workflow.ActionBeginTesting, domain.RoleBank)
			if err != nil {
				return err
			}
			if !dec.Allowed {
				return denied(ctx, "donor", d.ID, workflow.ActionBeginTesting, dec)
			}
			if err := commitDonorTransition(ctx, s.donorRepo, s.historyRepo, d, dec,
				workflow.ActionBeginTesting, bankID, domain.RoleBank, "testing stage opened"); err != nil {
				return err
			}
		}
		if d.State != domain.DonorStateTestsPending {
			return domain.NewWorkflowError(domain.CodeInvalidTransition,
				"test reports can only be added while tests are pending, donor is %s", d.State)
		}

		r := &domain.TestReport{
			DonorID:    d.ID,
			BankID:     bankID,
			Source:     domain.TestSourceBankConducted,
			TestType:   in.TestType,
			TestName:   in.TestName,
			FileURL:    in.FileURL,
			FileName:   in.FileName,
			UploadedBy: bankID,
			UploadedAt: time.Now(),
			TestDate:   in.TestDate,
			LabName:    in.LabName,
			Notes:      in.Notes,
		}
		if err := s.testRepo.Create(ctx, r); err != nil {
			return err
		}
		report = r
		return nil
	})
	return report, err
}

func (s *bankService) CompleteTesting(ctx context.Context, bankID, donorID string) (*domain.Donor, error) {
	return s.transitionOwnedDonor(ctx, bankID, donorID, workflow.ActionCompleteTesting, "testing completed", nil)
}

func (s *bankService) DecideEligibility(ctx context.Context, bankID, donorID string, approve bool, notes string) (*domain.Donor, error) {
	var donor *domain.Donor
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.lockOwnedDonor(ctx, bankID, donorID)
		if err != nil {
			return err
		}

		if !approve {
			if d.State != domain.DonorStateEligibilityDecision {
				return domain.NewWorkflowError(domain.CodeInvalidTransition,
					"cannot decide eligibility from state %s", d.State)
			}
			// A rejection keeps the donor in place; whether it can be
			// revisited is a deployment switch.
			now := time.Now()
			d.EligibilityStatus = domain.EligibilityRejected
			d.EligibilityNotes = notes
			d.EligibilityDecidedAt = &now
			if err := s.donorRepo.Update(ctx, d); err != nil {
				return err
			}
			donor = d
			return nil
		}

		dec, err := evaluateDonor(ctx, s.guard, s.consentRepo, d, workflow.ActionDecideEligibility, domain.RoleBank)
		if err != nil {
			return err
		}
		if !dec.Allowed {
			return denied(ctx, "donor", d.ID, workflow.ActionDecideEligibility, dec)
		}

		d.EligibilityStatus = domain.EligibilityApproved
		d.EligibilityNotes = notes
		if err := commitDonorTransition(ctx, s.donorRepo, s.historyRepo, d, dec,
			workflow.ActionDecideEligibility, bankID, domain.RoleBank, "eligibility approved"); err != nil {
			return err
		}
		donor = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	if donor.Email != "" {
		if err := s.emailSvc.SendEligibilityDecision(ctx, donor.Email, donor.FirstName, approve, notes); err != nil {
			logger.ErrorContext(ctx, "send eligibility decision email", "donor_id", donor.ID, "error", err)
		}
	}
	return donor, nil
}

func (s *bankService) ListDonors(ctx context.Context, bankID string, filter repository.DonorFilter, page, pageSize int32) ([]domain.Donor, int32, error) {
	filter.BankID = bankID
	return s.donorRepo.List(ctx, filter, page, pageSize)
}

func (s *bankService) GetDonor(ctx context.Context, bankID, donorID string) (*domain.Donor, error) {
	return s.ownedDonor(ctx, bankID, donorID)
}

func (s *bankService) DonorHistory(ctx context.Context, bankID, donorID string) ([]domain.DonorStateHistory, error) {
	if _, err := s.ownedDonor(ctx, bankID, donorID); err != nil {
		return nil, err
	}
	return s.historyRepo.ListDonor(ctx, donorID)
}

// transitionOwnedDonor runs a single bank-driven donor transition in its own
// transaction.
func (s *bankService) transitionOwnedDonor(ctx context.Context, bankID, donorID string, action workflow.Action, reason string, mutate func(*domain.Donor)) (*domain.Donor, error) {
	var donor *domain.Donor
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.lockOwnedDonor(ctx, bankID, donorID)
		if err != nil {
			return err
		}

		dec, err := evaluateDonor(ctx, s.guard, s.consentRepo, d, action, domain.RoleBank)
		if err != nil {
			return err
		}
		if !dec.Allowed {
			return denied(ctx, "donor", d.ID, action, dec)
		}

		if mutate != nil {
			mutate(d)
		}
		if err := commitDonorTransition(ctx, s.donorRepo, s.historyRepo, d, dec,
			action, bankID, domain.RoleBank, reason); err != nil {
			return err
		}
		donor = d
		return nil
	})
	return donor, err
}

func (s *bankService) getBank(ctx context.Context, bankID string) (*domain.Bank, error) {
	b, err := s.bankRepo.GetByID(ctx, bankID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("bank")
		}
		return nil, err
	}
	return b, nil
}

func (s *bankService) lockBank(ctx context.Context, bankID string) (*domain.Bank, error) {
	b, err := s.bankRepo.GetByIDForUpdate(ctx, bankID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("bank")
		}
		return nil, err
	}
	return b, nil
}

func (s *bankService) ownedDonor(ctx context.Context, bankID, donorID string) (*domain.Donor, error) {
	d, err := s.donorRepo.GetByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("donor")
		}
		return nil, err
	}
	if d.BankID == nil || *d.BankID != bankID {
		return nil, notFound("donor")
	}
	return d, nil
}

func (s *bankService) lockOwnedDonor(ctx context.Context, bankID, donorID string) (*domain.Donor, error) {
	d, err := s.donorRepo.GetByIDForUpdate(ctx, donorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("donor")
		}
		return nil, err
	}
	if d.BankID == nil || *d.BankID != bankID {
		return nil, notFound("donor")
	}
	return d, nil
}

func (s *bankService) ownedSession(ctx context.Context, bankID, sessionID string) (*domain.CounselingSession, error) {
	sess, err := s.counselingRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("counseling session")
		}
		return nil, err
	}
	if sess.BankID != bankID {
		return nil, notFound("counseling session")
	}
	return sess, nil
}
