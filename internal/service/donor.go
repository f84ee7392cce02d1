package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/logger"
	"donorlink-backend/internal/repository"
	"donorlink-backend/internal/workflow"
)

type donorService struct {
	tx             repository.Transactor
	donorRepo      repository.DonorRepository
	bankRepo       repository.BankRepository
	consentRepo    repository.ConsentRepository
	counselingRepo repository.CounselingRepository
	testRepo       repository.TestReportRepository
	historyRepo    repository.HistoryRepository
	guard          *workflow.Guard
	emailSvc       EmailService
}

func NewDonorService(
	tx repository.Transactor,
	donorRepo repository.DonorRepository,
	bankRepo repository.BankRepository,
	consentRepo repository.ConsentRepository,
	counselingRepo repository.CounselingRepository,
	testRepo repository.TestReportRepository,
	historyRepo repository.HistoryRepository,
	guard *workflow.Guard,
	emailSvc EmailService,
) DonorService {
	return &donorService{
		tx:             tx,
		donorRepo:      donorRepo,
		bankRepo:       bankRepo,
		consentRepo:    consentRepo,
		counselingRepo: counselingRepo,
		testRepo:       testRepo,
		historyRepo:    historyRepo,
		guard:          guard,
		emailSvc:       emailSvc,
	}
}

func notFound(entity string) error {
	return domain.NewWorkflowError(domain.CodeNotFound, "%s not found", entity)
}

func (s *donorService) ListBanks(ctx context.Context, location, search string) ([]domain.Bank, error) {
	return s.bankRepo.ListPublic(ctx, location, search)
}

func (s *donorService) GetBank(ctx context.Context, bankID string) (*domain.Bank, error) {
	bank, err := s.bankRepo.GetByID(ctx, bankID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("bank")
		}
		return nil, err
	}
	// The public surface only shows banks accepting donors.
	if !bank.IsVerified || !bank.IsSubscribed {
		return nil, notFound("bank")
	}
	return bank, nil
}

func (s *donorService) SelectBank(ctx context.Context, bankID string) (*domain.Donor, error) {
	var donor *domain.Donor
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		bank, err := s.bankRepo.GetByID(ctx, bankID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("bank")
			}
			return err
		}
		if !bank.IsVerified || !bank.IsSubscribed {
			return domain.NewWorkflowError(domain.CodePreconditionUnmet, "bank is not accepting donors")
		}

		d := &domain.Donor{
			State:             domain.DonorStateVisitor,
			EligibilityStatus: domain.EligibilityPending,
		}
		if err := s.donorRepo.Create(ctx, d); err != nil {
			return err
		}

		dec, err := evaluateDonor(ctx, s.guard, s.consentRepo, d, workflow.ActionSelectBank, domain.RoleDonor)
		if err != nil {
			return err
		}
		if !dec.Allowed {
			return denied(ctx, "donor", d.ID, workflow.ActionSelectBank, dec)
		}

		now := time.Now()
		d.BankID = &bankID
		d.SelectedAt = &now
		if err := commitDonorTransition(ctx, s.donorRepo, s.historyRepo, d, dec,
			workflow.ActionSelectBank, d.ID, domain.RoleDonor, "bank selected"); err != nil {
			return err
		}
		donor = d
		return nil
	})
	return donor, err
}

func (s *donorService) CreateLead(ctx context.Context, donorID string, in DonorLeadInput) (*domain.Donor, error) {
	if in.FirstName == "" || in.LastName == "" {
		return nil, domain.NewWorkflowError(domain.CodeValidation, "first and last name are required")
	}

	var donor *domain.Donor
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.lockDonor(ctx, donorID)
		if err != nil {
			return err
		}

		dec, err := evaluateDonor(ctx, s.guard, s.consentRepo, d, workflow.ActionCreateLead, domain.RoleDonor)
		if err != nil {
			return err
		}
		if !dec.Allowed {
			return denied(ctx, "donor", d.ID, workflow.ActionCreateLead, dec)
		}

		d.FirstName = in.FirstName
		d.LastName = in.LastName
		d.Phone = in.Phone
		d.MedicalInterestInfo = in.MedicalInterestInfo
		if err := commitDonorTransition(ctx, s.donorRepo, s.historyRepo, d, dec,
			workflow.ActionCreateLead, d.ID, domain.RoleDonor, "interest form submitted"); err != nil {
			return err
		}
		donor = d
		return nil
	})
	return donor, err
}

func (s *donorService) CreateAccount(ctx context.Context, donorID string, in DonorAccountInput) (*domain.Donor, error) {
	if in.Email == "" || in.Password == "" {
		return nil, domain.NewWorkflowError(domain.CodeValidation, "email and password are required")
	}
	if len(in.Password) < 8 {
		return nil, domain.NewWorkflowError(domain.CodeValidation, "password must be at least 8 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var donor *domain.Donor
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if existing, err := s.donorRepo.GetByEmail(ctx, in.Email); err == nil && existing != nil && existing.ID != donorID {
			return domain.NewWorkflowError(domain.CodeConflict, "a donor with this email already exists")
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		d, err := s.lockDonor(ctx, donorID)
		if err != nil {
			return err
		}

		dec, err := evaluateDonor(ctx, s.guard, s.consentRepo, d, workflow.ActionCreateAccount, domain.RoleDonor)
		if err != nil {
			return err
		}
		if !dec.Allowed {
			return denied(ctx, "donor", d.ID, workflow.ActionCreateAccount, dec)
		}

		d.Email = in.Email
		d.HashedPassword = string(hashed)
		d.DateOfBirth = in.DateOfBirth
		d.Address = in.Address
		if err := commitDonorTransition(ctx, s.donorRepo, s.historyRepo, d, dec,
			workflow.ActionCreateAccount, d.ID, domain.RoleDonor, "account registered"); err != nil {
			return err
		}
		donor = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	if donor.BankID != nil {
		if bank, err := s.bankRepo.GetByID(ctx, *donor.BankID); err == nil {
			if err := s.emailSvc.SendDonorWelcome(ctx, donor.Email, donor.FirstName, bank.Name); err != nil {
				logger.ErrorContext(ctx, "send donor welcome email", "donor_id", donor.ID, "error", err)
			}
		}
	}
	return donor, nil
}

func (s *donorService) RequestCounseling(ctx context.Context, donorID string, method domain.CounselingMethod, notes string) (*domain.CounselingSession, error) {
	var session *domain.CounselingSession
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.lockDonor(ctx, donorID)
		if err != nil {
			return err
		}
		if d.BankID == nil {
			return domain.NewWorkflowError(domain.CodePreconditionUnmet, "no bank selected")
		}

		bank, err := s.bankRepo.GetByID(ctx, *d.BankID)
		if err != nil {
			return err
		}
		if !bank.CounselingConfig.AllowsMethod(method) {
			return domain.NewWorkflowError(domain.CodeValidation, "bank does not offer %s counseling", method)
		}

		dec, err := evaluateDonor(ctx, s.guard, s.consentRepo, d, workflow.ActionRequestCounseling, domain.RoleDonor)
		if err != nil {
			return err
		}
		if !dec.Allowed {
			return denied(ctx, "donor", d.ID, workflow.ActionRequestCounseling, dec)
		}

		sess := &domain.CounselingSession{
			DonorID:     d.ID,
			BankID:      *d.BankID,
			Status:      domain.CounselingStatusRequested,
			Method:      method,
			RequestedAt: time.Now(),
			Notes:       notes,
		}
		if bank.CounselingConfig != nil && bank.CounselingConfig.AutoApprove {
			sess.Status = domain.CounselingStatusScheduled
		}
		if err := s.counselingRepo.Create(ctx, sess); err != nil {
			return err
		}

		if err := commitDonorTransition(ctx, s.donorRepo, s.historyRepo, d, dec,
			workflow.ActionRequestCounseling, d.ID, domain.RoleDonor, "counseling requested"); err != nil {
			return err
		}
		session = sess
		return nil
	})
	return session, err
}

func (s *donorService) ListConsentTemplates(ctx context.Context, donorID string) ([]domain.ConsentTemplate, error) {
	d, err := s.getDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if d.BankID == nil {
		return nil, domain.NewWorkflowError(domain.CodePreconditionUnmet, "no bank selected")
	}
	return s.consentRepo.ListTemplatesByBank(ctx, *d.BankID, true)
}

func (s *donorService) SignConsent(ctx context.Context, donorID, templateID string, signatureData map[string]any) (*domain.DonorConsent, error) {
	var consent *domain.DonorConsent
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		d, err := s.lockDonor(ctx, donorID)
		if err != nil {
			return err
		}
		if d.BankID == nil {
			return domain.NewWorkflowError(domain.CodePreconditionUnmet, "no bank selected")
		}

		tpl, err := s.consentRepo.GetTemplate(ctx, templateID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return notFound("consent template")
			}
			return err
		}
		if tpl.BankID != *d.BankID || !tpl.IsActive {
			return notFound("consent template")
		}

		// The first signature moves the donor into the consent stage.
		if d.State == domain.DonorStateCounselingRequested {
			dec, err := evaluateDonor(ctx, s.guard, s.consentRepo, d, workflow.ActionBeginConsent, domain.RoleDonor)
			if err != nil {
				return err
			}
			if !dec.Allowed {
				return denied(ctx, "donor", d.ID, workflow.ActionBeginConsent, dec)
			}
			if err := commitDonorTransition(ctx, s.donorRepo, s.historyRepo, d, dec,
				workflow.ActionBeginConsent, d.ID, domain.RoleDonor, "first consent signed"); err != nil {
				return err
			}
		}
		if d.State != domain.DonorStateConsentPending {
			return domain.NewWorkflowError(domain.CodeInvalidTransition,
				"cannot sign consents from state %s", d.State)
		}

		now := time.Now()
		existing, err := s.consentRepo.GetConsentByTemplate(ctx, d.ID, templateID)
		switch {
		case err == nil:
			if existing.Status == domain.ConsentStatusVerified {
				return domain.NewWorkflowError(domain.CodeConflict, "consent is already verified")
			}
			if existing.Status == domain.ConsentStatusSigned {
				return domain.NewWorkflowError(domain.CodeConflict, "consent is already signed and awaiting verification")
			}
			// Re-signing after a rejection starts verification over.
			existing.Status = domain.ConsentStatusSigned
			existing.SignedAt = &now
			existing.SignatureData = signatureData
			existing.VerifiedAt = nil
			existing.VerifiedBy = ""
			existing.VerificationNotes = ""
			if err := s.consentRepo.UpdateConsent(ctx, existing); err != nil {
				return err
			}
			consent = existing
		case errors.Is(err, sql.ErrNoRows):
			c := &domain.DonorConsent{
				DonorID:       d.ID,
				TemplateID:    templateID,
				Status:        domain.ConsentStatusSigned,
				SignedAt:      &now,
				SignatureData: signatureData,
			}
			if err := s.consentRepo.CreateConsent(ctx, c); err != nil {
				return err
			}
			consent = c
		default:
			return err
		}
		return nil
	})
	return consent, err
}

func (s *donorService) ListMyConsents(ctx context.Context, donorID string) ([]domain.DonorConsent, error) {
	d, err := s.getDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	consents, err := s.consentRepo.ListConsentsByDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if d.BankID == nil || len(consents) == 0 {
		return consents, nil
	}

	templates, err := s.consentRepo.ListTemplatesByBank(ctx, *d.BankID, false)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.ConsentTemplate, len(templates))
	for i := range templates {
		byID[templates[i].ID] = &templates[i]
	}
	for i := range consents {
		consents[i].Template = byID[consents[i].TemplateID]
	}
	return consents, nil
}

func (s *donorService) UploadTestReport(ctx context.Context, donorID string, in TestReportInput) (*domain.TestReport, error) {
	d, err := s.getDonor(ctx, donorID)
	if err != nil {
		return nil, err
	}
	if d.State != domain.DonorStateTestsPending {
		return nil, domain.NewWorkflowError(domain.CodeInvalidTransition,
			"test reports can only be submitted while tests are pending, donor is %s", d.State)
	}
	if in.FileURL == "" || in.TestType == "" {
		return nil, domain.NewWorkflowError(domain.CodeValidation, "test type and file are required")
	}

	report := &domain.TestReport{
		DonorID:    d.ID,
		BankID:     *d.BankID,
		Source:     domain.TestSourceDonorSubmitted,
		TestType:   in.TestType,
		TestName:   in.TestName,
		FileURL:    in.FileURL,
		FileName:   in.FileName,
		UploadedBy: d.ID,
		UploadedAt: time.Now(),
		TestDate:   in.TestDate,
		LabName:    in.LabName,
		Notes:      in.Notes,
	}
	if err := s.testRepo.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

func (s *donorService) ListMyTestReports(ctx context.Context, donorID string) ([]domain.TestReport, error) {
	return s.testRepo.ListByDonor(ctx, donorID)
}

func (s *donorService) ListMyCounseling(ctx context.Context, donorID string) ([]domain.CounselingSession, error) {
	return s.counselingRepo.ListByDonor(ctx, donorID)
}

func (s *donorService) GetProfile(ctx context.Context, donorID string) (*domain.Donor, error) {
	return s.getDonor(ctx, donorID)
}

func (s *donorService) Status(ctx context.Context, donorID string) (*domain.Donor, domain.DonorState, error) {
	d, err := s.getDonor(ctx, donorID)
	if err != nil {
		return nil, "", err
	}
	next, err := workflow.DonorNextState(d.State)
	if err != nil {
		next = "" // terminal
	}
	return d, next, nil
}

func (s *donorService) History(ctx context.Context, donorID string) ([]domain.DonorStateHistory, error) {
	return s.historyRepo.ListDonor(ctx, donorID)
}

func (s *donorService) getDonor(ctx context.Context, donorID string) (*domain.Donor, error) {
	d, err := s.donorRepo.GetByID(ctx, donorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("donor")
		}
		return nil, err
	}
	return d, nil
}

func (s *donorService) lockDonor(ctx context.Context, donorID string) (*domain.Donor, error) {
	d, err := s.donorRepo.GetByIDForUpdate(ctx, donorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound("donor")
		}
		return nil, err
	}
	return d, nil
}
