package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/workflow"
)

type bankServiceFixture struct {
	banks      *MockBankRepo
	donors     *MockDonorRepo
	consents   *MockConsentRepo
	counseling *MockCounselingRepo
	reports    *MockTestReportRepo
	history    *MockHistoryRepo
	email      *MockEmailService
	guard      *workflow.Guard
	svc        BankService
}

func newBankServiceFixture() *bankServiceFixture {
	f := &bankServiceFixture{
		banks:      new(MockBankRepo),
		donors:     new(MockDonorRepo),
		consents:   new(MockConsentRepo),
		counseling: new(MockCounselingRepo),
		reports:    new(MockTestReportRepo),
		history:    new(MockHistoryRepo),
		email:      new(MockEmailService),
		guard:      workflow.NewGuard(),
	}
	f.svc = NewBankService(passthroughTx{}, f.banks, f.donors, f.consents, f.counseling, f.reports, f.history, f.guard, f.email)
	return f
}

func TestSubmitCertification(t *testing.T) {
	ctx := context.Background()

	t.Run("moves a new bank into review", func(t *testing.T) {
		f := newBankServiceFixture()
		f.banks.On("GetByIDForUpdate", ctx, "bank-1").Return(&domain.Bank{
			ID: "bank-1", State: domain.BankStateAccountCreated,
		}, nil)
		f.banks.On("Update", ctx, mock.AnythingOfType("*domain.Bank")).Return(nil)
		f.history.On("AppendBank", ctx, mock.MatchedBy(func(h *domain.BankStateHistory) bool {
			return h.FromState == domain.BankStateAccountCreated &&
				h.ToState == domain.BankStateVerificationPending
		})).Return(nil)

		bank, err := f.svc.SubmitCertification(ctx, "bank-1", []domain.DocumentRef{
			{FileName: "license.pdf", URL: "http://files/license.pdf"},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.BankStateVerificationPending, bank.State)
		assert.Len(t, bank.CertificationDocuments, 1)
	})

	t.Run("requires at least one document", func(t *testing.T) {
		f := newBankServiceFixture()
		_, err := f.svc.SubmitCertification(ctx, "bank-1", nil)
		assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
	})

	t.Run("appends documents without re-entering review", func(t *testing.T) {
		f := newBankServiceFixture()
		f.banks.On("GetByIDForUpdate", ctx, "bank-1").Return(&domain.Bank{
			ID: "bank-1", State: domain.BankStateVerificationPending,
			CertificationDocuments: []domain.DocumentRef{{FileName: "license.pdf"}},
		}, nil)
		f.banks.On("Update", ctx, mock.AnythingOfType("*domain.Bank")).Return(nil)

		bank, err := f.svc.SubmitCertification(ctx, "bank-1", []domain.DocumentRef{{FileName: "lab-cert.pdf"}})
		require.NoError(t, err)
		assert.Equal(t, domain.BankStateVerificationPending, bank.State)
		assert.Len(t, bank.CertificationDocuments, 2)
		f.history.AssertNotCalled(t, "AppendBank", mock.Anything, mock.Anything)
	})
}

func TestConfirmSubscription(t *testing.T) {
	ctx := context.Background()

	t.Run("verified bank goes operational in one call", func(t *testing.T) {
		f := newBankServiceFixture()
		f.banks.On("GetByIDForUpdate", ctx, "bank-1").Return(&domain.Bank{
			ID: "bank-1", Email: "ops@bank.example", Name: "Bank One",
			State: domain.BankStateSubscriptionPending, IsVerified: true,
			SubscriptionTier: "premium",
			BillingDetails:   map[string]any{"term_months": 6},
		}, nil)
		f.banks.On("Update", ctx, mock.AnythingOfType("*domain.Bank")).Return(nil).Twice()
		f.history.On("AppendBank", ctx, mock.MatchedBy(func(h *domain.BankStateHistory) bool {
			return h.ToState == domain.BankStateSubscribedOnboarded
		})).Return(nil).Once()
		f.history.On("AppendBank", ctx, mock.MatchedBy(func(h *domain.BankStateHistory) bool {
			return h.FromState == domain.BankStateSubscribedOnboarded &&
				h.ToState == domain.BankStateOperational
		})).Return(nil).Once()
		f.email.On("SendSubscriptionActivated", ctx, "ops@bank.example", "Bank One", "premium", mock.AnythingOfType("time.Time")).Return(nil)

		bank, err := f.svc.ConfirmSubscription(ctx, "bank-1")
		require.NoError(t, err)
		assert.Equal(t, domain.BankStateOperational, bank.State)
		assert.True(t, bank.IsSubscribed)
		require.NotNil(t, bank.SubscriptionExpiresAt)
		// 6 month term from billing details, not the 12 month default.
		assert.WithinDuration(t, time.Now().AddDate(0, 6, 0), *bank.SubscriptionExpiresAt, time.Minute)
		f.history.AssertExpectations(t)
		f.email.AssertExpectations(t)
	})

	t.Run("refused before payment was started", func(t *testing.T) {
		f := newBankServiceFixture()
		f.banks.On("GetByIDForUpdate", ctx, "bank-1").Return(&domain.Bank{
			ID: "bank-1", State: domain.BankStateVerified, IsVerified: true,
		}, nil)

		_, err := f.svc.ConfirmSubscription(ctx, "bank-1")
		assert.Equal(t, domain.CodeInvalidTransition, domain.CodeOf(err))
	})
}

func TestCreateConsentTemplate(t *testing.T) {
	ctx := context.Background()

	t.Run("caps the active set", func(t *testing.T) {
		f := newBankServiceFixture()
		f.consents.On("CountActiveTemplates", ctx, "bank-1").Return(int32(4), nil)

		_, err := f.svc.CreateConsentTemplate(ctx, "bank-1", "Medical release", "body", "v1", 1)
		assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
	})

	t.Run("rejects out-of-range order", func(t *testing.T) {
		f := newBankServiceFixture()
		_, err := f.svc.CreateConsentTemplate(ctx, "bank-1", "Medical release", "body", "v1", 5)
		assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
	})

	t.Run("creates an active template", func(t *testing.T) {
		f := newBankServiceFixture()
		f.consents.On("CountActiveTemplates", ctx, "bank-1").Return(int32(2), nil)
		f.consents.On("CreateTemplate", ctx, mock.MatchedBy(func(tpl *domain.ConsentTemplate) bool {
			return tpl.BankID == "bank-1" && tpl.IsActive && tpl.Order == 3
		})).Return(nil)

		tpl, err := f.svc.CreateConsentTemplate(ctx, "bank-1", "Medical release", "body", "v1", 3)
		require.NoError(t, err)
		assert.True(t, tpl.IsActive)
	})
}

func TestVerifyConsent(t *testing.T) {
	ctx := context.Background()
	signed := func() *domain.DonorConsent {
		return &domain.DonorConsent{
			ID: "consent-1", DonorID: "donor-1", TemplateID: "tpl-1",
			Status: domain.ConsentStatusSigned,
		}
	}

	t.Run("approving a non-final consent leaves the donor in place", func(t *testing.T) {
		f := newBankServiceFixture()
		f.consents.On("GetConsentForUpdate", ctx, "consent-1").Return(signed(), nil)
		f.donors.On("GetByIDForUpdate", ctx, "donor-1").Return(&domain.Donor{
			ID: "donor-1", State: domain.DonorStateConsentPending, BankID: strPtr("bank-1"),
		}, nil)
		f.consents.On("UpdateConsent", ctx, mock.AnythingOfType("*domain.DonorConsent")).Return(nil)
		f.consents.On("CountConsentsByStatus", ctx, "donor-1", domain.ConsentStatusVerified).Return(int32(2), nil)

		consent, err := f.svc.VerifyConsent(ctx, "bank-1", "consent-1", true, "")
		require.NoError(t, err)
		assert.Equal(t, domain.ConsentStatusVerified, consent.Status)
		f.donors.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("approving the final consent completes the stage", func(t *testing.T) {
		f := newBankServiceFixture()
		f.consents.On("GetConsentForUpdate", ctx, "consent-1").Return(signed(), nil)
		f.donors.On("GetByIDForUpdate", ctx, "donor-1").Return(&domain.Donor{
			ID: "donor-1", State: domain.DonorStateConsentPending, BankID: strPtr("bank-1"),
		}, nil)
		f.consents.On("UpdateConsent", ctx, mock.AnythingOfType("*domain.DonorConsent")).Return(nil)
		f.consents.On("CountConsentsByStatus", ctx, "donor-1", domain.ConsentStatusVerified).Return(int32(4), nil)
		f.donors.On("Update", ctx, mock.MatchedBy(func(d *domain.Donor) bool {
			return d.State == domain.DonorStateConsentVerified
		})).Return(nil)
		f.history.On("AppendDonor", ctx, mock.MatchedBy(func(h *domain.DonorStateHistory) bool {
			return h.ToState == domain.DonorStateConsentVerified && h.ChangedByRole == domain.RoleBank
		})).Return(nil)

		_, err := f.svc.VerifyConsent(ctx, "bank-1", "consent-1", true, "all good")
		require.NoError(t, err)
		f.donors.AssertExpectations(t)
		f.history.AssertExpectations(t)
	})

	t.Run("rejection records notes without advancing", func(t *testing.T) {
		f := newBankServiceFixture()
		f.consents.On("GetConsentForUpdate", ctx, "consent-1").Return(signed(), nil)
		f.donors.On("GetByIDForUpdate", ctx, "donor-1").Return(&domain.Donor{
			ID: "donor-1", State: domain.DonorStateConsentPending, BankID: strPtr("bank-1"),
		}, nil)
		f.consents.On("UpdateConsent", ctx, mock.MatchedBy(func(c *domain.DonorConsent) bool {
			return c.Status == domain.ConsentStatusRejected && c.VerificationNotes == "signature unclear"
		})).Return(nil)

		consent, err := f.svc.VerifyConsent(ctx, "bank-1", "consent-1", false, "signature unclear")
		require.NoError(t, err)
		assert.Equal(t, domain.ConsentStatusRejected, consent.Status)
		f.consents.AssertNotCalled(t, "CountConsentsByStatus", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("a consent cannot be reviewed twice", func(t *testing.T) {
		f := newBankServiceFixture()
		verified := signed()
		verified.Status = domain.ConsentStatusVerified
		f.consents.On("GetConsentForUpdate", ctx, "consent-1").Return(verified, nil)
		f.donors.On("GetByIDForUpdate", ctx, "donor-1").Return(&domain.Donor{
			ID: "donor-1", State: domain.DonorStateConsentPending, BankID: strPtr("bank-1"),
		}, nil)

		_, err := f.svc.VerifyConsent(ctx, "bank-1", "consent-1", true, "")
		assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
		f.consents.AssertNotCalled(t, "UpdateConsent", mock.Anything, mock.Anything)
		f.history.AssertNotCalled(t, "AppendDonor", mock.Anything, mock.Anything)
	})

	t.Run("another bank's donor is invisible", func(t *testing.T) {
		f := newBankServiceFixture()
		f.consents.On("GetConsentForUpdate", ctx, "consent-1").Return(signed(), nil)
		f.donors.On("GetByIDForUpdate", ctx, "donor-1").Return(&domain.Donor{
			ID: "donor-1", State: domain.DonorStateConsentPending, BankID: strPtr("bank-other"),
		}, nil)

		_, err := f.svc.VerifyConsent(ctx, "bank-1", "consent-1", true, "")
		assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
	})
}

func TestDecideEligibility(t *testing.T) {
	ctx := context.Background()

	t.Run("approval onboards the donor", func(t *testing.T) {
		f := newBankServiceFixture()
		f.donors.On("GetByIDForUpdate", ctx, "donor-1").Return(&domain.Donor{
			ID: "donor-1", Email: "ada@example.com", FirstName: "Ada",
			State: domain.DonorStateEligibilityDecision, BankID: strPtr("bank-1"),
			EligibilityStatus: domain.EligibilityPending,
		}, nil)
		f.donors.On("Update", ctx, mock.MatchedBy(func(d *domain.Donor) bool {
			return d.State == domain.DonorStateOnboarded &&
				d.EligibilityStatus == domain.EligibilityApproved &&
				d.EligibilityDecidedAt != nil
		})).Return(nil)
		f.history.On("AppendDonor", ctx, mock.AnythingOfType("*domain.DonorStateHistory")).Return(nil)
		f.email.On("SendEligibilityDecision", ctx, "ada@example.com", "Ada", true, "").Return(nil)

		donor, err := f.svc.DecideEligibility(ctx, "bank-1", "donor-1", true, "")
		require.NoError(t, err)
		assert.Equal(t, domain.DonorStateOnboarded, donor.State)
		f.email.AssertExpectations(t)
	})

	t.Run("rejection keeps the donor in place", func(t *testing.T) {
		f := newBankServiceFixture()
		f.donors.On("GetByIDForUpdate", ctx, "donor-1").Return(&domain.Donor{
			ID: "donor-1", Email: "ada@example.com", FirstName: "Ada",
			State: domain.DonorStateEligibilityDecision, BankID: strPtr("bank-1"),
			EligibilityStatus: domain.EligibilityPending,
		}, nil)
		f.donors.On("Update", ctx, mock.MatchedBy(func(d *domain.Donor) bool {
			return d.State == domain.DonorStateEligibilityDecision &&
				d.EligibilityStatus == domain.EligibilityRejected
		})).Return(nil)
		f.email.On("SendEligibilityDecision", ctx, "ada@example.com", "Ada", false, "bmi out of range").Return(nil)

		donor, err := f.svc.DecideEligibility(ctx, "bank-1", "donor-1", false, "bmi out of range")
		require.NoError(t, err)
		assert.Equal(t, domain.DonorStateEligibilityDecision, donor.State)
		f.history.AssertNotCalled(t, "AppendDonor", mock.Anything, mock.Anything)
	})

	t.Run("a rejected donor cannot be approved afterward", func(t *testing.T) {
		f := newBankServiceFixture()
		f.donors.On("GetByIDForUpdate", ctx, "donor-1").Return(&domain.Donor{
			ID: "donor-1", State: domain.DonorStateEligibilityDecision, BankID: strPtr("bank-1"),
			EligibilityStatus: domain.EligibilityRejected,
		}, nil)

		_, err := f.svc.DecideEligibility(ctx, "bank-1", "donor-1", true, "")
		assert.Equal(t, domain.CodePreconditionUnmet, domain.CodeOf(err))
	})

	t.Run("reopen switch allows a second decision", func(t *testing.T) {
		f := newBankServiceFixture()
		f.guard.AllowEligibilityReopen = true
		f.donors.On("GetByIDForUpdate", ctx, "donor-1").Return(&domain.Donor{
			ID: "donor-1", Email: "ada@example.com", FirstName: "Ada",
			State: domain.DonorStateEligibilityDecision, BankID: strPtr("bank-1"),
			EligibilityStatus: domain.EligibilityRejected,
		}, nil)
		f.donors.On("Update", ctx, mock.AnythingOfType("*domain.Donor")).Return(nil)
		f.history.On("AppendDonor", ctx, mock.AnythingOfType("*domain.DonorStateHistory")).Return(nil)
		f.email.On("SendEligibilityDecision", ctx, "ada@example.com", "Ada", true, "").Return(nil)

		donor, err := f.svc.DecideEligibility(ctx, "bank-1", "donor-1", true, "")
		require.NoError(t, err)
		assert.Equal(t, domain.DonorStateOnboarded, donor.State)
	})
}

func TestCounselingLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("schedule then complete", func(t *testing.T) {
		f := newBankServiceFixture()
		when := time.Now().Add(48 * time.Hour)
		f.counseling.On("GetByID", ctx, "sess-1").Return(&domain.CounselingSession{
			ID: "sess-1", BankID: "bank-1", DonorID: "donor-1",
			Status: domain.CounselingStatusRequested,
		}, nil).Once()
		f.counseling.On("Update", ctx, mock.MatchedBy(func(s *domain.CounselingSession) bool {
			return s.Status == domain.CounselingStatusScheduled && s.ScheduledAt != nil
		})).Return(nil).Once()

		sess, err := f.svc.ScheduleCounseling(ctx, "bank-1", "sess-1", when, "https://meet/x", "")
		require.NoError(t, err)
		assert.Equal(t, domain.CounselingStatusScheduled, sess.Status)

		f.counseling.On("GetByID", ctx, "sess-1").Return(sess, nil).Once()
		f.counseling.On("Update", ctx, mock.MatchedBy(func(s *domain.CounselingSession) bool {
			return s.Status == domain.CounselingStatusCompleted && s.CompletedAt != nil
		})).Return(nil).Once()

		done, err := f.svc.CompleteCounseling(ctx, "bank-1", "sess-1", "no concerns")
		require.NoError(t, err)
		assert.Equal(t, domain.CounselingStatusCompleted, done.Status)
	})

	t.Run("cannot complete an unscheduled session", func(t *testing.T) {
		f := newBankServiceFixture()
		f.counseling.On("GetByID", ctx, "sess-1").Return(&domain.CounselingSession{
			ID: "sess-1", BankID: "bank-1", Status: domain.CounselingStatusRequested,
		}, nil)

		_, err := f.svc.CompleteCounseling(ctx, "bank-1", "sess-1", "")
		assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
	})

	t.Run("other bank's session is invisible", func(t *testing.T) {
		f := newBankServiceFixture()
		f.counseling.On("GetByID", ctx, "sess-1").Return(&domain.CounselingSession{
			ID: "sess-1", BankID: "bank-other", Status: domain.CounselingStatusRequested,
		}, nil)

		_, err := f.svc.ScheduleCounseling(ctx, "bank-1", "sess-1", time.Now(), "", "")
		assert.Equal(t, domain.CodeNotFound, domain.CodeOf(err))
	})
}

func TestBeginAndCompleteTesting(t *testing.T) {
	ctx := context.Background()

	t.Run("begin testing from consent_verified", func(t *testing.T) {
		f := newBankServiceFixture()
		f.donors.On("GetByIDForUpdate", ctx, "donor-1").Return(&domain.Donor{
			ID: "donor-1", State: domain.DonorStateConsentVerified, BankID: strPtr("bank-1"),
		}, nil)
		f.donors.On("Update", ctx, mock.MatchedBy(func(d *domain.Donor) bool {
			return d.State == domain.DonorStateTestsPending
		})).Return(nil)
		f.history.On("AppendDonor", ctx, mock.AnythingOfType("*domain.DonorStateHistory")).Return(nil)

		donor, err := f.svc.BeginTesting(ctx, "bank-1", "donor-1")
		require.NoError(t, err)
		assert.Equal(t, domain.DonorStateTestsPending, donor.State)
	})

	t.Run("donors cannot be skipped ahead", func(t *testing.T) {
		f := newBankServiceFixture()
		f.donors.On("GetByIDForUpdate", ctx, "donor-1").Return(&domain.Donor{
			ID: "donor-1", State: domain.DonorStateConsentPending, BankID: strPtr("bank-1"),
		}, nil)

		_, err := f.svc.BeginTesting(ctx, "bank-1", "donor-1")
		assert.Equal(t, domain.CodeInvalidTransition, domain.CodeOf(err))
	})
}

func TestBankUploadTestReport(t *testing.T) {
	ctx := context.Background()
	input := TestReportInput{TestType: "blood_panel", FileURL: "http://files/panel.pdf"}

	t.Run("first report opens the testing stage", func(t *testing.T) {
		f := newBankServiceFixture()
		f.donors.On("GetByIDForUpdate", ctx, "donor-1").Return(&domain.Donor{
			ID: "donor-1", State: domain.DonorStateConsentVerified, BankID: strPtr("bank-1"),
		}, nil)
		f.donors.On("Update", ctx, mock.MatchedBy(func(d *domain.Donor) bool {
			return d.State == domain.DonorStateTestsPending
		})).Return(nil)
		f.history.On("AppendDonor", ctx, mock.MatchedBy(func(h *domain.DonorStateHistory) bool {
			return h.FromState == domain.DonorStateConsentVerified &&
				h.ToState == domain.DonorStateTestsPending &&
				h.ChangedByRole == domain.RoleBank
		})).Return(nil)
		f.reports.On("Create", ctx, mock.MatchedBy(func(r *domain.TestReport) bool {
			return r.Source == domain.TestSourceBankConducted && r.DonorID == "donor-1"
		})).Return(nil)

		report, err := f.svc.UploadTestReport(ctx, "bank-1", "donor-1", input)
		require.NoError(t, err)
		assert.Equal(t, domain.TestSourceBankConducted, report.Source)
		f.donors.AssertExpectations(t)
		f.history.AssertExpectations(t)
	})

	t.Run("later reports store without another transition", func(t *testing.T) {
		f := newBankServiceFixture()
		f.donors.On("GetByIDForUpdate", ctx, "donor-1").Return(&domain.Donor{
			ID: "donor-1", State: domain.DonorStateTestsPending, BankID: strPtr("bank-1"),
		}, nil)
		f.reports.On("Create", ctx, mock.AnythingOfType("*domain.TestReport")).Return(nil)

		_, err := f.svc.UploadTestReport(ctx, "bank-1", "donor-1", input)
		require.NoError(t, err)
		f.donors.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		f.history.AssertNotCalled(t, "AppendDonor", mock.Anything, mock.Anything)
	})

	t.Run("refused before consent is complete", func(t *testing.T) {
		f := newBankServiceFixture()
		f.donors.On("GetByIDForUpdate", ctx, "donor-1").Return(&domain.Donor{
			ID: "donor-1", State: domain.DonorStateConsentPending, BankID: strPtr("bank-1"),
		}, nil)

		_, err := f.svc.UploadTestReport(ctx, "bank-1", "donor-1", input)
		assert.Equal(t, domain.CodeInvalidTransition, domain.CodeOf(err))
		f.reports.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}
