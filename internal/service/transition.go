package service

import (
	"context"
	"time"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/logger"
	"donorlink-backend/internal/repository"
	"donorlink-backend/internal/workflow"
)

// evaluateDonor builds the guard snapshot for a donor and runs the rule.
// Consent counts are only fetched for the actions whose preconditions read
// them.
func evaluateDonor(
	ctx context.Context,
	g *workflow.Guard,
	consents repository.ConsentRepository,
	d *domain.Donor,
	action workflow.Action,
	actor domain.Role,
) (workflow.Decision, error) {
	snap := workflow.DonorSnapshot{
		State:             d.State,
		BankID:            d.BankID,
		EligibilityStatus: d.EligibilityStatus,
	}

	if d.BankID != nil {
		switch action {
		case workflow.ActionBeginConsent:
			n, err := consents.CountActiveTemplates(ctx, *d.BankID)
			if err != nil {
				return workflow.Decision{}, err
			}
			snap.ActiveTemplates = int(n)
		case workflow.ActionCompleteConsent:
			n, err := consents.CountConsentsByStatus(ctx, d.ID, domain.ConsentStatusVerified)
			if err != nil {
				return workflow.Decision{}, err
			}
			snap.VerifiedConsents = int(n)
		}
	}

	return g.EvaluateDonor(snap, action, actor), nil
}

// commitDonorTransition applies an allowed decision: mutate the donor, persist
// it and append the history row. Callers run this inside WithinTx so the three
// writes land atomically.
func commitDonorTransition(
	ctx context.Context,
	donors repository.DonorRepository,
	history repository.HistoryRepository,
	d *domain.Donor,
	dec workflow.Decision,
	action workflow.Action,
	actorID string,
	actorRole domain.Role,
	reason string,
) error {
	from := d.State
	d.State = domain.DonorState(dec.NextState)

	fx := dec.SideEffects
	if fx.SetConsentPending != nil {
		d.ConsentPending = *fx.SetConsentPending
	}
	if fx.SetCounselingPending != nil {
		d.CounselingPending = *fx.SetCounselingPending
	}
	if fx.SetTestsPending != nil {
		d.TestsPending = *fx.SetTestsPending
	}
	if fx.RecordEligibilityFinal {
		now := time.Now()
		d.EligibilityDecidedAt = &now
	}

	if err := donors.Update(ctx, d); err != nil {
		return err
	}
	if err := history.AppendDonor(ctx, &domain.DonorStateHistory{
		DonorID:       d.ID,
		FromState:     from,
		ToState:       d.State,
		ChangedBy:     actorID,
		ChangedByRole: actorRole,
		Reason:        reason,
	}); err != nil {
		return err
	}

	logger.TransitionApplied(ctx, "donor", d.ID, string(action), string(from), string(d.State), string(actorRole))
	return nil
}

func evaluateBank(g *workflow.Guard, b *domain.Bank, action workflow.Action, actor domain.Role) workflow.Decision {
	return g.EvaluateBank(workflow.BankSnapshot{
		State:                  b.State,
		IsVerified:             b.IsVerified,
		IsSubscribed:           b.IsSubscribed,
		CertificationDocuments: len(b.CertificationDocuments),
	}, action, actor)
}

func commitBankTransition(
	ctx context.Context,
	banks repository.BankRepository,
	history repository.HistoryRepository,
	b *domain.Bank,
	dec workflow.Decision,
	action workflow.Action,
	actorID string,
	actorRole domain.Role,
	reason string,
) error {
	from := b.State
	b.State = domain.BankState(dec.NextState)

	if dec.SideEffects.RecordVerification {
		now := time.Now()
		b.IsVerified = true
		b.VerifiedAt = &now
		b.VerifiedBy = actorID
	}

	if err := banks.Update(ctx, b); err != nil {
		return err
	}
	if err := history.AppendBank(ctx, &domain.BankStateHistory{
		BankID:        b.ID,
		FromState:     from,
		ToState:       b.State,
		ChangedBy:     actorID,
		ChangedByRole: actorRole,
		Reason:        reason,
	}); err != nil {
		return err
	}

	logger.TransitionApplied(ctx, "bank", b.ID, string(action), string(from), string(b.State), string(actorRole))
	return nil
}

// denied logs and returns the structured denial from a guard decision.
func denied(ctx context.Context, entity, id string, action workflow.Action, dec workflow.Decision) error {
	logger.TransitionDenied(ctx, entity, id, string(action), string(dec.Reason.Code), dec.Reason.Message)
	return dec.Reason
}
