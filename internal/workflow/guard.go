// Package workflow holds the pure transition rules for donor and bank
// lifecycles. The guard decides allow/deny for a (state, action, role)
// request before any write happens; services run the decision, the entity
// mutation and the history append inside one database transaction.
package workflow

import (
	"fmt"

	"donorlink-backend/internal/domain"
)

// Action identifies a requested workflow transition.
type Action string

const (
	// Donor-side actions.
	ActionSelectBank        Action = "select_bank"
	ActionCreateLead        Action = "create_lead"
	ActionCreateAccount     Action = "create_account"
	ActionRequestCounseling Action = "request_counseling"
	ActionBeginConsent      Action = "begin_consent"
	ActionCompleteConsent   Action = "complete_consent"
	ActionBeginTesting      Action = "begin_testing"
	ActionCompleteTesting   Action = "complete_testing"
	ActionDecideEligibility Action = "decide_eligibility"

	// Bank-side actions.
	ActionSubmitCertification  Action = "submit_certification"
	ActionVerifyBank           Action = "verify_bank"
	ActionActivateSubscription Action = "activate_subscription"
	ActionConfirmSubscription  Action = "confirm_subscription"
	ActionGoOperational        Action = "go_operational"
)

// DonorSnapshot carries the entity attributes the guard needs to evaluate
// donor preconditions. It is a value copy; the guard never mutates state.
type DonorSnapshot struct {
	State             domain.DonorState
	BankID            *string
	EligibilityStatus domain.EligibilityStatus

	// Consent progress against the bank's active templates.
	ActiveTemplates  int
	SignedConsents   int
	VerifiedConsents int
}

// BankSnapshot carries the attributes for bank-side preconditions.
type BankSnapshot struct {
	State        domain.BankState
	IsVerified   bool
	IsSubscribed bool

	CertificationDocuments int
}

// SideEffects declares the flag changes that accompany an allowed
// transition. The service applies them; the guard only states them.
type SideEffects struct {
	SetConsentPending      *bool
	SetCounselingPending   *bool
	SetTestsPending        *bool
	LockBank               bool // bank_id becomes immutable from here on
	RecordVerification     bool // bank: stamp verified_at / verified_by
	RecordEligibilityFinal bool // donor: stamp eligibility_decided_at
}

// Decision is the guard output: either allowed with a target state and side
// effects, or denied with a structured reason. Denials are ordinary values,
// never faults.
type Decision struct {
	Allowed     bool
	NextState   string // DonorState or BankState value
	SideEffects SideEffects
	Reason      *domain.WorkflowError
}

func deny(code domain.ErrorCode, format string, args ...any) Decision {
	return Decision{Reason: domain.NewWorkflowError(code, format, args...)}
}

type donorRule struct {
	from   domain.DonorState
	role   domain.Role
	next   domain.DonorState
	check  func(g *Guard, s DonorSnapshot) *domain.WorkflowError
	sideFx SideEffects
}

type bankRule struct {
	from   domain.BankState
	role   domain.Role
	next   domain.BankState
	check  func(g *Guard, s BankSnapshot) *domain.WorkflowError
	sideFx SideEffects
}

// Guard is the transition lookup table. Each action maps to exactly one rule,
// so every state has a single forward successor per actor; anything else is
// denied by construction.
type Guard struct {
	// AllowEligibilityReopen lets a bank re-run the eligibility decision for
	// a previously rejected donor. Off by default: a rejection is terminal.
	AllowEligibilityReopen bool

	donorRules map[Action]donorRule
	bankRules  map[Action]bankRule
}

func NewGuard() *Guard {
	g := &Guard{}
	g.donorRules = donorTransitionTable()
	g.bankRules = bankTransitionTable()
	return g
}

func boolPtr(b bool) *bool { return &b }

func donorTransitionTable() map[Action]donorRule {
	return map[Action]donorRule{
		ActionSelectBank: {
			from: domain.DonorStateVisitor,
			role: domain.RoleDonor,
			next: domain.DonorStateBankSelected,
			sideFx: SideEffects{
				LockBank:             true,
				SetConsentPending:    boolPtr(true),
				SetCounselingPending: boolPtr(true),
				SetTestsPending:      boolPtr(true),
			},
		},
		ActionCreateLead: {
			from: domain.DonorStateBankSelected,
			role: domain.RoleDonor,
			next: domain.DonorStateLeadCreated,
			check: func(g *Guard, s DonorSnapshot) *domain.WorkflowError {
				if s.BankID == nil {
					return domain.NewWorkflowError(domain.CodePreconditionUnmet, "no bank selected")
				}
				return nil
			},
		},
		ActionCreateAccount: {
			from: domain.DonorStateLeadCreated,
			role: domain.RoleDonor,
			next: domain.DonorStateAccountCreated,
		},
		ActionRequestCounseling: {
			from:   domain.DonorStateAccountCreated,
			role:   domain.RoleDonor,
			next:   domain.DonorStateCounselingRequested,
			sideFx: SideEffects{SetCounselingPending: boolPtr(true)},
		},
		ActionBeginConsent: {
			from: domain.DonorStateCounselingRequested,
			role: domain.RoleDonor,
			next: domain.DonorStateConsentPending,
			check: func(g *Guard, s DonorSnapshot) *domain.WorkflowError {
				if s.ActiveTemplates != domain.RequiredConsentCount {
					return domain.NewWorkflowError(domain.CodePreconditionUnmet,
						"bank must have exactly %d active consent templates, has %d",
						domain.RequiredConsentCount, s.ActiveTemplates)
				}
				return nil
			},
		},
		ActionCompleteConsent: {
			from: domain.DonorStateConsentPending,
			role: domain.RoleBank,
			next: domain.DonorStateConsentVerified,
			check: func(g *Guard, s DonorSnapshot) *domain.WorkflowError {
				if s.VerifiedConsents < domain.RequiredConsentCount {
					return domain.NewWorkflowError(domain.CodePreconditionUnmet,
						"only %d of %d consents verified", s.VerifiedConsents, domain.RequiredConsentCount)
				}
				return nil
			},
			sideFx: SideEffects{SetConsentPending: boolPtr(false)},
		},
		ActionBeginTesting: {
			from:   domain.DonorStateConsentVerified,
			role:   domain.RoleBank,
			next:   domain.DonorStateTestsPending,
			sideFx: SideEffects{SetTestsPending: boolPtr(true)},
		},
		ActionCompleteTesting: {
			from:   domain.DonorStateTestsPending,
			role:   domain.RoleBank,
			next:   domain.DonorStateEligibilityDecision,
			sideFx: SideEffects{SetTestsPending: boolPtr(false)},
		},
		ActionDecideEligibility: {
			from: domain.DonorStateEligibilityDecision,
			role: domain.RoleBank,
			next: domain.DonorStateOnboarded,
			check: func(g *Guard, s DonorSnapshot) *domain.WorkflowError {
				if s.EligibilityStatus == domain.EligibilityRejected && !g.AllowEligibilityReopen {
					return domain.NewWorkflowError(domain.CodePreconditionUnmet,
						"eligibility already rejected")
				}
				return nil
			},
			sideFx: SideEffects{RecordEligibilityFinal: true},
		},
	}
}

func bankTransitionTable() map[Action]bankRule {
	return map[Action]bankRule{
		ActionSubmitCertification: {
			from: domain.BankStateAccountCreated,
			role: domain.RoleBank,
			next: domain.BankStateVerificationPending,
			check: func(g *Guard, s BankSnapshot) *domain.WorkflowError {
				if s.CertificationDocuments == 0 {
					return domain.NewWorkflowError(domain.CodePreconditionUnmet,
						"certification documents required")
				}
				return nil
			},
		},
		ActionVerifyBank: {
			from:   domain.BankStateVerificationPending,
			role:   domain.RoleAdmin,
			next:   domain.BankStateVerified,
			sideFx: SideEffects{RecordVerification: true},
		},
		ActionActivateSubscription: {
			from: domain.BankStateVerified,
			role: domain.RoleBank,
			next: domain.BankStateSubscriptionPending,
			check: func(g *Guard, s BankSnapshot) *domain.WorkflowError {
				if !s.IsVerified {
					return domain.NewWorkflowError(domain.CodePreconditionUnmet,
						"bank must be verified before subscribing")
				}
				return nil
			},
		},
		ActionConfirmSubscription: {
			from: domain.BankStateSubscriptionPending,
			role: domain.RoleBank,
			next: domain.BankStateSubscribedOnboarded,
		},
		ActionGoOperational: {
			from: domain.BankStateSubscribedOnboarded,
			role: domain.RoleBank,
			next: domain.BankStateOperational,
			check: func(g *Guard, s BankSnapshot) *domain.WorkflowError {
				if !s.IsVerified || !s.IsSubscribed {
					return domain.NewWorkflowError(domain.CodePreconditionUnmet,
						"bank must be verified and subscribed to become operational")
				}
				return nil
			},
		},
	}
}

// EvaluateDonor decides a donor transition. Check order matters: unknown
// action first, then reachability, then authority, then preconditions, so a
// wrong-role caller is refused before any entity attribute is consulted.
func (g *Guard) EvaluateDonor(s DonorSnapshot, action Action, actor domain.Role) Decision {
	rule, ok := g.donorRules[action]
	if !ok {
		return deny(domain.CodeUnknownTransition, "unknown donor action %q", action)
	}
	if s.State != rule.from {
		return deny(domain.CodeInvalidTransition,
			"cannot %s from state %s", action, s.State)
	}
	if actor != rule.role && actor != domain.RoleSystem {
		return deny(domain.CodeInsufficientAuthority,
			"%s requires %s authority", action, rule.role)
	}
	if rule.check != nil {
		if werr := rule.check(g, s); werr != nil {
			return Decision{Reason: werr}
		}
	}
	return Decision{Allowed: true, NextState: string(rule.next), SideEffects: rule.sideFx}
}

// EvaluateBank decides a bank transition with the same check ordering.
func (g *Guard) EvaluateBank(s BankSnapshot, action Action, actor domain.Role) Decision {
	rule, ok := g.bankRules[action]
	if !ok {
		return deny(domain.CodeUnknownTransition, "unknown bank action %q", action)
	}
	if s.State != rule.from {
		return deny(domain.CodeInvalidTransition,
			"cannot %s from state %s", action, s.State)
	}
	if actor != rule.role && actor != domain.RoleSystem {
		return deny(domain.CodeInsufficientAuthority,
			"%s requires %s authority", action, rule.role)
	}
	if rule.check != nil {
		if werr := rule.check(g, s); werr != nil {
			return Decision{Reason: werr}
		}
	}
	return Decision{Allowed: true, NextState: string(rule.next), SideEffects: rule.sideFx}
}

// DonorNextState returns the single forward successor for a donor state, or
// an error for terminal/unknown states. Used by read surfaces that show
// "what happens next".
func DonorNextState(s domain.DonorState) (domain.DonorState, error) {
	order := donorStateOrder()
	for i, st := range order {
		if st == s {
			if i == len(order)-1 {
				return "", fmt.Errorf("state %s is terminal", s)
			}
			return order[i+1], nil
		}
	}
	return "", fmt.Errorf("unknown donor state %s", s)
}

func donorStateOrder() []domain.DonorState {
	return []domain.DonorState{
		domain.DonorStateVisitor,
		domain.DonorStateBankSelected,
		domain.DonorStateLeadCreated,
		domain.DonorStateAccountCreated,
		domain.DonorStateCounselingRequested,
		domain.DonorStateConsentPending,
		domain.DonorStateConsentVerified,
		domain.DonorStateTestsPending,
		domain.DonorStateEligibilityDecision,
		domain.DonorStateOnboarded,
	}
}

// DonorStateIndex reports the position of a state in the linear donor chain,
// -1 for unknown. History validation relies on this ordering.
func DonorStateIndex(s domain.DonorState) int {
	for i, st := range donorStateOrder() {
		if st == s {
			return i
		}
	}
	return -1
}
