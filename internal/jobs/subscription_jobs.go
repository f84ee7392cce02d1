package jobs

import (
	"context"
	"time"

	"donorlink-backend/internal/logger"
)

// ExpireSubscriptions drops the subscribed flag on every bank whose
// subscription has lapsed. Workflow state is never rewound; an expired bank
// keeps its place in the chain and simply stops accepting donors until it
// renews.
func (jr *JobRunner) ExpireSubscriptions() {
	jr.runWithRecovery("ExpireSubscriptions", func() {
		ctx := context.Background()

		n, err := jr.store.MarkExpiredSubscriptions(ctx, time.Now())
		if err != nil {
			logger.Error("Failed to expire subscriptions", "error", err)
			return
		}
		logger.Info("Expired subscriptions", "count", n)
	})
}

// SendExpiryReminders emails every subscribed bank whose subscription lapses
// within the configured reminder window.
func (jr *JobRunner) SendExpiryReminders() {
	jr.runWithRecovery("SendExpiryReminders", func() {
		ctx := context.Background()
		window := time.Duration(jr.config.Scheduler.ExpiryReminderDays) * 24 * time.Hour

		banks, err := jr.store.ExpiringBanks(ctx, time.Now(), window)
		if err != nil {
			logger.Error("Failed to list expiring subscriptions", "error", err)
			return
		}

		sent := 0
		for _, bank := range banks {
			if bank.SubscriptionExpiresAt == nil {
				continue
			}
			if err := jr.emailSvc.SendSubscriptionExpiryReminder(ctx, bank.Email, bank.Name, *bank.SubscriptionExpiresAt); err != nil {
				logger.Error("Failed to send expiry reminder", "bank_id", bank.ID, "error", err)
				continue
			}
			sent++
		}
		logger.Info("Sent subscription expiry reminders", "count", sent, "candidates", len(banks))
	})
}
