package postgres

import (
	"context"
	"database/sql"
	"time"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/repository"
)

type analyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) repository.AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) Dashboard(ctx context.Context, now time.Time) (*repository.DashboardStats, error) {
	stats := &repository.DashboardStats{}
	expiringBefore := now.Add(30 * 24 * time.Hour)
	signupsAfter := now.Add(-7 * 24 * time.Hour)

	query := `SELECT
	    count(*),
	    count(*) FILTER (WHERE is_verified),
	    count(*) FILTER (WHERE is_subscribed),
	    count(*) FILTER (WHERE state = $1),
	    count(*) FILTER (WHERE state = $2),
	    count(*) FILTER (WHERE is_subscribed AND subscription_expires_at > $3 AND subscription_expires_at <= $4),
	    count(*) FILTER (WHERE subscription_expires_at IS NOT NULL AND subscription_expires_at <= $3),
	    count(*) FILTER (WHERE created_at >= $5)
	  FROM banks`
	err := q(ctx, r.db).QueryRowContext(ctx, query,
		domain.BankStateVerificationPending, domain.BankStateOperational, now, expiringBefore, signupsAfter).
		Scan(&stats.TotalBanks, &stats.VerifiedBanks, &stats.SubscribedBanks,
			&stats.PendingVerifications, &stats.OperationalBanks,
			&stats.ExpiringSubscriptions, &stats.ExpiredSubscriptions, &stats.RecentSignups)
	if err != nil {
		return nil, err
	}

	donorQuery := `SELECT count(*), count(*) FILTER (WHERE state = $1) FROM donors`
	err = q(ctx, r.db).QueryRowContext(ctx, donorQuery, domain.DonorStateOnboarded).
		Scan(&stats.TotalDonors, &stats.OnboardedDonors)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *analyticsRepository) SubscriptionTiers(ctx context.Context) ([]repository.TierCount, error) {
	query := `SELECT subscription_tier, count(*) FROM banks
	          WHERE is_subscribed AND subscription_tier IS NOT NULL
	          GROUP BY subscription_tier ORDER BY count(*) DESC`
	rows, err := q(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []repository.TierCount
	for rows.Next() {
		var t repository.TierCount
		if err := rows.Scan(&t.Tier, &t.Count); err != nil {
			return nil, err
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

func (r *analyticsRepository) MonthlySubscriptionTrend(ctx context.Context, now time.Time, months int) ([]repository.MonthlyTrend, error) {
	since := now.AddDate(0, -months, 0)
	query := `SELECT to_char(date_trunc('month', subscription_started_at), 'YYYY-MM') AS month, count(*)
	          FROM banks
	          WHERE subscription_started_at >= $1
	          GROUP BY month ORDER BY month`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trend []repository.MonthlyTrend
	for rows.Next() {
		var m repository.MonthlyTrend
		if err := rows.Scan(&m.Month, &m.NewSubscriptions); err != nil {
			return nil, err
		}
		trend = append(trend, m)
	}
	return trend, rows.Err()
}

func (r *analyticsRepository) ExpiringBanks(ctx context.Context, now time.Time, within time.Duration) ([]domain.Bank, error) {
	query := `SELECT ` + bankColumns + ` FROM banks
	          WHERE is_subscribed AND subscription_expires_at > $1 AND subscription_expires_at <= $2
	          ORDER BY subscription_expires_at`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, now, now.Add(within))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBanks(rows)
}

func (r *analyticsRepository) MarkExpiredSubscriptions(ctx context.Context, now time.Time) (int64, error) {
	query := `UPDATE banks SET is_subscribed = FALSE, updated_at = $1
	          WHERE is_subscribed AND subscription_expires_at IS NOT NULL AND subscription_expires_at <= $1`
	res, err := q(ctx, r.db).ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
