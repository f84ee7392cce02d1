package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"donorlink-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.BankRepository
	repository.DonorRepository
	repository.ConsentRepository
	repository.CounselingRepository
	repository.TestReportRepository
	repository.HistoryRepository
	repository.AdminRepository
	repository.ActivityLogRepository
	repository.AnalyticsRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		BankRepository:        NewBankRepository(db),
		DonorRepository:       NewDonorRepository(db),
		ConsentRepository:     NewConsentRepository(db),
		CounselingRepository:  NewCounselingRepository(db),
		TestReportRepository:  NewTestReportRepository(db),
		HistoryRepository:     NewHistoryRepository(db),
		AdminRepository:       NewAdminRepository(db),
		ActivityLogRepository: NewActivityLogRepository(db),
		AnalyticsRepository:   NewAnalyticsRepository(db),
	}
}

// WithinTx begins a transaction, stashes it in the context for the
// repositories, and commits when fn returns nil. Rollback errors are
// swallowed in favor of the original failure.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		// Already inside a transaction; join it.
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(withTx(ctx, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
