package postgres

import (
	"context"
	"database/sql"
	"time"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/repository"

	"github.com/google/uuid"
)

// historyRepository only inserts and reads. There are deliberately no UPDATE
// or DELETE statements in this file.
type historyRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) repository.HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) AppendDonor(ctx context.Context, h *domain.DonorStateHistory) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	h.CreatedAt = time.Now()
	query := `INSERT INTO donor_state_history (id, donor_id, from_state, to_state, changed_by, changed_by_role, reason, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		h.ID, h.DonorID, h.FromState, h.ToState, h.ChangedBy, h.ChangedByRole, h.Reason, h.CreatedAt)
	return err
}

func (r *historyRepository) ListDonor(ctx context.Context, donorID string) ([]domain.DonorStateHistory, error) {
	query := `SELECT id, donor_id, from_state, to_state, changed_by, changed_by_role, reason, created_at
	          FROM donor_state_history WHERE donor_id = $1 ORDER BY created_at DESC`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, donorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.DonorStateHistory
	for rows.Next() {
		var h domain.DonorStateHistory
		var reason sql.NullString
		if err := rows.Scan(&h.ID, &h.DonorID, &h.FromState, &h.ToState, &h.ChangedBy, &h.ChangedByRole, &reason, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.Reason = reason.String
		history = append(history, h)
	}
	return history, rows.Err()
}

func (r *historyRepository) AppendBank(ctx context.Context, h *domain.BankStateHistory) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	h.CreatedAt = time.Now()
	query := `INSERT INTO bank_state_history (id, bank_id, from_state, to_state, changed_by, changed_by_role, reason, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		h.ID, h.BankID, h.FromState, h.ToState, h.ChangedBy, h.ChangedByRole, h.Reason, h.CreatedAt)
	return err
}

func (r *historyRepository) ListBank(ctx context.Context, bankID string) ([]domain.BankStateHistory, error) {
	query := `SELECT id, bank_id, from_state, to_state, changed_by, changed_by_role, reason, created_at
	          FROM bank_state_history WHERE bank_id = $1 ORDER BY created_at DESC`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, bankID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.BankStateHistory
	for rows.Next() {
		var h domain.BankStateHistory
		var reason sql.NullString
		if err := rows.Scan(&h.ID, &h.BankID, &h.FromState, &h.ToState, &h.ChangedBy, &h.ChangedByRole, &reason, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.Reason = reason.String
		history = append(history, h)
	}
	return history, rows.Err()
}
