package postgres

import (
	"context"
	"database/sql"
	"time"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/repository"

	"github.com/google/uuid"
)

type counselingRepository struct {
	db *sql.DB
}

func NewCounselingRepository(db *sql.DB) repository.CounselingRepository {
	return &counselingRepository{db: db}
}

const counselingColumns = `id, donor_id, bank_id, status, method, requested_at, scheduled_at, completed_at,
	meeting_link, location, notes, created_at, updated_at`

func (r *counselingRepository) Create(ctx context.Context, s *domain.CounselingSession) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now()
	s.CreatedAt = now
	if s.RequestedAt.IsZero() {
		s.RequestedAt = now
	}
	query := `INSERT INTO counseling_sessions (id, donor_id, bank_id, status, method, requested_at,
	            meeting_link, location, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		s.ID, s.DonorID, s.BankID, s.Status, s.Method, s.RequestedAt,
		s.MeetingLink, s.Location, s.Notes, s.CreatedAt)
	return err
}

func (r *counselingRepository) GetByID(ctx context.Context, id string) (*domain.CounselingSession, error) {
	query := `SELECT ` + counselingColumns + ` FROM counseling_sessions WHERE id = $1`
	return scanSession(q(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *counselingRepository) Update(ctx context.Context, s *domain.CounselingSession) error {
	query := `UPDATE counseling_sessions SET status=$1, method=$2, scheduled_at=$3, completed_at=$4,
	            meeting_link=$5, location=$6, notes=$7, updated_at=$8
	          WHERE id=$9`
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		s.Status, s.Method, s.ScheduledAt, s.CompletedAt, s.MeetingLink, s.Location, s.Notes, time.Now(), s.ID)
	return err
}

func (r *counselingRepository) ListByDonor(ctx context.Context, donorID string) ([]domain.CounselingSession, error) {
	query := `SELECT ` + counselingColumns + ` FROM counseling_sessions WHERE donor_id = $1 ORDER BY requested_at DESC`
	return r.list(ctx, query, donorID)
}

func (r *counselingRepository) ListByBank(ctx context.Context, bankID string, status string) ([]domain.CounselingSession, error) {
	query := `SELECT ` + counselingColumns + ` FROM counseling_sessions WHERE bank_id = $1`
	args := []any{bankID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY requested_at DESC"
	return r.list(ctx, query, args...)
}

func (r *counselingRepository) list(ctx context.Context, query string, args ...any) ([]domain.CounselingSession, error) {
	rows, err := q(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []domain.CounselingSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func scanSession(row rowScanner) (*domain.CounselingSession, error) {
	s := &domain.CounselingSession{}
	var (
		link, loc, notes sql.NullString
		updatedAt        sql.NullTime
	)
	err := row.Scan(&s.ID, &s.DonorID, &s.BankID, &s.Status, &s.Method, &s.RequestedAt,
		&s.ScheduledAt, &s.CompletedAt, &link, &loc, &notes, &s.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	s.MeetingLink = link.String
	s.Location = loc.String
	s.Notes = notes.String
	if updatedAt.Valid {
		s.UpdatedAt = &updatedAt.Time
	}
	return s, nil
}
