package postgres

import (
	"context"
	"database/sql"
	"time"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/repository"

	"github.com/google/uuid"
)

type testReportRepository struct {
	db *sql.DB
}

func NewTestReportRepository(db *sql.DB) repository.TestReportRepository {
	return &testReportRepository{db: db}
}

const reportColumns = `id, donor_id, bank_id, source, test_type, test_name, file_url, file_name,
	uploaded_by, uploaded_at, test_date, lab_name, notes, created_at`

func (r *testReportRepository) Create(ctx context.Context, t *domain.TestReport) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	now := time.Now()
	t.CreatedAt = now
	if t.UploadedAt.IsZero() {
		t.UploadedAt = now
	}
	query := `INSERT INTO test_reports (id, donor_id, bank_id, source, test_type, test_name, file_url, file_name,
	            uploaded_by, uploaded_at, test_date, lab_name, notes, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		t.ID, t.DonorID, t.BankID, t.Source, t.TestType, t.TestName, t.FileURL, t.FileName,
		t.UploadedBy, t.UploadedAt, t.TestDate, t.LabName, t.Notes, t.CreatedAt)
	return err
}

func (r *testReportRepository) GetByID(ctx context.Context, id string) (*domain.TestReport, error) {
	query := `SELECT ` + reportColumns + ` FROM test_reports WHERE id = $1`
	return scanReport(q(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *testReportRepository) ListByDonor(ctx context.Context, donorID string) ([]domain.TestReport, error) {
	query := `SELECT ` + reportColumns + ` FROM test_reports WHERE donor_id = $1 ORDER BY uploaded_at DESC`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, donorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []domain.TestReport
	for rows.Next() {
		t, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *t)
	}
	return reports, rows.Err()
}

func scanReport(row rowScanner) (*domain.TestReport, error) {
	t := &domain.TestReport{}
	var fileName, labName, notes sql.NullString
	err := row.Scan(&t.ID, &t.DonorID, &t.BankID, &t.Source, &t.TestType, &t.TestName, &t.FileURL, &fileName,
		&t.UploadedBy, &t.UploadedAt, &t.TestDate, &labName, &notes, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.FileName = fileName.String
	t.LabName = labName.String
	t.Notes = notes.String
	return t, nil
}
