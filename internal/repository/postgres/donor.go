package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/repository"

	"github.com/google/uuid"
)

type donorRepository struct {
	db *sql.DB
}

func NewDonorRepository(db *sql.DB) repository.DonorRepository {
	return &donorRepository{db: db}
}

const donorColumns = `id, email, hashed_password, state, first_name, last_name, phone, date_of_birth, address,
	medical_interest_info, bank_id, selected_at, legal_documents,
	consent_pending, counseling_pending, tests_pending,
	eligibility_status, eligibility_notes, eligibility_decided_at, created_at, updated_at`

func (r *donorRepository) Create(ctx context.Context, d *domain.Donor) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.CreatedAt = time.Now()

	medInfo, err := json.Marshal(d.MedicalInterestInfo)
	if err != nil {
		return fmt.Errorf("marshal medical interest info: %w", err)
	}
	legalDocs, err := json.Marshal(d.LegalDocuments)
	if err != nil {
		return fmt.Errorf("marshal legal documents: %w", err)
	}

	query := `INSERT INTO donors (id, email, hashed_password, state, first_name, last_name, phone, date_of_birth, address,
	            medical_interest_info, bank_id, selected_at, legal_documents,
	            consent_pending, counseling_pending, tests_pending,
	            eligibility_status, eligibility_notes, eligibility_decided_at, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err = q(ctx, r.db).ExecContext(ctx, query,
		d.ID, nullStr(d.Email), nullStr(d.HashedPassword), d.State, d.FirstName, d.LastName, d.Phone, d.DateOfBirth, d.Address,
		medInfo, d.BankID, d.SelectedAt, legalDocs,
		d.ConsentPending, d.CounselingPending, d.TestsPending,
		d.EligibilityStatus, d.EligibilityNotes, d.EligibilityDecidedAt, d.CreatedAt)
	return err
}

func (r *donorRepository) GetByID(ctx context.Context, id string) (*domain.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE id = $1`
	return scanDonor(q(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *donorRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE id = $1 FOR UPDATE`
	return scanDonor(q(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *donorRepository) GetByEmail(ctx context.Context, email string) (*domain.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE email = $1`
	return scanDonor(q(ctx, r.db).QueryRowContext(ctx, query, email))
}

func (r *donorRepository) Update(ctx context.Context, d *domain.Donor) error {
	medInfo, err := json.Marshal(d.MedicalInterestInfo)
	if err != nil {
		return fmt.Errorf("marshal medical interest info: %w", err)
	}
	legalDocs, err := json.Marshal(d.LegalDocuments)
	if err != nil {
		return fmt.Errorf("marshal legal documents: %w", err)
	}

	query := `UPDATE donors SET email=$1, hashed_password=$2, state=$3, first_name=$4, last_name=$5, phone=$6,
	            date_of_birth=$7, address=$8, medical_interest_info=$9, bank_id=$10, selected_at=$11, legal_documents=$12,
	            consent_pending=$13, counseling_pending=$14, tests_pending=$15,
	            eligibility_status=$16, eligibility_notes=$17, eligibility_decided_at=$18, updated_at=$19
	          WHERE id=$20`
	_, err = q(ctx, r.db).ExecContext(ctx, query,
		nullStr(d.Email), nullStr(d.HashedPassword), d.State, d.FirstName, d.LastName, d.Phone,
		d.DateOfBirth, d.Address, medInfo, d.BankID, d.SelectedAt, legalDocs,
		d.ConsentPending, d.CounselingPending, d.TestsPending,
		d.EligibilityStatus, d.EligibilityNotes, d.EligibilityDecidedAt, time.Now(), d.ID)
	return err
}

func (r *donorRepository) ListByBank(ctx context.Context, bankID string) ([]domain.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE bank_id = $1 ORDER BY created_at DESC`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, bankID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDonors(rows)
}

func (r *donorRepository) List(ctx context.Context, filter repository.DonorFilter, page, pageSize int32) ([]domain.Donor, int32, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE 1=1`
	args := []any{}
	idx := 1
	if filter.State != "" {
		query += fmt.Sprintf(" AND state = $%d", idx)
		args = append(args, filter.State)
		idx++
	}
	if filter.BankID != "" {
		query += fmt.Sprintf(" AND bank_id = $%d", idx)
		args = append(args, filter.BankID)
		idx++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND (email ILIKE $%d OR first_name ILIKE $%d OR last_name ILIKE $%d)", idx, idx, idx)
		args = append(args, "%"+filter.Search+"%")
		idx++
	}

	var total int32
	countQuery := "SELECT count(*) FROM (" + query + ") AS sub"
	if err := q(ctx, r.db).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := q(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	donors, err := scanDonors(rows)
	if err != nil {
		return nil, 0, err
	}
	return donors, total, nil
}

func (r *donorRepository) CountByBank(ctx context.Context, bankID string) (int32, error) {
	var count int32
	err := q(ctx, r.db).QueryRowContext(ctx, `SELECT count(*) FROM donors WHERE bank_id = $1`, bankID).Scan(&count)
	return count, err
}

func scanDonor(row rowScanner) (*domain.Donor, error) {
	d := &domain.Donor{}
	var (
		email, password, notes sql.NullString
		medInfo, legalDocs     []byte
		updatedAt              sql.NullTime
	)
	err := row.Scan(
		&d.ID, &email, &password, &d.State, &d.FirstName, &d.LastName, &d.Phone, &d.DateOfBirth, &d.Address,
		&medInfo, &d.BankID, &d.SelectedAt, &legalDocs,
		&d.ConsentPending, &d.CounselingPending, &d.TestsPending,
		&d.EligibilityStatus, &notes, &d.EligibilityDecidedAt, &d.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	d.Email = email.String
	d.HashedPassword = password.String
	d.EligibilityNotes = notes.String
	if updatedAt.Valid {
		d.UpdatedAt = &updatedAt.Time
	}
	if len(medInfo) > 0 {
		if err := json.Unmarshal(medInfo, &d.MedicalInterestInfo); err != nil {
			return nil, fmt.Errorf("unmarshal medical interest info: %w", err)
		}
	}
	if len(legalDocs) > 0 {
		if err := json.Unmarshal(legalDocs, &d.LegalDocuments); err != nil {
			return nil, fmt.Errorf("unmarshal legal documents: %w", err)
		}
	}
	return d, nil
}

func scanDonors(rows *sql.Rows) ([]domain.Donor, error) {
	var donors []domain.Donor
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		donors = append(donors, *d)
	}
	return donors, rows.Err()
}
