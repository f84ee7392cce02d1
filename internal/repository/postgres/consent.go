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
	"github.com/lib/pq"
)

type consentRepository struct {
	db *sql.DB
}

func NewConsentRepository(db *sql.DB) repository.ConsentRepository {
	return &consentRepository{db: db}
}

func (r *consentRepository) CreateTemplate(ctx context.Context, t *domain.ConsentTemplate) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.CreatedAt = time.Now()
	query := `INSERT INTO consent_templates (id, bank_id, title, content, version, display_order, is_active, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		t.ID, t.BankID, t.Title, t.Content, t.Version, t.Order, t.IsActive, t.CreatedAt)
	return err
}

func (r *consentRepository) GetTemplate(ctx context.Context, id string) (*domain.ConsentTemplate, error) {
	query := `SELECT id, bank_id, title, content, version, display_order, is_active, created_at, updated_at
	          FROM consent_templates WHERE id = $1`
	return scanTemplate(q(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *consentRepository) UpdateTemplate(ctx context.Context, t *domain.ConsentTemplate) error {
	query := `UPDATE consent_templates SET title=$1, content=$2, version=$3, display_order=$4, is_active=$5, updated_at=$6
	          WHERE id=$7`
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		t.Title, t.Content, t.Version, t.Order, t.IsActive, time.Now(), t.ID)
	return err
}

func (r *consentRepository) ListTemplatesByBank(ctx context.Context, bankID string, activeOnly bool) ([]domain.ConsentTemplate, error) {
	query := `SELECT id, bank_id, title, content, version, display_order, is_active, created_at, updated_at
	          FROM consent_templates WHERE bank_id = $1`
	if activeOnly {
		query += " AND is_active = TRUE"
	}
	query += " ORDER BY display_order"

	rows, err := q(ctx, r.db).QueryContext(ctx, query, bankID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []domain.ConsentTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func (r *consentRepository) CountActiveTemplates(ctx context.Context, bankID string) (int32, error) {
	var count int32
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT count(*) FROM consent_templates WHERE bank_id = $1 AND is_active = TRUE`, bankID).Scan(&count)
	return count, err
}

func (r *consentRepository) CreateConsent(ctx context.Context, c *domain.DonorConsent) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.CreatedAt = time.Now()
	sig, err := json.Marshal(c.SignatureData)
	if err != nil {
		return fmt.Errorf("marshal signature data: %w", err)
	}
	query := `INSERT INTO donor_consents (id, donor_id, template_id, status, signed_at, signature_data, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = q(ctx, r.db).ExecContext(ctx, query,
		c.ID, c.DonorID, c.TemplateID, c.Status, c.SignedAt, sig, c.CreatedAt)
	return err
}

const consentColumns = `id, donor_id, template_id, status, signed_at, signature_data,
	verified_at, verified_by, verification_notes, created_at, updated_at`

func (r *consentRepository) GetConsent(ctx context.Context, id string) (*domain.DonorConsent, error) {
	query := `SELECT ` + consentColumns + ` FROM donor_consents WHERE id = $1`
	return scanConsent(q(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *consentRepository) GetConsentForUpdate(ctx context.Context, id string) (*domain.DonorConsent, error) {
	query := `SELECT ` + consentColumns + ` FROM donor_consents WHERE id = $1 FOR UPDATE`
	return scanConsent(q(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *consentRepository) GetConsentByTemplate(ctx context.Context, donorID, templateID string) (*domain.DonorConsent, error) {
	query := `SELECT ` + consentColumns + ` FROM donor_consents WHERE donor_id = $1 AND template_id = $2`
	return scanConsent(q(ctx, r.db).QueryRowContext(ctx, query, donorID, templateID))
}

func (r *consentRepository) UpdateConsent(ctx context.Context, c *domain.DonorConsent) error {
	sig, err := json.Marshal(c.SignatureData)
	if err != nil {
		return fmt.Errorf("marshal signature data: %w", err)
	}
	query := `UPDATE donor_consents SET status=$1, signed_at=$2, signature_data=$3,
	            verified_at=$4, verified_by=$5, verification_notes=$6, updated_at=$7
	          WHERE id=$8`
	_, err = q(ctx, r.db).ExecContext(ctx, query,
		c.Status, c.SignedAt, sig, c.VerifiedAt, nullStr(c.VerifiedBy), c.VerificationNotes, time.Now(), c.ID)
	return err
}

func (r *consentRepository) ListConsentsByDonor(ctx context.Context, donorID string) ([]domain.DonorConsent, error) {
	query := `SELECT ` + consentColumns + ` FROM donor_consents WHERE donor_id = $1 ORDER BY created_at`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, donorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var consents []domain.DonorConsent
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, err
		}
		consents = append(consents, *c)
	}
	return consents, rows.Err()
}

func (r *consentRepository) CountConsentsByStatus(ctx context.Context, donorID string, statuses ...domain.ConsentStatus) (int32, error) {
	vals := make([]string, len(statuses))
	for i, s := range statuses {
		vals[i] = string(s)
	}
	var count int32
	err := q(ctx, r.db).QueryRowContext(ctx,
		`SELECT count(*) FROM donor_consents WHERE donor_id = $1 AND status = ANY($2)`,
		donorID, pq.Array(vals)).Scan(&count)
	return count, err
}

func scanTemplate(row rowScanner) (*domain.ConsentTemplate, error) {
	t := &domain.ConsentTemplate{}
	var updatedAt sql.NullTime
	err := row.Scan(&t.ID, &t.BankID, &t.Title, &t.Content, &t.Version, &t.Order, &t.IsActive, &t.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		t.UpdatedAt = &updatedAt.Time
	}
	return t, nil
}

func scanConsent(row rowScanner) (*domain.DonorConsent, error) {
	c := &domain.DonorConsent{}
	var (
		sig                []byte
		verifiedBy, vNotes sql.NullString
		updatedAt          sql.NullTime
	)
	err := row.Scan(&c.ID, &c.DonorID, &c.TemplateID, &c.Status, &c.SignedAt, &sig,
		&c.VerifiedAt, &verifiedBy, &vNotes, &c.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.VerifiedBy = verifiedBy.String
	c.VerificationNotes = vNotes.String
	if updatedAt.Valid {
		c.UpdatedAt = &updatedAt.Time
	}
	if len(sig) > 0 {
		if err := json.Unmarshal(sig, &c.SignatureData); err != nil {
			return nil, fmt.Errorf("unmarshal signature data: %w", err)
		}
	}
	return c, nil
}
