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

type bankRepository struct {
	db *sql.DB
}

func NewBankRepository(db *sql.DB) repository.BankRepository {
	return &bankRepository{db: db}
}

const bankColumns = `id, email, hashed_password, name, state, address, phone, website, description, logo_url,
	certification_documents, is_verified, verified_at, verified_by,
	is_subscribed, subscription_tier, subscription_started_at, subscription_expires_at, billing_details,
	counseling_config, created_at, updated_at`

func (r *bankRepository) Create(ctx context.Context, b *domain.Bank) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	b.CreatedAt = time.Now()

	certDocs, err := json.Marshal(b.CertificationDocuments)
	if err != nil {
		return fmt.Errorf("marshal certification documents: %w", err)
	}
	billing, err := json.Marshal(b.BillingDetails)
	if err != nil {
		return fmt.Errorf("marshal billing details: %w", err)
	}
	counseling, err := json.Marshal(b.CounselingConfig)
	if err != nil {
		return fmt.Errorf("marshal counseling config: %w", err)
	}

	query := `INSERT INTO banks (id, email, hashed_password, name, state, address, phone, website, description, logo_url,
	            certification_documents, is_verified, verified_at, verified_by,
	            is_subscribed, subscription_tier, subscription_started_at, subscription_expires_at, billing_details,
	            counseling_config, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err = q(ctx, r.db).ExecContext(ctx, query,
		b.ID, b.Email, b.HashedPassword, b.Name, b.State, b.Address, b.Phone, b.Website, b.Description, b.LogoURL,
		certDocs, b.IsVerified, b.VerifiedAt, nullStr(b.VerifiedBy),
		b.IsSubscribed, nullStr(b.SubscriptionTier), b.SubscriptionStartedAt, b.SubscriptionExpiresAt, billing,
		counseling, b.CreatedAt)
	return err
}

func (r *bankRepository) GetByID(ctx context.Context, id string) (*domain.Bank, error) {
	query := `SELECT ` + bankColumns + ` FROM banks WHERE id = $1`
	return scanBank(q(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *bankRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Bank, error) {
	query := `SELECT ` + bankColumns + ` FROM banks WHERE id = $1 FOR UPDATE`
	return scanBank(q(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *bankRepository) GetByEmail(ctx context.Context, email string) (*domain.Bank, error) {
	query := `SELECT ` + bankColumns + ` FROM banks WHERE email = $1`
	return scanBank(q(ctx, r.db).QueryRowContext(ctx, query, email))
}

func (r *bankRepository) Update(ctx context.Context, b *domain.Bank) error {
	certDocs, err := json.Marshal(b.CertificationDocuments)
	if err != nil {
		return fmt.Errorf("marshal certification documents: %w", err)
	}
	billing, err := json.Marshal(b.BillingDetails)
	if err != nil {
		return fmt.Errorf("marshal billing details: %w", err)
	}
	counseling, err := json.Marshal(b.CounselingConfig)
	if err != nil {
		return fmt.Errorf("marshal counseling config: %w", err)
	}

	query := `UPDATE banks SET name=$1, state=$2, address=$3, phone=$4, website=$5, description=$6, logo_url=$7,
	            certification_documents=$8, is_verified=$9, verified_at=$10, verified_by=$11,
	            is_subscribed=$12, subscription_tier=$13, subscription_started_at=$14, subscription_expires_at=$15,
	            billing_details=$16, counseling_config=$17, updated_at=$18
	          WHERE id=$19`
	_, err = q(ctx, r.db).ExecContext(ctx, query,
		b.Name, b.State, b.Address, b.Phone, b.Website, b.Description, b.LogoURL,
		certDocs, b.IsVerified, b.VerifiedAt, nullStr(b.VerifiedBy),
		b.IsSubscribed, nullStr(b.SubscriptionTier), b.SubscriptionStartedAt, b.SubscriptionExpiresAt,
		billing, counseling, time.Now(), b.ID)
	return err
}

func (r *bankRepository) ListPublic(ctx context.Context, location, search string) ([]domain.Bank, error) {
	query := `SELECT ` + bankColumns + ` FROM banks WHERE is_verified = TRUE AND is_subscribed = TRUE`
	args := []any{}
	idx := 1
	if location != "" {
		query += fmt.Sprintf(" AND address ILIKE $%d", idx)
		args = append(args, "%"+location+"%")
		idx++
	}
	if search != "" {
		query += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", idx, idx)
		args = append(args, "%"+search+"%")
		idx++
	}
	query += " ORDER BY name"

	rows, err := q(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBanks(rows)
}

func (r *bankRepository) List(ctx context.Context, filter repository.BankFilter, page, pageSize int32) ([]domain.Bank, int32, error) {
	query := `SELECT ` + bankColumns + ` FROM banks WHERE 1=1`
	args := []any{}
	idx := 1
	if filter.State != "" {
		query += fmt.Sprintf(" AND state = $%d", idx)
		args = append(args, filter.State)
		idx++
	}
	if filter.IsVerified != nil {
		query += fmt.Sprintf(" AND is_verified = $%d", idx)
		args = append(args, *filter.IsVerified)
		idx++
	}
	if filter.IsSubscribed != nil {
		query += fmt.Sprintf(" AND is_subscribed = $%d", idx)
		args = append(args, *filter.IsSubscribed)
		idx++
	}
	if filter.Search != "" {
		query += fmt.Sprintf(" AND (name ILIKE $%d OR email ILIKE $%d)", idx, idx)
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

	banks, err := scanBanks(rows)
	if err != nil {
		return nil, 0, err
	}
	return banks, total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBank(row rowScanner) (*domain.Bank, error) {
	b := &domain.Bank{}
	var (
		certDocs, billing, counseling []byte
		verifiedBy, tier              sql.NullString
		updatedAt                     sql.NullTime
	)
	err := row.Scan(
		&b.ID, &b.Email, &b.HashedPassword, &b.Name, &b.State, &b.Address, &b.Phone, &b.Website, &b.Description, &b.LogoURL,
		&certDocs, &b.IsVerified, &b.VerifiedAt, &verifiedBy,
		&b.IsSubscribed, &tier, &b.SubscriptionStartedAt, &b.SubscriptionExpiresAt, &billing,
		&counseling, &b.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	b.VerifiedBy = verifiedBy.String
	b.SubscriptionTier = tier.String
	if updatedAt.Valid {
		b.UpdatedAt = &updatedAt.Time
	}
	if len(certDocs) > 0 {
		if err := json.Unmarshal(certDocs, &b.CertificationDocuments); err != nil {
			return nil, fmt.Errorf("unmarshal certification documents: %w", err)
		}
	}
	if len(billing) > 0 {
		if err := json.Unmarshal(billing, &b.BillingDetails); err != nil {
			return nil, fmt.Errorf("unmarshal billing details: %w", err)
		}
	}
	if len(counseling) > 0 && string(counseling) != "null" {
		b.CounselingConfig = &domain.CounselingConfig{}
		if err := json.Unmarshal(counseling, b.CounselingConfig); err != nil {
			return nil, fmt.Errorf("unmarshal counseling config: %w", err)
		}
	}
	return b, nil
}

func scanBanks(rows *sql.Rows) ([]domain.Bank, error) {
	var banks []domain.Bank
	for rows.Next() {
		b, err := scanBank(rows)
		if err != nil {
			return nil, err
		}
		banks = append(banks, *b)
	}
	return banks, rows.Err()
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
