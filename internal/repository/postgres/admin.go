package postgres

import (
	"context"
	"database/sql"
	"time"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/repository"

	"github.com/google/uuid"
)

type adminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) repository.AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) Create(ctx context.Context, a *domain.Admin) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	a.CreatedAt = time.Now()
	query := `INSERT INTO admins (id, email, hashed_password, name, role, is_active, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := q(ctx, r.db).ExecContext(ctx, query,
		a.ID, a.Email, a.HashedPassword, a.Name, a.Role, a.IsActive, a.CreatedAt)
	return err
}

func (r *adminRepository) GetByID(ctx context.Context, id string) (*domain.Admin, error) {
	query := `SELECT id, email, hashed_password, name, role, is_active, last_login_at, created_at
	          FROM admins WHERE id = $1`
	return scanAdmin(q(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *adminRepository) GetByEmail(ctx context.Context, email string) (*domain.Admin, error) {
	query := `SELECT id, email, hashed_password, name, role, is_active, last_login_at, created_at
	          FROM admins WHERE email = $1`
	return scanAdmin(q(ctx, r.db).QueryRowContext(ctx, query, email))
}

func (r *adminRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := q(ctx, r.db).ExecContext(ctx, `UPDATE admins SET last_login_at = $1 WHERE id = $2`, at, id)
	return err
}

func scanAdmin(row rowScanner) (*domain.Admin, error) {
	a := &domain.Admin{}
	err := row.Scan(&a.ID, &a.Email, &a.HashedPassword, &a.Name, &a.Role, &a.IsActive, &a.LastLoginAt, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}
