package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/logger"
	"donorlink-backend/internal/repository"
	"donorlink-backend/internal/security"
)

type authService struct {
	bankRepo  repository.BankRepository
	donorRepo repository.DonorRepository
	adminRepo repository.AdminRepository
	tokens    security.TokenManager
	emailSvc  EmailService
}

func NewAuthService(
	bankRepo repository.BankRepository,
	donorRepo repository.DonorRepository,
	adminRepo repository.AdminRepository,
	tokens security.TokenManager,
	emailSvc EmailService,
) AuthService {
	return &authService{
		bankRepo:  bankRepo,
		donorRepo: donorRepo,
		adminRepo: adminRepo,
		tokens:    tokens,
		emailSvc:  emailSvc,
	}
}

func invalidCredentials() error {
	return domain.NewWorkflowError(domain.CodeUnauthorized, "invalid email or password")
}

func (s *authService) RegisterBank(ctx context.Context, email, password, name, address, phone, website, description string) (*domain.Bank, string, string, error) {
	if email == "" || password == "" || name == "" {
		return nil, "", "", domain.NewWorkflowError(domain.CodeValidation, "email, password and name are required")
	}
	if len(password) < 8 {
		return nil, "", "", domain.NewWorkflowError(domain.CodeValidation, "password must be at least 8 characters")
	}

	if existing, err := s.bankRepo.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, "", "", domain.NewWorkflowError(domain.CodeConflict, "a bank with this email already exists")
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, "", "", err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", "", err
	}

	bank := &domain.Bank{
		Email:          email,
		HashedPassword: string(hashed),
		Name:           name,
		State:          domain.BankStateAccountCreated,
		Address:        address,
		Phone:          phone,
		Website:        website,
		Description:    description,
	}
	if err := s.bankRepo.Create(ctx, bank); err != nil {
		return nil, "", "", err
	}

	if err := s.emailSvc.SendBankWelcome(ctx, bank.Email, bank.Name); err != nil {
		logger.ErrorContext(ctx, "send bank welcome email", "bank_id", bank.ID, "error", err)
	}

	access, refresh, err := s.issueTokens(bank.ID, bank.Email, domain.RoleBank)
	if err != nil {
		return nil, "", "", err
	}
	return bank, access, refresh, nil
}

func (s *authService) LoginBank(ctx context.Context, email, password string) (*domain.Bank, string, string, error) {
	bank, err := s.bankRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", "", invalidCredentials()
		}
		return nil, "", "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(bank.HashedPassword), []byte(password)) != nil {
		return nil, "", "", invalidCredentials()
	}

	access, refresh, err := s.issueTokens(bank.ID, bank.Email, domain.RoleBank)
	if err != nil {
		return nil, "", "", err
	}
	return bank, access, refresh, nil
}

func (s *authService) LoginDonor(ctx context.Context, email, password string) (*domain.Donor, string, string, error) {
	donor, err := s.donorRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", "", invalidCredentials()
		}
		return nil, "", "", err
	}
	// Donors get credentials only at the account stage.
	if donor.HashedPassword == "" {
		return nil, "", "", invalidCredentials()
	}
	if bcrypt.CompareHashAndPassword([]byte(donor.HashedPassword), []byte(password)) != nil {
		return nil, "", "", invalidCredentials()
	}

	access, refresh, err := s.issueTokens(donor.ID, donor.Email, domain.RoleDonor)
	if err != nil {
		return nil, "", "", err
	}
	return donor, access, refresh, nil
}

func (s *authService) LoginAdmin(ctx context.Context, email, password string) (*domain.Admin, string, string, error) {
	admin, err := s.adminRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", "", invalidCredentials()
		}
		return nil, "", "", err
	}
	if !admin.IsActive {
		return nil, "", "", domain.NewWorkflowError(domain.CodeUnauthorized, "account is disabled")
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.HashedPassword), []byte(password)) != nil {
		return nil, "", "", invalidCredentials()
	}

	if err := s.adminRepo.TouchLastLogin(ctx, admin.ID, time.Now()); err != nil {
		logger.ErrorContext(ctx, "touch admin last login", "admin_id", admin.ID, "error", err)
	}

	access, refresh, err := s.issueTokens(admin.ID, admin.Email, domain.RoleAdmin)
	if err != nil {
		return nil, "", "", err
	}
	return admin, access, refresh, nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	claims, err := s.tokens.ValidateToken(refreshToken)
	if err != nil {
		return "", "", domain.NewWorkflowError(domain.CodeUnauthorized, "invalid refresh token")
	}
	if claims.Type != security.TokenTypeRefresh {
		return "", "", domain.NewWorkflowError(domain.CodeUnauthorized, "refresh token required")
	}
	return s.issueTokens(claims.UserID, claims.Email, claims.Role)
}

func (s *authService) issueTokens(id, email string, role domain.Role) (string, string, error) {
	access, err := s.tokens.GenerateAccessToken(id, email, role)
	if err != nil {
		return "", "", err
	}
	refresh, err := s.tokens.GenerateRefreshToken(id, email, role)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}
