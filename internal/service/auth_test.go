package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/security"
)

const testJWTSecret = "unit-test-secret-key-0123456789abcdef"

func newAuthServiceForTest(banks *MockBankRepo, donors *MockDonorRepo, admins *MockAdminRepo, email *MockEmailService) (AuthService, security.TokenManager) {
	tokens := security.NewTokenManager(testJWTSecret, time.Hour, 24*time.Hour)
	return NewAuthService(banks, donors, admins, tokens, email), tokens
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashed)
}

func TestRegisterBank(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the account and issues tokens", func(t *testing.T) {
		banks := new(MockBankRepo)
		email := new(MockEmailService)
		svc, tokens := newAuthServiceForTest(banks, new(MockDonorRepo), new(MockAdminRepo), email)

		banks.On("GetByEmail", ctx, "ops@bank.example").Return(nil, sql.ErrNoRows)
		banks.On("Create", ctx, mock.MatchedBy(func(b *domain.Bank) bool {
			return b.State == domain.BankStateAccountCreated && b.HashedPassword != "secret-pass"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Bank).ID = "bank-1"
		}).Return(nil)
		email.On("SendBankWelcome", ctx, "ops@bank.example", "Bank One").Return(nil)

		bank, access, refresh, err := svc.RegisterBank(ctx, "ops@bank.example", "secret-pass", "Bank One", "", "", "", "")
		require.NoError(t, err)
		assert.Equal(t, "bank-1", bank.ID)

		claims, err := tokens.ValidateToken(access)
		require.NoError(t, err)
		assert.Equal(t, "bank-1", claims.UserID)
		assert.Equal(t, domain.RoleBank, claims.Role)
		assert.Equal(t, security.TokenTypeAccess, claims.Type)

		claims, err = tokens.ValidateToken(refresh)
		require.NoError(t, err)
		assert.Equal(t, security.TokenTypeRefresh, claims.Type)
	})

	t.Run("duplicate email", func(t *testing.T) {
		banks := new(MockBankRepo)
		svc, _ := newAuthServiceForTest(banks, new(MockDonorRepo), new(MockAdminRepo), new(MockEmailService))

		banks.On("GetByEmail", ctx, "ops@bank.example").Return(&domain.Bank{ID: "bank-1"}, nil)

		_, _, _, err := svc.RegisterBank(ctx, "ops@bank.example", "secret-pass", "Bank One", "", "", "", "")
		assert.Equal(t, domain.CodeConflict, domain.CodeOf(err))
	})

	t.Run("short password", func(t *testing.T) {
		svc, _ := newAuthServiceForTest(new(MockBankRepo), new(MockDonorRepo), new(MockAdminRepo), new(MockEmailService))

		_, _, _, err := svc.RegisterBank(ctx, "ops@bank.example", "short", "Bank One", "", "", "", "")
		assert.Equal(t, domain.CodeValidation, domain.CodeOf(err))
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("bank with wrong password", func(t *testing.T) {
		banks := new(MockBankRepo)
		svc, _ := newAuthServiceForTest(banks, new(MockDonorRepo), new(MockAdminRepo), new(MockEmailService))

		banks.On("GetByEmail", ctx, "ops@bank.example").Return(&domain.Bank{
			ID: "bank-1", HashedPassword: hashPassword(t, "right-pass"),
		}, nil)

		_, _, _, err := svc.LoginBank(ctx, "ops@bank.example", "wrong-pass")
		assert.Equal(t, domain.CodeUnauthorized, domain.CodeOf(err))
	})

	t.Run("donor before the account stage has no credentials", func(t *testing.T) {
		donors := new(MockDonorRepo)
		svc, _ := newAuthServiceForTest(new(MockBankRepo), donors, new(MockAdminRepo), new(MockEmailService))

		donors.On("GetByEmail", ctx, "ada@example.com").Return(&domain.Donor{
			ID: "donor-1", State: domain.DonorStateLeadCreated,
		}, nil)

		_, _, _, err := svc.LoginDonor(ctx, "ada@example.com", "whatever")
		assert.Equal(t, domain.CodeUnauthorized, domain.CodeOf(err))
	})

	t.Run("donor happy path", func(t *testing.T) {
		donors := new(MockDonorRepo)
		svc, _ := newAuthServiceForTest(new(MockBankRepo), donors, new(MockAdminRepo), new(MockEmailService))

		donors.On("GetByEmail", ctx, "ada@example.com").Return(&domain.Donor{
			ID: "donor-1", Email: "ada@example.com",
			HashedPassword: hashPassword(t, "secret-pass"),
		}, nil)

		donor, access, _, err := svc.LoginDonor(ctx, "ada@example.com", "secret-pass")
		require.NoError(t, err)
		assert.Equal(t, "donor-1", donor.ID)
		assert.NotEmpty(t, access)
	})

	t.Run("disabled admin", func(t *testing.T) {
		admins := new(MockAdminRepo)
		svc, _ := newAuthServiceForTest(new(MockBankRepo), new(MockDonorRepo), admins, new(MockEmailService))

		admins.On("GetByEmail", ctx, "root@donorlink.example").Return(&domain.Admin{
			ID: "admin-1", IsActive: false, HashedPassword: hashPassword(t, "secret-pass"),
		}, nil)

		_, _, _, err := svc.LoginAdmin(ctx, "root@donorlink.example", "secret-pass")
		assert.Equal(t, domain.CodeUnauthorized, domain.CodeOf(err))
	})

	t.Run("admin login touches last seen", func(t *testing.T) {
		admins := new(MockAdminRepo)
		svc, _ := newAuthServiceForTest(new(MockBankRepo), new(MockDonorRepo), admins, new(MockEmailService))

		admins.On("GetByEmail", ctx, "root@donorlink.example").Return(&domain.Admin{
			ID: "admin-1", IsActive: true, HashedPassword: hashPassword(t, "secret-pass"),
		}, nil)
		admins.On("TouchLastLogin", ctx, "admin-1", mock.AnythingOfType("time.Time")).Return(nil)

		admin, _, _, err := svc.LoginAdmin(ctx, "root@donorlink.example", "secret-pass")
		require.NoError(t, err)
		assert.Equal(t, "admin-1", admin.ID)
		admins.AssertExpectations(t)
	})

	t.Run("unknown email", func(t *testing.T) {
		banks := new(MockBankRepo)
		svc, _ := newAuthServiceForTest(banks, new(MockDonorRepo), new(MockAdminRepo), new(MockEmailService))

		banks.On("GetByEmail", ctx, "nobody@bank.example").Return(nil, sql.ErrNoRows)

		_, _, _, err := svc.LoginBank(ctx, "nobody@bank.example", "secret-pass")
		assert.Equal(t, domain.CodeUnauthorized, domain.CodeOf(err))
	})
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	svc, tokens := newAuthServiceForTest(new(MockBankRepo), new(MockDonorRepo), new(MockAdminRepo), new(MockEmailService))

	t.Run("refresh token yields a new pair", func(t *testing.T) {
		refresh, err := tokens.GenerateRefreshToken("bank-1", "ops@bank.example", domain.RoleBank)
		require.NoError(t, err)

		access, newRefresh, err := svc.Refresh(ctx, refresh)
		require.NoError(t, err)

		claims, err := tokens.ValidateToken(access)
		require.NoError(t, err)
		assert.Equal(t, security.TokenTypeAccess, claims.Type)
		assert.Equal(t, "bank-1", claims.UserID)
		assert.NotEmpty(t, newRefresh)
	})

	t.Run("access token is not accepted", func(t *testing.T) {
		access, err := tokens.GenerateAccessToken("bank-1", "ops@bank.example", domain.RoleBank)
		require.NoError(t, err)

		_, _, err = svc.Refresh(ctx, access)
		assert.Equal(t, domain.CodeUnauthorized, domain.CodeOf(err))
	})

	t.Run("garbage token", func(t *testing.T) {
		_, _, err := svc.Refresh(ctx, "not-a-token")
		assert.Equal(t, domain.CodeUnauthorized, domain.CodeOf(err))
	})
}
