package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/repository"
	"donorlink-backend/internal/repository/postgres"
)

func bankRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "hashed_password", "name", "state", "address", "phone", "website", "description", "logo_url",
		"certification_documents", "is_verified", "verified_at", "verified_by",
		"is_subscribed", "subscription_tier", "subscription_started_at", "subscription_expires_at", "billing_details",
		"counseling_config", "created_at", "updated_at",
	})
}

func TestBankRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewBankRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		bank := &domain.Bank{
			Email:          "bank@example.com",
			HashedPassword: "hash",
			Name:           "Coastal Cryobank",
			State:          domain.BankStateAccountCreated,
		}

		mock.ExpectExec("INSERT INTO banks").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Create(ctx, bank)
		assert.NoError(t, err)
		assert.NotEmpty(t, bank.ID)
	})
}

func TestBankRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewBankRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		rows := bankRows().AddRow(
			"bank-1", "bank@example.com", "hash", "Coastal Cryobank", "verified", "12 Shore Rd", "555-0100", "", "", "",
			[]byte(`[{"filename":"cert.pdf","url":"https://example.com/cert.pdf","uploaded_at":"2026-01-02T00:00:00Z"}]`), true, time.Now(), "admin-1",
			false, nil, nil, nil, []byte(`{}`),
			[]byte(`{"methods":["video"],"time_slots":[],"auto_approve":true}`), time.Now(), nil,
		)

		mock.ExpectQuery("SELECT (.+) FROM banks WHERE id = \\$1").
			WithArgs("bank-1").
			WillReturnRows(rows)

		bank, err := repo.GetByID(ctx, "bank-1")
		assert.NoError(t, err)
		assert.NotNil(t, bank)
		assert.Equal(t, domain.BankStateVerified, bank.State)
		assert.True(t, bank.IsVerified)
		assert.Equal(t, "admin-1", bank.VerifiedBy)
		assert.Len(t, bank.CertificationDocuments, 1)
		assert.NotNil(t, bank.CounselingConfig)
		assert.True(t, bank.CounselingConfig.AutoApprove)
	})

	t.Run("NullCounselingConfig", func(t *testing.T) {
		rows := bankRows().AddRow(
			"bank-2", "b2@example.com", "hash", "Northern Bank", "account_created", "", "", "", "", "",
			[]byte(`[]`), false, nil, nil,
			false, nil, nil, nil, []byte(`{}`),
			[]byte(`null`), time.Now(), nil,
		)

		mock.ExpectQuery("SELECT (.+) FROM banks WHERE id = \\$1").
			WithArgs("bank-2").
			WillReturnRows(rows)

		bank, err := repo.GetByID(ctx, "bank-2")
		assert.NoError(t, err)
		assert.Nil(t, bank.CounselingConfig)
	})
}

func TestBankRepository_GetByIDForUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewBankRepository(db)
	ctx := context.Background()

	rows := bankRows().AddRow(
		"bank-1", "bank@example.com", "hash", "Coastal Cryobank", "subscription_pending", "", "", "", "", "",
		[]byte(`[]`), true, time.Now(), "admin-1",
		false, "standard", nil, nil, []byte(`{}`),
		[]byte(`null`), time.Now(), nil,
	)

	mock.ExpectQuery("SELECT (.+) FROM banks WHERE id = \\$1 FOR UPDATE").
		WithArgs("bank-1").
		WillReturnRows(rows)

	bank, err := repo.GetByIDForUpdate(ctx, "bank-1")
	assert.NoError(t, err)
	assert.Equal(t, domain.BankStateSubscriptionPending, bank.State)
}

func TestBankRepository_ListPublic(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewBankRepository(db)
	ctx := context.Background()

	rows := bankRows().AddRow(
		"bank-1", "bank@example.com", "hash", "Coastal Cryobank", "operational", "12 Shore Rd", "", "", "", "",
		[]byte(`[]`), true, time.Now(), "admin-1",
		true, "standard", time.Now(), time.Now().Add(30*24*time.Hour), []byte(`{}`),
		[]byte(`null`), time.Now(), nil,
	)

	mock.ExpectQuery("SELECT (.+) FROM banks WHERE is_verified = TRUE AND is_subscribed = TRUE").
		WillReturnRows(rows)

	banks, err := repo.ListPublic(ctx, "", "")
	assert.NoError(t, err)
	assert.Len(t, banks, 1)
	assert.Equal(t, "Coastal Cryobank", banks[0].Name)
}

func TestBankRepository_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewBankRepository(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	rows := bankRows().AddRow(
		"bank-1", "bank@example.com", "hash", "Coastal Cryobank", "verification_pending", "", "", "", "", "",
		[]byte(`[]`), false, nil, nil,
		false, nil, nil, nil, []byte(`{}`),
		[]byte(`null`), time.Now(), nil,
	)
	mock.ExpectQuery("SELECT (.+) FROM banks WHERE 1=1 AND state = \\$1").
		WithArgs("verification_pending", int32(20), int32(0)).
		WillReturnRows(rows)

	banks, total, err := repo.List(ctx, repository.BankFilter{State: "verification_pending"}, 1, 20)
	assert.NoError(t, err)
	assert.Equal(t, int32(1), total)
	assert.Len(t, banks, 1)
}
