package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/repository/postgres"
)

func TestStore_WithinTxCommit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	store := postgres.NewStore(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO donor_state_history").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = store.WithinTx(ctx, func(ctx context.Context) error {
		return store.AppendDonor(ctx, &domain.DonorStateHistory{
			DonorID:       "donor-1",
			FromState:     domain.DonorStateVisitor,
			ToState:       domain.DonorStateBankSelected,
			ChangedBy:     "donor-1",
			ChangedByRole: domain.RoleDonor,
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTxRollback(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	store := postgres.NewStore(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err = store.WithinTx(ctx, func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_WithinTxJoinsExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	store := postgres.NewStore(db)
	ctx := context.Background()

	// A nested WithinTx joins the outer transaction: one Begin, one Commit.
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO bank_state_history").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = store.WithinTx(ctx, func(ctx context.Context) error {
		return store.WithinTx(ctx, func(ctx context.Context) error {
			return store.AppendBank(ctx, &domain.BankStateHistory{
				BankID:        "bank-1",
				FromState:     domain.BankStateVerificationPending,
				ToState:       domain.BankStateVerified,
				ChangedBy:     "admin-1",
				ChangedByRole: domain.RoleAdmin,
			})
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
