package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var partyColumns = []string{"id", "created_at", "updated_at", "version", "type", "name", "overpaid_amount"}

func TestGormPartyRepository_FindByID(t *testing.T) {
	t.Run("finds existing party", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormPartyRepository(gormDB)

		id := uuid.New()
		now := time.Now()
		mock.ExpectQuery(`SELECT \* FROM "parties" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(id, 1).
			WillReturnRows(sqlmock.NewRows(partyColumns).
				AddRow(id.String(), now, now, 3, "CLIENT", "Acme", "12.5000"))

		party, err := repo.FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, party.ID)
		assert.Equal(t, finance.PartyTypeClient, party.Type)
		assert.Equal(t, 3, party.Version)
		assert.True(t, party.OverpaidAmount.Equal(decimal.RequireFromString("12.5")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing row to NOT_FOUND", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormPartyRepository(gormDB)

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "parties" WHERE id = \$1`).
			WithArgs(id, 1).
			WillReturnRows(sqlmock.NewRows(partyColumns))

		_, err := repo.FindByID(context.Background(), id)
		assert.True(t, shared.IsNotFound(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPartyRepository_FindByIDForUpdate(t *testing.T) {
	gormDB, mock, mockDB := newMockGormDB(t)
	defer mockDB.Close()
	repo := NewGormPartyRepository(gormDB)

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`SELECT \* FROM "parties" WHERE id = \$1 ORDER BY .* LIMIT .* FOR UPDATE`).
		WithArgs(id, 1).
		WillReturnRows(sqlmock.NewRows(partyColumns).
			AddRow(id.String(), now, now, 1, "SUPPLIER", "Mill", "0"))

	party, err := repo.FindByIDForUpdate(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, finance.PartyTypeSupplier, party.Type)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPartyRepository_SaveWithLock(t *testing.T) {
	newParty := func(t *testing.T) *finance.Party {
		p, err := finance.NewParty(finance.PartyTypeClient, "Acme")
		require.NoError(t, err)
		p.Version = 4
		return p
	}

	t.Run("advances version when the row matches", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormPartyRepository(gormDB)
		party := newParty(t)

		mock.ExpectExec(`UPDATE "parties" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.SaveWithLock(context.Background(), party))
		assert.Equal(t, 5, party.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a concurrent modification", func(t *testing.T) {
		gormDB, mock, mockDB := newMockGormDB(t)
		defer mockDB.Close()
		repo := NewGormPartyRepository(gormDB)
		party := newParty(t)

		mock.ExpectExec(`UPDATE "parties" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), party)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 4, party.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
