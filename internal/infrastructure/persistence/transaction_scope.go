package persistence

import (
	"context"

	appfinance "github.com/erp/reconciliation/internal/application/finance"
	"github.com/erp/reconciliation/internal/domain/finance"
	"gorm.io/gorm"
)

// GormRepositories hands out repositories bound to one *gorm.DB, either the
// shared connection or an open transaction.
type GormRepositories struct {
	db *gorm.DB
}

// NewGormRepositories creates repositories on the given connection
func NewGormRepositories(db *gorm.DB) *GormRepositories {
	return &GormRepositories{db: db}
}

// Parties returns the party repository
func (r *GormRepositories) Parties() finance.PartyRepository {
	return NewGormPartyRepository(r.db)
}

// Entries returns the ledger entry repository
func (r *GormRepositories) Entries() finance.LedgerEntryRepository {
	return NewGormLedgerEntryRepository(r.db)
}

// Payments returns the payment record repository
func (r *GormRepositories) Payments() finance.PaymentRecordRepository {
	return NewGormPaymentRecordRepository(r.db)
}

// Credits returns the credit lot repository
func (r *GormRepositories) Credits() finance.CreditLotRepository {
	return NewGormCreditLotRepository(r.db)
}

// GormTransactionScope implements TransactionScope using GORM transactions.
// If the function returns an error, the transaction is rolled back.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn inside one database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appfinance.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormRepositories(tx))
	})
}

var (
	_ appfinance.TransactionScope = (*GormTransactionScope)(nil)
	_ appfinance.Repositories     = (*GormRepositories)(nil)
)
