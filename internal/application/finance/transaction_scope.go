package finance

import (
	"context"

	"github.com/erp/reconciliation/internal/domain/finance"
)

// Repositories groups the finance repositories. Inside TransactionScope.Execute
// every repository shares the same database transaction.
type Repositories interface {
	Parties() finance.PartyRepository
	Entries() finance.LedgerEntryRepository
	Payments() finance.PaymentRecordRepository
	Credits() finance.CreditLotRepository
}

// TransactionScope runs a unit of work atomically.
// If fn returns an error the transaction is rolled back, otherwise it is committed.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// NoOpTransactionScope runs fn directly against the given repositories without a
// transaction. Used by tests and by in-memory wiring.
type NoOpTransactionScope struct {
	parties  finance.PartyRepository
	entries  finance.LedgerEntryRepository
	payments finance.PaymentRecordRepository
	credits  finance.CreditLotRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(
	parties finance.PartyRepository,
	entries finance.LedgerEntryRepository,
	payments finance.PaymentRecordRepository,
	credits finance.CreditLotRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		parties:  parties,
		entries:  entries,
		payments: payments,
		credits:  credits,
	}
}

// Execute runs fn without a transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s)
}

// Parties returns the party repository
func (s *NoOpTransactionScope) Parties() finance.PartyRepository { return s.parties }

// Entries returns the ledger entry repository
func (s *NoOpTransactionScope) Entries() finance.LedgerEntryRepository { return s.entries }

// Payments returns the payment record repository
func (s *NoOpTransactionScope) Payments() finance.PaymentRecordRepository { return s.payments }

// Credits returns the credit lot repository
func (s *NoOpTransactionScope) Credits() finance.CreditLotRepository { return s.credits }

var (
	_ TransactionScope = (*NoOpTransactionScope)(nil)
	_ Repositories     = (*NoOpTransactionScope)(nil)
)
