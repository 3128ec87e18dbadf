package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartyRepository defines persistence for parties
type PartyRepository interface {
	// FindByID finds a party by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Party, error)

	// FindByIDForUpdate finds a party and takes a row lock when the store supports it.
	// Must be called inside a transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Party, error)

	// FindByType returns all parties of a type
	FindByType(ctx context.Context, partyType PartyType) ([]Party, error)

	// Save creates or updates a party
	Save(ctx context.Context, party *Party) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, party *Party) error
}

// PartyOutstanding is an aggregated outstanding total for one party
type PartyOutstanding struct {
	PartyID     uuid.UUID
	Outstanding decimal.Decimal
	OpenEntries int
}

// LedgerEntryRepository defines persistence for sales and purchases
type LedgerEntryRepository interface {
	// FindByID finds an entry by ID
	FindByID(ctx context.Context, id uuid.UUID) (LedgerEntry, error)

	// FindByIDs finds entries by ID; missing IDs are simply absent from the result
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]LedgerEntry, error)

	// FindByParty returns every entry of a party
	FindByParty(ctx context.Context, partyID uuid.UUID) ([]LedgerEntry, error)

	// FindOutstandingByParty returns entries with AmountDue > 0 in FIFO order
	FindOutstandingByParty(ctx context.Context, partyID uuid.UUID, kind EntryKind) ([]LedgerEntry, error)

	// FindOutstandingByKind returns every entry of a kind with AmountDue > 0
	FindOutstandingByKind(ctx context.Context, kind EntryKind) ([]LedgerEntry, error)

	// SumOutstandingByParty aggregates AmountDue per party for a kind
	SumOutstandingByParty(ctx context.Context, kind EntryKind) ([]PartyOutstanding, error)

	// Save creates or updates an entry. New entries get the next sequence number.
	Save(ctx context.Context, entry LedgerEntry) error

	// SavePayments persists the paid amounts of the given entries
	SavePayments(ctx context.Context, entries []LedgerEntry) error
}

// PaymentRecordRepository defines persistence for payment records
type PaymentRecordRepository interface {
	// FindByID finds a payment and its allocations
	FindByID(ctx context.Context, id uuid.UUID) (*PaymentRecord, error)

	// FindByParty lists a party's payments, newest first
	FindByParty(ctx context.Context, partyID uuid.UUID) ([]PaymentRecord, error)

	// Create inserts a new payment with its allocations
	Create(ctx context.Context, payment *PaymentRecord) error

	// MarkReversed persists the reversal fields with a version check
	MarkReversed(ctx context.Context, payment *PaymentRecord) error
}

// CreditLotRepository defines persistence for credit lots and their consumption
type CreditLotRepository interface {
	// FindByPayment finds the lot created by a payment
	FindByPayment(ctx context.Context, paymentID uuid.UUID) (*CreditLot, error)

	// FindByIDs finds lots by ID
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*CreditLot, error)

	// FindAvailableByParty returns unreleased lots with remaining credit, oldest first
	FindAvailableByParty(ctx context.Context, partyID uuid.UUID) ([]*CreditLot, error)

	// Save creates or updates a lot
	Save(ctx context.Context, lot *CreditLot) error

	// SaveConsumptions creates or updates consumption records
	SaveConsumptions(ctx context.Context, consumptions []CreditConsumption) error

	// FindConsumptionsByConsumer returns the draws made by a credit application
	FindConsumptionsByConsumer(ctx context.Context, paymentID uuid.UUID) ([]CreditConsumption, error)

	// FindActiveConsumptionsByLot returns unreversed draws on a lot
	FindActiveConsumptionsByLot(ctx context.Context, lotID uuid.UUID) ([]CreditConsumption, error)
}
