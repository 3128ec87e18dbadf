package finance

import (
	"sort"
	"time"

	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditLot is the credit created by one overpaying payment. Lots are drawn
// down oldest first, and every draw is recorded as a CreditConsumption so a
// later reversal knows what depends on the lot.
type CreditLot struct {
	ID        uuid.UUID
	PartyID   uuid.UUID
	PaymentID uuid.UUID // the payment whose overpay created the lot
	Amount    decimal.Decimal
	Consumed  decimal.Decimal
	Released  bool // set when the originating payment is reversed
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCreditLot creates a lot for the overpaid part of a payment
func NewCreditLot(payment *PaymentRecord) (*CreditLot, error) {
	if !payment.OverpaidAmount.IsPositive() {
		return nil, shared.NewValidationError("payment %s has no overpaid amount", payment.ID)
	}
	now := time.Now()
	return &CreditLot{
		ID:        uuid.New(),
		PartyID:   payment.PartyID,
		PaymentID: payment.ID,
		Amount:    payment.OverpaidAmount,
		Consumed:  decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Remaining returns the unconsumed credit in the lot
func (l *CreditLot) Remaining() decimal.Decimal {
	if l.Released {
		return decimal.Zero
	}
	return l.Amount.Sub(l.Consumed)
}

// IsConsumed reports whether any part of the lot has been drawn
func (l *CreditLot) IsConsumed() bool {
	return l.Consumed.IsPositive()
}

// Consume draws amount from the lot
func (l *CreditLot) Consume(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("consumed credit must be positive")
	}
	if amount.GreaterThan(l.Remaining()) {
		return shared.NewInvariantViolation("credit lot %s: consuming %s exceeds remaining %s", l.ID, amount, l.Remaining())
	}
	l.Consumed = l.Consumed.Add(amount)
	l.UpdatedAt = time.Now()
	return nil
}

// Restore puts consumed credit back, used when a credit application is reversed
func (l *CreditLot) Restore(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("restored credit must be positive")
	}
	left := l.Consumed.Sub(amount)
	if left.IsNegative() {
		return shared.NewInvariantViolation("credit lot %s: restoring %s exceeds consumed %s", l.ID, amount, l.Consumed)
	}
	l.Consumed = left
	l.UpdatedAt = time.Now()
	return nil
}

// Release retires the lot because its payment was reversed. A lot that has
// been partly consumed cannot be released.
func (l *CreditLot) Release() (decimal.Decimal, error) {
	if l.Released {
		return decimal.Zero, shared.NewInvariantViolation("credit lot %s already released", l.ID)
	}
	if l.IsConsumed() {
		return decimal.Zero, shared.NewDomainError(shared.CodeCreditConsumed,
			"credit from payment "+l.PaymentID.String()+" has been applied to other entries; reverse those credit applications first")
	}
	l.Released = true
	l.UpdatedAt = time.Now()
	return l.Amount, nil
}

// CreditConsumption records one draw on a lot by a credit application
type CreditConsumption struct {
	ID                uuid.UUID
	LotID             uuid.UUID
	ConsumerPaymentID uuid.UUID
	Amount            decimal.Decimal
	Reversed          bool // the consuming credit application was reversed
	CreatedAt         time.Time
}

// NewCreditConsumption creates a consumption record
func NewCreditConsumption(lotID, consumerPaymentID uuid.UUID, amount decimal.Decimal) CreditConsumption {
	return CreditConsumption{
		ID:                uuid.New(),
		LotID:             lotID,
		ConsumerPaymentID: consumerPaymentID,
		Amount:            amount,
		CreatedAt:         time.Now(),
	}
}

// SortLotsFIFO orders lots oldest first, by creation time then ID
func SortLotsFIFO(lots []*CreditLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		if !lots[i].CreatedAt.Equal(lots[j].CreatedAt) {
			return lots[i].CreatedAt.Before(lots[j].CreatedAt)
		}
		return lots[i].ID.String() < lots[j].ID.String()
	})
}

// DrawCredit consumes up to amount from lots in FIFO order and returns the
// consumption records. It never draws more than the lots hold.
func DrawCredit(lots []*CreditLot, consumerPaymentID uuid.UUID, amount decimal.Decimal) ([]CreditConsumption, error) {
	SortLotsFIFO(lots)
	remaining := amount
	draws := make([]CreditConsumption, 0)
	for _, lot := range lots {
		if !remaining.IsPositive() {
			break
		}
		avail := lot.Remaining()
		if !avail.IsPositive() {
			continue
		}
		take := decimal.Min(remaining, avail)
		if err := lot.Consume(take); err != nil {
			return nil, err
		}
		draws = append(draws, NewCreditConsumption(lot.ID, consumerPaymentID, take))
		remaining = remaining.Sub(take)
	}
	if remaining.IsPositive() {
		return nil, shared.NewInvariantViolation("credit lots short by %s", remaining)
	}
	return draws, nil
}

// TotalRemaining sums Remaining over lots
func TotalRemaining(lots []*CreditLot) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lots {
		total = total.Add(l.Remaining())
	}
	return total
}
