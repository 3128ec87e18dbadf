package finance

import (
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places a monetary amount may carry
const AmountScale = 2

// MaxAmount bounds a single amount. Together with AmountScale it keeps every
// stored value within 14 significant digits, which both decimal(18,4) and
// sqlite NUMERIC hold exactly.
var MaxAmount = decimal.New(1, 12)

// ValidateAmount rejects amounts with sub-cent digits or beyond MaxAmount.
// Trailing zeros ("10.000") are accepted.
func ValidateAmount(field string, amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(AmountScale)) {
		return shared.NewValidationError("%s must have at most %d decimal places, got %s",
			field, AmountScale, amount.String())
	}
	if amount.Abs().GreaterThanOrEqual(MaxAmount) {
		return shared.NewValidationError("%s must be less than %s", field, MaxAmount.String())
	}
	return nil
}
