package finance

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/go-playground/validator/v10"
)

// Metrics receives reconciliation measurements.
// telemetry.ReconciliationMetrics satisfies it.
type Metrics interface {
	RecordPayment(ctx context.Context, partyType, mode string, amountCents, overpaidCents int64, entries int)
	RecordReversal(ctx context.Context, partyType, source string)
	RecordCreditApplied(ctx context.Context, partyType string, amountCents int64)
	RecordInvariantViolation(ctx context.Context, operation string)
	RecordDuration(ctx context.Context, operation string, d time.Duration, err error)
}

type noopMetrics struct{}

func (noopMetrics) RecordPayment(context.Context, string, string, int64, int64, int) {}
func (noopMetrics) RecordReversal(context.Context, string, string) {}
func (noopMetrics) RecordCreditApplied(context.Context, string, int64) {}
func (noopMetrics) RecordInvariantViolation(context.Context, string) {}
func (noopMetrics) RecordDuration(context.Context, string, time.Duration, error) {}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput runs struct-tag validation and reports the first failure as a
// VALIDATION_ERROR
func validateInput(v *validator.Validate, in any) error {
	err := v.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Param() != "" {
			return shared.NewValidationError("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
		}
		return shared.NewValidationError("%s failed %s", fe.Field(), fe.Tag())
	}
	return shared.NewValidationError("invalid input: %v", err)
}
