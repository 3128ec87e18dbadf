package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ReconciliationMetrics records payment allocation activity.
type ReconciliationMetrics struct {
	logger *zap.Logger

	paymentRecorded    *Counter
	paymentReversed    *Counter
	paymentAmount      *Counter
	overpayAmount      *Counter
	creditApplied      *Counter
	invariantViolation *Counter
	allocationEntries  *Histogram
	operationDuration  *Histogram
}

// NewReconciliationMetrics creates the instruments on meter.
func NewReconciliationMetrics(meter metric.Meter, logger *zap.Logger) (*ReconciliationMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &ReconciliationMetrics{logger: logger}
	var err error

	if m.paymentRecorded, err = NewCounter(meter, "recon_payment_recorded_total",
		"Total number of payments recorded", "{payments}"); err != nil {
		return nil, err
	}
	if m.paymentReversed, err = NewCounter(meter, "recon_payment_reversed_total",
		"Total number of payments reversed", "{payments}"); err != nil {
		return nil, err
	}
	if m.paymentAmount, err = NewCounter(meter, "recon_payment_amount_total",
		"Total amount received in cents", "{cents}"); err != nil {
		return nil, err
	}
	if m.overpayAmount, err = NewCounter(meter, "recon_overpay_total",
		"Total amount turned into party credit in cents", "{cents}"); err != nil {
		return nil, err
	}
	if m.creditApplied, err = NewCounter(meter, "recon_credit_applied_total",
		"Total party credit applied to open entries in cents", "{cents}"); err != nil {
		return nil, err
	}
	if m.invariantViolation, err = NewCounter(meter, "recon_invariant_violation_total",
		"Operations aborted by a ledger invariant violation", "{violations}"); err != nil {
		return nil, err
	}
	if m.allocationEntries, err = NewHistogram(meter, HistogramOpts{
		Name:        "recon_allocation_entries",
		Description: "Number of ledger entries touched by one payment",
		Unit:        "{entries}",
		Boundaries:  AllocationCountBuckets,
	}); err != nil {
		return nil, err
	}
	if m.operationDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "recon_operation_duration_seconds",
		Description: "Duration of reconciliation operations",
		Unit:        "s",
		Boundaries:  OperationDurationBuckets,
	}); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordPayment counts a committed payment.
func (m *ReconciliationMetrics) RecordPayment(ctx context.Context, partyType, mode string, amountCents, overpaidCents int64, entries int) {
	m.paymentRecorded.Inc(ctx, AttrPartyType.String(partyType), AttrPaymentMode.String(mode))
	m.paymentAmount.Add(ctx, amountCents, AttrPartyType.String(partyType))
	if overpaidCents > 0 {
		m.overpayAmount.Add(ctx, overpaidCents, AttrPartyType.String(partyType))
	}
	m.allocationEntries.Record(ctx, float64(entries), AttrPartyType.String(partyType))
}

// RecordReversal counts a committed reversal.
func (m *ReconciliationMetrics) RecordReversal(ctx context.Context, partyType, source string) {
	m.paymentReversed.Inc(ctx, AttrPartyType.String(partyType), AttrSource.String(source))
}

// RecordCreditApplied counts credit drawn down against open entries.
func (m *ReconciliationMetrics) RecordCreditApplied(ctx context.Context, partyType string, amountCents int64) {
	m.creditApplied.Add(ctx, amountCents, AttrPartyType.String(partyType))
}

// RecordInvariantViolation counts an aborted operation.
func (m *ReconciliationMetrics) RecordInvariantViolation(ctx context.Context, operation string) {
	m.invariantViolation.Inc(ctx, AttrOperation.String(operation))
}

// RecordDuration records how long an operation took and whether it failed.
func (m *ReconciliationMetrics) RecordDuration(ctx context.Context, operation string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operationDuration.RecordDuration(ctx, d, AttrOperation.String(operation), AttrOutcome.String(outcome))
}
