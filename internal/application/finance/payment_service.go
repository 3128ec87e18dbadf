package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/erp/reconciliation/internal/domain/shared/valueobject"
	"github.com/erp/reconciliation/internal/infrastructure/logger"
	"github.com/erp/reconciliation/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService records, reverses and re-applies payments. Every write runs
// under the party's lock and inside a single transaction.
type PaymentService struct {
	repos       Repositories
	txScope     TransactionScope
	locker      PartyLocker
	strategy    finance.AllocationStrategy
	events      shared.EventPublisher
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	metrics     Metrics
	logger      *zap.Logger
	validate    *validator.Validate
}

// PaymentServiceOption configures a PaymentService
type PaymentServiceOption func(*PaymentService)

// WithEventPublisher publishes domain events after each committed write
func WithEventPublisher(p shared.EventPublisher) PaymentServiceOption {
	return func(s *PaymentService) { s.events = p }
}

// WithIdempotency enables idempotency keys on RecordPayment
func WithIdempotency(store shared.IdempotencyStore, cfg shared.IdempotencyConfig) PaymentServiceOption {
	return func(s *PaymentService) {
		s.idempotency = store
		s.idemConfig = cfg
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) PaymentServiceOption {
	return func(s *PaymentService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the fallback logger used when the context carries none
func WithLogger(l *zap.Logger) PaymentServiceOption {
	return func(s *PaymentService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithAllocationStrategy replaces the FIFO strategy
func WithAllocationStrategy(st finance.AllocationStrategy) PaymentServiceOption {
	return func(s *PaymentService) {
		if st != nil {
			s.strategy = st
		}
	}
}

// NewPaymentService creates a PaymentService
func NewPaymentService(repos Repositories, txScope TransactionScope, locker PartyLocker, opts ...PaymentServiceOption) *PaymentService {
	s := &PaymentService{
		repos:    repos,
		txScope:  txScope,
		locker:   locker,
		strategy: finance.NewFIFOAllocationStrategy(),
		metrics:  noopMetrics{},
		logger:   zap.NewNop(),
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordPayment allocates a payment across the party's outstanding entries,
// oldest first. Whatever is left after every entry is settled becomes standing
// credit on the party.
func (s *PaymentService) RecordPayment(ctx context.Context, in RecordPaymentInput) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "record")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPartyID, in.PartyID.String(),
		telemetry.SpanAttrPartyType, in.PartyType,
		telemetry.SpanAttrAmount, in.Amount.String(),
	)

	start := time.Now()
	result, err := s.recordPayment(ctx, in)
	s.metrics.RecordDuration(ctx, "record_payment", time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logFailure(ctx, "record_payment", err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrEntries, result.Payment.EntriesUpdated())
	telemetry.SetOK(span)

	p := result.Payment
	s.metrics.RecordPayment(ctx, string(p.PartyType), string(p.PaymentMode),
		valueobject.NewMoney(p.Amount).Cents(), valueobject.NewMoney(p.OverpaidAmount).Cents(), p.EntriesUpdated())
	s.log(ctx).Info("Payment recorded",
		zap.String("payment_id", p.ID.String()),
		zap.String("party_id", p.PartyID.String()),
		zap.String("amount", p.Amount.String()),
		zap.String("overpaid", p.OverpaidAmount.String()),
		zap.String("summary", result.Summary),
	)
	return result, nil
}

func (s *PaymentService) recordPayment(ctx context.Context, in RecordPaymentInput) (result *PaymentResult, err error) {
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}
	if !in.Amount.IsPositive() {
		return nil, shared.NewValidationError("amount must be greater than zero")
	}
	if err := finance.ValidateAmount("amount", in.Amount); err != nil {
		return nil, err
	}
	partyType := finance.PartyType(in.PartyType)

	release, err := s.claimIdempotencyKey(ctx, in.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if release != nil {
		defer func() {
			if err != nil {
				release()
			}
		}()
	}

	unlock, err := s.locker.Lock(ctx, in.PartyID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, in.PartyID, unlock)

	var payment *finance.PaymentRecord
	err = s.txScope.Execute(ctx, func(repos Repositories) error {
		party, err := loadParty(ctx, repos, in.PartyID, partyType)
		if err != nil {
			return err
		}
		entries, err := repos.Entries().FindOutstandingByParty(ctx, party.ID, partyType.EntryKind())
		if err != nil {
			return fmt.Errorf("failed to load outstanding entries: %w", err)
		}

		payment, err = finance.NewPaymentRecord(party.ID, partyType, in.Amount, finance.PaymentSourceCash, finance.PaymentDetails{
			PaymentMode:     finance.PaymentMode(in.PaymentMode),
			PaymentDate:     in.PaymentDate,
			ReferenceNumber: in.ReferenceNumber,
			Notes:           in.Notes,
			RecordedBy:      in.RecordedBy,
			IdempotencyKey:  in.IdempotencyKey,
		})
		if err != nil {
			return err
		}

		plan, err := s.strategy.Plan(in.Amount, entries)
		if err != nil {
			return err
		}
		if err := finance.ExecutePlan(plan, payment); err != nil {
			return err
		}
		touched := plannedEntries(plan)
		for _, e := range touched {
			if err := e.Core().CheckInvariant(); err != nil {
				return err
			}
		}

		var lot *finance.CreditLot
		if payment.OverpaidAmount.IsPositive() {
			if err := party.AddCredit(payment.OverpaidAmount); err != nil {
				return err
			}
			if lot, err = finance.NewCreditLot(payment); err != nil {
				return err
			}
		}

		if err := repos.Entries().SavePayments(ctx, touched); err != nil {
			return fmt.Errorf("failed to save entries: %w", err)
		}
		if err := repos.Payments().Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		if lot != nil {
			if err := repos.Credits().Save(ctx, lot); err != nil {
				return fmt.Errorf("failed to save credit lot: %w", err)
			}
			if err := repos.Parties().SaveWithLock(ctx, party); err != nil {
				return err
			}
		}

		payment.AddDomainEvent(finance.NewPaymentRecordedEvent(payment))
		result = &PaymentResult{
			Payment:        payment,
			UpdatedEntries: entryUpdates(plan),
			CreditLot:      lot,
			PartyCredit:    party.OverpaidAmount,
			Summary:        billsUpdated(len(plan.Allocations)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, payment)
	return result, nil
}

// ReversePayment undoes a payment exactly. Allocations are taken back from
// their entries, the credit lot created by an overpaying payment is released,
// and a credit application returns its draws to the lots they came from.
//
// A payment whose credit has already been drawn on cannot be reversed until
// the credit applications that drew on it are reversed.
func (s *PaymentService) ReversePayment(ctx context.Context, in ReversePaymentInput) (*ReversalResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "reverse")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, in.PaymentID.String())

	start := time.Now()
	result, err := s.reversePayment(ctx, in)
	s.metrics.RecordDuration(ctx, "reverse_payment", time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logFailure(ctx, "reverse_payment", err)
		return nil, err
	}
	telemetry.SetOK(span)

	p := result.Payment
	s.metrics.RecordReversal(ctx, string(p.PartyType), string(p.Source))
	s.log(ctx).Info("Payment reversed",
		zap.String("payment_id", p.ID.String()),
		zap.String("party_id", p.PartyID.String()),
		zap.String("reason", p.ReversalReason),
		zap.String("summary", result.Summary),
	)
	return result, nil
}

func (s *PaymentService) reversePayment(ctx context.Context, in ReversePaymentInput) (*ReversalResult, error) {
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}

	// The party is needed to take the lock; the record is read again under it.
	existing, err := s.repos.Payments().FindByID(ctx, in.PaymentID)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, existing.PartyID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, existing.PartyID, unlock)

	var result *ReversalResult
	var payment *finance.PaymentRecord
	err = s.txScope.Execute(ctx, func(repos Repositories) error {
		p, err := repos.Payments().FindByID(ctx, in.PaymentID)
		if err != nil {
			return err
		}
		payment = p
		if payment.IsReversed() {
			return shared.NewDomainError(shared.CodeAlreadyReversed,
				fmt.Sprintf("payment %s was already reversed", payment.ID))
		}
		party, err := loadParty(ctx, repos, payment.PartyID, payment.PartyType)
		if err != nil {
			return err
		}

		restored, err := revertAllocations(ctx, repos, payment)
		if err != nil {
			return err
		}

		result = &ReversalResult{
			Payment:        payment,
			CreditReleased: decimal.Zero,
			CreditRestored: decimal.Zero,
		}
		partyChanged := false

		if !payment.IsCredit() && payment.OverpaidAmount.IsPositive() {
			released, err := releaseCreditLot(ctx, repos, payment)
			if err != nil {
				return err
			}
			if err := party.ReleaseCredit(released); err != nil {
				return err
			}
			result.CreditReleased = released
			partyChanged = true
		}
		if payment.IsCredit() {
			returned, err := restoreConsumedCredit(ctx, repos, payment)
			if err != nil {
				return err
			}
			if err := party.AddCredit(returned); err != nil {
				return err
			}
			result.CreditRestored = returned
			partyChanged = true
		}

		entries := make([]finance.LedgerEntry, 0, len(restored))
		for _, r := range restored {
			entries = append(entries, r.entry)
		}
		if err := repos.Entries().SavePayments(ctx, entries); err != nil {
			return fmt.Errorf("failed to save entries: %w", err)
		}
		if partyChanged {
			if err := repos.Parties().SaveWithLock(ctx, party); err != nil {
				return err
			}
		}
		if err := payment.MarkReversed(ctx, in.Reason, in.ReversedBy); err != nil {
			return err
		}
		if err := repos.Payments().MarkReversed(ctx, payment); err != nil {
			return err
		}

		payment.AddDomainEvent(finance.NewPaymentReversedEvent(payment))
		for _, r := range restored {
			result.RestoredEntries = append(result.RestoredEntries, newEntryUpdate(r.entry, r.amount.Neg()))
		}
		result.PartyCredit = party.OverpaidAmount
		result.Summary = billsUpdated(len(restored))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, payment)
	return result, nil
}

// ApplyCredit spends a party's standing credit on its outstanding entries,
// oldest entry and oldest credit lot first. It produces a CREDIT-sourced
// payment record that can itself be reversed.
func (s *PaymentService) ApplyCredit(ctx context.Context, in ApplyCreditInput) (*PaymentResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "apply_credit")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPartyID, in.PartyID.String(),
		telemetry.SpanAttrPartyType, in.PartyType,
	)

	start := time.Now()
	result, err := s.applyCredit(ctx, in)
	s.metrics.RecordDuration(ctx, "apply_credit", time.Since(start), err)
	if err != nil {
		telemetry.RecordError(span, err)
		s.logFailure(ctx, "apply_credit", err)
		return nil, err
	}
	telemetry.SetOK(span)

	p := result.Payment
	s.metrics.RecordCreditApplied(ctx, string(p.PartyType), valueobject.NewMoney(p.Amount).Cents())
	s.log(ctx).Info("Credit applied",
		zap.String("payment_id", p.ID.String()),
		zap.String("party_id", p.PartyID.String()),
		zap.String("amount", p.Amount.String()),
		zap.String("credit_remaining", result.PartyCredit.String()),
		zap.String("summary", result.Summary),
	)
	return result, nil
}

func (s *PaymentService) applyCredit(ctx context.Context, in ApplyCreditInput) (*PaymentResult, error) {
	if err := validateInput(s.validate, in); err != nil {
		return nil, err
	}
	partyType := finance.PartyType(in.PartyType)

	unlock, err := s.locker.Lock(ctx, in.PartyID)
	if err != nil {
		return nil, err
	}
	defer s.unlock(ctx, in.PartyID, unlock)

	var result *PaymentResult
	var payment *finance.PaymentRecord
	err = s.txScope.Execute(ctx, func(repos Repositories) error {
		party, err := loadParty(ctx, repos, in.PartyID, partyType)
		if err != nil {
			return err
		}
		if !party.HasCredit() {
			return shared.NewDomainError(shared.CodeNothingToApply,
				fmt.Sprintf("party %s has no standing credit", party.ID))
		}
		entries, err := repos.Entries().FindOutstandingByParty(ctx, party.ID, partyType.EntryKind())
		if err != nil {
			return fmt.Errorf("failed to load outstanding entries: %w", err)
		}
		totalDue := decimal.Zero
		for _, e := range entries {
			totalDue = totalDue.Add(e.AmountDue())
		}
		if !totalDue.IsPositive() {
			return shared.NewDomainError(shared.CodeNothingToApply,
				fmt.Sprintf("party %s has no outstanding entries", party.ID))
		}

		lots, err := repos.Credits().FindAvailableByParty(ctx, party.ID)
		if err != nil {
			return fmt.Errorf("failed to load credit lots: %w", err)
		}
		if available := finance.TotalRemaining(lots); !available.Equal(party.OverpaidAmount) {
			return shared.NewInvariantViolation("party %s: credit lots hold %s but party credit is %s",
				party.ID, available, party.OverpaidAmount)
		}

		amount := decimal.Min(party.OverpaidAmount, totalDue)
		payment, err = finance.NewPaymentRecord(party.ID, partyType, amount, finance.PaymentSourceCredit, finance.PaymentDetails{
			PaymentMode: finance.PaymentModeCredit,
			RecordedBy:  in.RecordedBy,
			Notes:       "standing credit applied",
		})
		if err != nil {
			return err
		}

		plan, err := s.strategy.Plan(amount, entries)
		if err != nil {
			return err
		}
		if !plan.Remaining.IsZero() {
			return shared.NewInvariantViolation("credit application left %s unallocated", plan.Remaining)
		}
		if err := finance.ExecutePlan(plan, payment); err != nil {
			return err
		}

		draws, err := finance.DrawCredit(lots, payment.ID, amount)
		if err != nil {
			return err
		}
		if err := party.ReleaseCredit(amount); err != nil {
			return err
		}

		if err := repos.Entries().SavePayments(ctx, plannedEntries(plan)); err != nil {
			return fmt.Errorf("failed to save entries: %w", err)
		}
		if err := repos.Payments().Create(ctx, payment); err != nil {
			return fmt.Errorf("failed to save payment: %w", err)
		}
		for _, lot := range drawnLots(lots, draws) {
			if err := repos.Credits().Save(ctx, lot); err != nil {
				return fmt.Errorf("failed to save credit lot: %w", err)
			}
		}
		if err := repos.Credits().SaveConsumptions(ctx, draws); err != nil {
			return fmt.Errorf("failed to save credit consumption: %w", err)
		}
		if err := repos.Parties().SaveWithLock(ctx, party); err != nil {
			return err
		}

		payment.AddDomainEvent(finance.NewCreditAppliedEvent(payment, len(draws), party.OverpaidAmount))
		result = &PaymentResult{
			Payment:        payment,
			UpdatedEntries: entryUpdates(plan),
			PartyCredit:    party.OverpaidAmount,
			Summary:        billsUpdated(len(plan.Allocations)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, payment)
	return result, nil
}

// GetPayment returns one payment record with its allocations
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*finance.PaymentRecord, error) {
	return s.repos.Payments().FindByID(ctx, id)
}

// ListPayments returns a party's payments, newest first
func (s *PaymentService) ListPayments(ctx context.Context, partyID uuid.UUID) ([]finance.PaymentRecord, error) {
	if _, err := s.repos.Parties().FindByID(ctx, partyID); err != nil {
		return nil, err
	}
	return s.repos.Payments().FindByParty(ctx, partyID)
}

func loadParty(ctx context.Context, repos Repositories, id uuid.UUID, partyType finance.PartyType) (*finance.Party, error) {
	party, err := repos.Parties().FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if party.Type != partyType {
		return nil, shared.NewNotFoundError(strings.ToLower(string(partyType)), id)
	}
	return party, nil
}

type restoredEntry struct {
	entry  finance.LedgerEntry
	amount decimal.Decimal
}

// revertAllocations takes each allocation back from its entry, in the order
// the allocations were made
func revertAllocations(ctx context.Context, repos Repositories, payment *finance.PaymentRecord) ([]restoredEntry, error) {
	if len(payment.Allocations) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(payment.Allocations))
	for _, a := range payment.Allocations {
		ids = append(ids, a.LedgerEntryID)
	}
	entries, err := repos.Entries().FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load allocated entries: %w", err)
	}
	byID := make(map[uuid.UUID]finance.LedgerEntry, len(entries))
	for _, e := range entries {
		byID[e.Core().ID] = e
	}

	restored := make([]restoredEntry, 0, len(payment.Allocations))
	for _, a := range payment.Allocations {
		entry, ok := byID[a.LedgerEntryID]
		if !ok {
			return nil, shared.NewInvariantViolation("payment %s: allocated entry %s no longer exists",
				payment.ID, a.LedgerEntryID)
		}
		if err := entry.RevertPayment(a.AmountApplied); err != nil {
			return nil, err
		}
		restored = append(restored, restoredEntry{entry: entry, amount: a.AmountApplied})
	}
	return restored, nil
}

// releaseCreditLot retires the lot an overpaying payment created and returns
// the credit that goes with it
func releaseCreditLot(ctx context.Context, repos Repositories, payment *finance.PaymentRecord) (decimal.Decimal, error) {
	lot, err := repos.Credits().FindByPayment(ctx, payment.ID)
	if err != nil {
		if shared.IsNotFound(err) {
			return decimal.Zero, shared.NewInvariantViolation("payment %s overpaid %s but has no credit lot",
				payment.ID, payment.OverpaidAmount)
		}
		return decimal.Zero, err
	}
	if lot.IsConsumed() {
		consumers, err := repos.Credits().FindActiveConsumptionsByLot(ctx, lot.ID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to load credit consumption: %w", err)
		}
		ids := make([]string, 0, len(consumers))
		for _, c := range consumers {
			ids = append(ids, c.ConsumerPaymentID.String())
		}
		return decimal.Zero, shared.NewDomainError(shared.CodeCreditConsumed,
			fmt.Sprintf("credit from payment %s has been applied by %s; reverse those first",
				payment.ID, strings.Join(ids, ", ")))
	}
	released, err := lot.Release()
	if err != nil {
		return decimal.Zero, err
	}
	if err := repos.Credits().Save(ctx, lot); err != nil {
		return decimal.Zero, fmt.Errorf("failed to save credit lot: %w", err)
	}
	return released, nil
}

// restoreConsumedCredit returns the draws of a credit application to their lots
func restoreConsumedCredit(ctx context.Context, repos Repositories, payment *finance.PaymentRecord) (decimal.Decimal, error) {
	consumptions, err := repos.Credits().FindConsumptionsByConsumer(ctx, payment.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load credit consumption: %w", err)
	}
	lotIDs := make([]uuid.UUID, 0, len(consumptions))
	for _, c := range consumptions {
		lotIDs = append(lotIDs, c.LotID)
	}
	lots, err := repos.Credits().FindByIDs(ctx, lotIDs)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load credit lots: %w", err)
	}
	byID := make(map[uuid.UUID]*finance.CreditLot, len(lots))
	for _, l := range lots {
		byID[l.ID] = l
	}

	returned := decimal.Zero
	for i := range consumptions {
		c := &consumptions[i]
		if c.Reversed {
			continue
		}
		lot, ok := byID[c.LotID]
		if !ok {
			return decimal.Zero, shared.NewInvariantViolation("credit lot %s drawn by payment %s no longer exists",
				c.LotID, payment.ID)
		}
		if err := lot.Restore(c.Amount); err != nil {
			return decimal.Zero, err
		}
		c.Reversed = true
		returned = returned.Add(c.Amount)
	}
	if !returned.Equal(payment.Amount) {
		return decimal.Zero, shared.NewInvariantViolation("credit application %s drew %s but its draws total %s",
			payment.ID, payment.Amount, returned)
	}

	for _, l := range lots {
		if err := repos.Credits().Save(ctx, l); err != nil {
			return decimal.Zero, fmt.Errorf("failed to save credit lot: %w", err)
		}
	}
	if err := repos.Credits().SaveConsumptions(ctx, consumptions); err != nil {
		return decimal.Zero, fmt.Errorf("failed to save credit consumption: %w", err)
	}
	return returned, nil
}

func plannedEntries(plan *finance.AllocationPlan) []finance.LedgerEntry {
	entries := make([]finance.LedgerEntry, 0, len(plan.Allocations))
	for _, a := range plan.Allocations {
		entries = append(entries, a.Entry)
	}
	return entries
}

func entryUpdates(plan *finance.AllocationPlan) []EntryUpdate {
	updates := make([]EntryUpdate, 0, len(plan.Allocations))
	for _, a := range plan.Allocations {
		updates = append(updates, newEntryUpdate(a.Entry, a.Amount))
	}
	return updates
}

func drawnLots(lots []*finance.CreditLot, draws []finance.CreditConsumption) []*finance.CreditLot {
	drawn := make(map[uuid.UUID]bool, len(draws))
	for _, d := range draws {
		drawn[d.LotID] = true
	}
	out := make([]*finance.CreditLot, 0, len(draws))
	for _, l := range lots {
		if drawn[l.ID] {
			out = append(out, l)
		}
	}
	return out
}

// claimIdempotencyKey claims key when idempotency is enabled. The returned
// func releases the claim and is nil when nothing was claimed.
func (s *PaymentService) claimIdempotencyKey(ctx context.Context, key string) (func(), error) {
	if key == "" || s.idempotency == nil || !s.idemConfig.Enabled {
		return nil, nil
	}
	storeKey := "payment:" + key
	claimed, err := s.idempotency.Claim(ctx, storeKey, s.idemConfig.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if !claimed {
		return nil, shared.NewDomainError(shared.CodeDuplicateRequest,
			fmt.Sprintf("a payment with idempotency key %q was already submitted", key))
	}
	return func() {
		if err := s.idempotency.Release(context.WithoutCancel(ctx), storeKey); err != nil {
			s.log(ctx).Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *PaymentService) unlock(ctx context.Context, partyID uuid.UUID, unlock UnlockFunc) {
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		s.log(ctx).Warn("Failed to release party lock", zap.String("party_id", partyID.String()), zap.Error(err))
	}
}

// publish sends the payment's pending events. The write has already been
// committed, so a publishing failure is only logged.
func (s *PaymentService) publish(ctx context.Context, payment *finance.PaymentRecord) {
	if payment == nil {
		return
	}
	events := payment.GetDomainEvents()
	payment.ClearDomainEvents()
	if s.events == nil || len(events) == 0 {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		s.log(ctx).Warn("Failed to publish payment events",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *PaymentService) logFailure(ctx context.Context, operation string, err error) {
	if shared.IsInvariantViolation(err) {
		s.metrics.RecordInvariantViolation(ctx, operation)
		s.log(ctx).Error("Ledger invariant violated",
			zap.String("operation", operation),
			zap.Error(err),
			zap.Stack("stacktrace"),
		)
		return
	}
	s.log(ctx).Debug("Payment operation rejected",
		zap.String("operation", operation),
		zap.String("code", shared.CodeOf(err)),
		zap.Error(err),
	)
}

func (s *PaymentService) log(ctx context.Context) *logger.ContextLogger {
	if l := logger.FromContext(ctx); l != nil && l.Core().Enabled(zap.ErrorLevel) {
		return logger.L(ctx)
	}
	return logger.WithLogger(ctx, s.logger)
}
