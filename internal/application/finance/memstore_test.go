package finance

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// memStore is an in-memory ledger. Every read hands out copies so that, like a
// database, nothing changes until a repository write.
type memStore struct {
	mu           sync.Mutex
	parties      map[uuid.UUID]finance.Party
	entries      map[uuid.UUID]storedEntry
	payments     map[uuid.UUID]finance.PaymentRecord
	lots         map[uuid.UUID]finance.CreditLot
	consumptions map[uuid.UUID]finance.CreditConsumption
	nextSeq      int64

	failPaymentCreate error
}

type storedEntry struct {
	kind finance.EntryKind
	core finance.EntryCore
}

func newMemStore() *memStore {
	return &memStore{
		parties:      make(map[uuid.UUID]finance.Party),
		entries:      make(map[uuid.UUID]storedEntry),
		payments:     make(map[uuid.UUID]finance.PaymentRecord),
		lots:         make(map[uuid.UUID]finance.CreditLot),
		consumptions: make(map[uuid.UUID]finance.CreditConsumption),
	}
}

type memSnapshot struct {
	parties      map[uuid.UUID]finance.Party
	entries      map[uuid.UUID]storedEntry
	payments     map[uuid.UUID]finance.PaymentRecord
	lots         map[uuid.UUID]finance.CreditLot
	consumptions map[uuid.UUID]finance.CreditConsumption
	nextSeq      int64
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() memSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return memSnapshot{
		parties:      cloneMap(s.parties),
		entries:      cloneMap(s.entries),
		payments:     cloneMap(s.payments),
		lots:         cloneMap(s.lots),
		consumptions: cloneMap(s.consumptions),
		nextSeq:      s.nextSeq,
	}
}

func (s *memStore) restore(snap memSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parties = snap.parties
	s.entries = snap.entries
	s.payments = snap.payments
	s.lots = snap.lots
	s.consumptions = snap.consumptions
	s.nextSeq = snap.nextSeq
}

// Repositories

func (s *memStore) Parties() finance.PartyRepository { return (*memParties)(s) }
func (s *memStore) Entries() finance.LedgerEntryRepository { return (*memEntries)(s) }
func (s *memStore) Payments() finance.PaymentRecordRepository { return (*memPayments)(s) }
func (s *memStore) Credits() finance.CreditLotRepository { return (*memCredits)(s) }

// memScope rolls the store back when the unit of work fails
type memScope struct {
	store *memStore
}

func (m memScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	snap := m.store.snapshot()
	if err := fn(m.store); err != nil {
		m.store.restore(snap)
		return err
	}
	return nil
}

type memParties memStore

func (r *memParties) FindByID(_ context.Context, id uuid.UUID) (*finance.Party, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parties[id]
	if !ok {
		return nil, shared.NewNotFoundError("party", id)
	}
	return &p, nil
}

func (r *memParties) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*finance.Party, error) {
	return r.FindByID(ctx, id)
}

func (r *memParties) FindByType(_ context.Context, partyType finance.PartyType) ([]finance.Party, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]finance.Party, 0)
	for _, p := range r.parties {
		if p.Type == partyType {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *memParties) Save(_ context.Context, party *finance.Party) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parties[party.ID] = *party
	return nil
}

func (r *memParties) SaveWithLock(_ context.Context, party *finance.Party) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.parties[party.ID]
	if ok && stored.Version != party.Version {
		return shared.ErrConcurrencyConflict
	}
	party.IncrementVersion()
	r.parties[party.ID] = *party
	return nil
}

type memEntries memStore

func (r *memEntries) restoreEntry(se storedEntry) finance.LedgerEntry {
	e, _ := finance.RestoreLedgerEntry(se.kind, se.core)
	return e
}

func (r *memEntries) FindByID(_ context.Context, id uuid.UUID) (finance.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	se, ok := r.entries[id]
	if !ok {
		return nil, shared.NewNotFoundError("ledger entry", id)
	}
	return r.restoreEntry(se), nil
}

func (r *memEntries) FindByIDs(_ context.Context, ids []uuid.UUID) ([]finance.LedgerEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]finance.LedgerEntry, 0, len(ids))
	for _, id := range ids {
		if se, ok := r.entries[id]; ok {
			out = append(out, r.restoreEntry(se))
		}
	}
	return out, nil
}

func (r *memEntries) collect(keep func(storedEntry) bool) []finance.LedgerEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]finance.LedgerEntry, 0)
	for _, se := range r.entries {
		if keep(se) {
			out = append(out, r.restoreEntry(se))
		}
	}
	finance.SortFIFO(out)
	return out
}

func (r *memEntries) FindByParty(_ context.Context, partyID uuid.UUID) ([]finance.LedgerEntry, error) {
	return r.collect(func(se storedEntry) bool { return se.core.PartyID == partyID }), nil
}

func (r *memEntries) FindOutstandingByParty(_ context.Context, partyID uuid.UUID, kind finance.EntryKind) ([]finance.LedgerEntry, error) {
	return r.collect(func(se storedEntry) bool {
		return se.core.PartyID == partyID && se.kind == kind && se.core.IsOutstanding()
	}), nil
}

func (r *memEntries) FindOutstandingByKind(_ context.Context, kind finance.EntryKind) ([]finance.LedgerEntry, error) {
	return r.collect(func(se storedEntry) bool { return se.kind == kind && se.core.IsOutstanding() }), nil
}

func (r *memEntries) SumOutstandingByParty(ctx context.Context, kind finance.EntryKind) ([]finance.PartyOutstanding, error) {
	entries, _ := r.FindOutstandingByKind(ctx, kind)
	sums := make(map[uuid.UUID]*finance.PartyOutstanding)
	order := make([]uuid.UUID, 0)
	for _, e := range entries {
		pid := e.Core().PartyID
		po, ok := sums[pid]
		if !ok {
			po = &finance.PartyOutstanding{PartyID: pid, Outstanding: decimal.Zero}
			sums[pid] = po
			order = append(order, pid)
		}
		po.Outstanding = po.Outstanding.Add(e.AmountDue())
		po.OpenEntries++
	}
	out := make([]finance.PartyOutstanding, 0, len(order))
	for _, pid := range order {
		out = append(out, *sums[pid])
	}
	return out, nil
}

func (r *memEntries) Save(_ context.Context, entry finance.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := entry.Core()
	if _, ok := r.entries[c.ID]; !ok {
		r.nextSeq++
		c.Sequence = r.nextSeq
	}
	r.entries[c.ID] = storedEntry{kind: entry.Kind(), core: *c}
	return nil
}

func (r *memEntries) SavePayments(_ context.Context, entries []finance.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		c := e.Core()
		se, ok := r.entries[c.ID]
		if !ok {
			return shared.NewNotFoundError("ledger entry", c.ID)
		}
		se.core.AmountPaid = c.AmountPaid
		se.core.UpdatedAt = c.UpdatedAt
		r.entries[c.ID] = se
	}
	return nil
}

type memPayments memStore

func copyPayment(p finance.PaymentRecord) *finance.PaymentRecord {
	p.Allocations = append([]finance.Allocation(nil), p.Allocations...)
	if p.ReversedAt != nil {
		at := *p.ReversedAt
		p.ReversedAt = &at
	}
	p.ClearDomainEvents()
	return &p
}

func (r *memPayments) FindByID(_ context.Context, id uuid.UUID) (*finance.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, shared.NewNotFoundError("payment", id)
	}
	return copyPayment(p), nil
}

func (r *memPayments) FindByParty(_ context.Context, partyID uuid.UUID) ([]finance.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]finance.PaymentRecord, 0)
	for _, p := range r.payments {
		if p.PartyID == partyID {
			out = append(out, *copyPayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memPayments) Create(_ context.Context, payment *finance.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failPaymentCreate != nil {
		return r.failPaymentCreate
	}
	r.payments[payment.ID] = *copyPayment(*payment)
	return nil
}

func (r *memPayments) MarkReversed(_ context.Context, payment *finance.PaymentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.payments[payment.ID]
	if !ok {
		return shared.NewNotFoundError("payment", payment.ID)
	}
	if stored.Version != payment.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.payments[payment.ID] = *copyPayment(*payment)
	return nil
}

type memCredits memStore

func (r *memCredits) FindByPayment(_ context.Context, paymentID uuid.UUID) (*finance.CreditLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lots {
		if l.PaymentID == paymentID {
			return &l, nil
		}
	}
	return nil, shared.NewNotFoundError("credit lot for payment", paymentID)
}

func (r *memCredits) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*finance.CreditLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	out := make([]*finance.CreditLot, 0, len(ids))
	for _, id := range ids {
		if l, ok := r.lots[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, &l)
		}
	}
	return out, nil
}

func (r *memCredits) FindAvailableByParty(_ context.Context, partyID uuid.UUID) ([]*finance.CreditLot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*finance.CreditLot, 0)
	for _, l := range r.lots {
		if l.PartyID == partyID && l.Remaining().IsPositive() {
			out = append(out, &l)
		}
	}
	finance.SortLotsFIFO(out)
	return out, nil
}

func (r *memCredits) Save(_ context.Context, lot *finance.CreditLot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lots[lot.ID] = *lot
	return nil
}

func (r *memCredits) SaveConsumptions(_ context.Context, consumptions []finance.CreditConsumption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range consumptions {
		r.consumptions[c.ID] = c
	}
	return nil
}

func (r *memCredits) FindConsumptionsByConsumer(_ context.Context, paymentID uuid.UUID) ([]finance.CreditConsumption, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]finance.CreditConsumption, 0)
	for _, c := range r.consumptions {
		if c.ConsumerPaymentID == paymentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memCredits) FindActiveConsumptionsByLot(_ context.Context, lotID uuid.UUID) ([]finance.CreditConsumption, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]finance.CreditConsumption, 0)
	for _, c := range r.consumptions {
		if c.LotID == lotID && !c.Reversed {
			out = append(out, c)
		}
	}
	return out, nil
}

// Collaborators

type mutexLocker struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (l *mutexLocker) Lock(_ context.Context, partyID uuid.UUID) (UnlockFunc, error) {
	l.mu.Lock()
	m, ok := l.locks[partyID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[partyID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return func(context.Context) error {
		m.Unlock()
		return nil
	}, nil
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, uuid.UUID) (UnlockFunc, error) {
	return nil, shared.ErrLockTimeout
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memIdempotency) Claim(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = make(map[string]bool)
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func (m *memIdempotency) Close() error { return nil }

type countingMetrics struct {
	noopMetrics
	mu         sync.Mutex
	payments   int
	reversals  int
	violations int
}

func (m *countingMetrics) RecordPayment(context.Context, string, string, int64, int64, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments++
}

func (m *countingMetrics) RecordReversal(context.Context, string, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reversals++
}

func (m *countingMetrics) RecordInvariantViolation(context.Context, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.violations++
}

// Fixtures

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, dd int) time.Time {
	return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
}

func (s *memStore) addParty(t *testing.T, partyType finance.PartyType, name string) *finance.Party {
	t.Helper()
	p, err := finance.NewParty(partyType, name)
	require.NoError(t, err)
	require.NoError(t, s.Parties().Save(context.Background(), p))
	return p
}

func (s *memStore) addEntry(t *testing.T, party *finance.Party, doc string, on time.Time, total string) finance.LedgerEntry {
	t.Helper()
	e, err := finance.NewLedgerEntry(party.Type.EntryKind(), party.ID, doc, on, d(total))
	require.NoError(t, err)
	require.NoError(t, s.Entries().Save(context.Background(), e))
	return e
}

func (s *memStore) entry(t *testing.T, id uuid.UUID) finance.LedgerEntry {
	t.Helper()
	e, err := s.Entries().FindByID(context.Background(), id)
	require.NoError(t, err)
	return e
}

func (s *memStore) party(t *testing.T, id uuid.UUID) *finance.Party {
	t.Helper()
	p, err := s.Parties().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

// setEntryPaid edits an entry behind the engine's back
func (s *memStore) setEntryPaid(id uuid.UUID, paid decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	se := s.entries[id]
	se.core.AmountPaid = paid
	s.entries[id] = se
}

// creditLotsRemaining sums the remaining credit of a party's lots
func (s *memStore) creditLotsRemaining(partyID uuid.UUID) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, l := range s.lots {
		if l.PartyID == partyID {
			total = total.Add(l.Remaining())
		}
	}
	return total
}
