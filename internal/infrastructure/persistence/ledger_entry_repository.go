package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/erp/reconciliation/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// fifoOrder is the allocation order: entry date, then creation sequence
const fifoOrder = "entry_date ASC, sequence ASC, id ASC"

// GormLedgerEntryRepository implements LedgerEntryRepository using GORM.
// Sales and purchases share the ledger_entries table.
type GormLedgerEntryRepository struct {
	db *gorm.DB
}

// NewGormLedgerEntryRepository creates a new GormLedgerEntryRepository
func NewGormLedgerEntryRepository(db *gorm.DB) *GormLedgerEntryRepository {
	return &GormLedgerEntryRepository{db: db}
}

// FindByID finds an entry by its ID
func (r *GormLedgerEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (finance.LedgerEntry, error) {
	var model models.LedgerEntryModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("ledger entry", id)
		}
		return nil, err
	}
	return model.ToDomain()
}

// FindByIDs finds entries by ID. Unknown IDs are skipped.
func (r *GormLedgerEntryRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]finance.LedgerEntry, error) {
	if len(ids) == 0 {
		return []finance.LedgerEntry{}, nil
	}
	return r.findWhere(r.db.WithContext(ctx).Where("id IN ?", ids))
}

// FindByParty returns every entry of a party in FIFO order
func (r *GormLedgerEntryRepository) FindByParty(ctx context.Context, partyID uuid.UUID) ([]finance.LedgerEntry, error) {
	return r.findWhere(r.db.WithContext(ctx).Where("party_id = ?", partyID))
}

// FindOutstandingByParty returns the party's entries with an amount due, in FIFO order
func (r *GormLedgerEntryRepository) FindOutstandingByParty(ctx context.Context, partyID uuid.UUID, kind finance.EntryKind) ([]finance.LedgerEntry, error) {
	return r.findWhere(r.db.WithContext(ctx).
		Where("party_id = ? AND kind = ? AND total_amount > amount_paid", partyID, kind))
}

// FindOutstandingByKind returns every entry of a kind with an amount due
func (r *GormLedgerEntryRepository) FindOutstandingByKind(ctx context.Context, kind finance.EntryKind) ([]finance.LedgerEntry, error) {
	return r.findWhere(r.db.WithContext(ctx).
		Where("kind = ? AND total_amount > amount_paid", kind))
}

func (r *GormLedgerEntryRepository) findWhere(query *gorm.DB) ([]finance.LedgerEntry, error) {
	var entryModels []models.LedgerEntryModel
	if err := query.Order(fifoOrder).Find(&entryModels).Error; err != nil {
		return nil, err
	}
	entries := make([]finance.LedgerEntry, 0, len(entryModels))
	for i := range entryModels {
		e, err := entryModels[i].ToDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// SumOutstandingByParty aggregates the amount due per party for a kind
func (r *GormLedgerEntryRepository) SumOutstandingByParty(ctx context.Context, kind finance.EntryKind) ([]finance.PartyOutstanding, error) {
	var rows []models.PartyOutstandingRow
	if err := r.db.WithContext(ctx).
		Model(&models.LedgerEntryModel{}).
		Select("party_id, SUM(total_amount - amount_paid) AS outstanding, COUNT(*) AS open_entries").
		Where("kind = ? AND total_amount > amount_paid", kind).
		Group("party_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]finance.PartyOutstanding, len(rows))
	for i, row := range rows {
		result[i] = finance.PartyOutstanding{
			PartyID:     row.PartyID,
			Outstanding: row.Outstanding,
			OpenEntries: row.OpenEntries,
		}
	}
	return result, nil
}

// Save creates or updates an entry. A new entry is stamped with the next
// sequence number so that same-day entries keep their creation order.
func (r *GormLedgerEntryRepository) Save(ctx context.Context, entry finance.LedgerEntry) error {
	db := r.db.WithContext(ctx)
	c := entry.Core()

	var count int64
	if err := db.Model(&models.LedgerEntryModel{}).Where("id = ?", c.ID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		var last int64
		if err := db.Model(&models.LedgerEntryModel{}).
			Select("COALESCE(MAX(sequence), 0)").
			Scan(&last).Error; err != nil {
			return fmt.Errorf("failed to read entry sequence: %w", err)
		}
		c.Sequence = last + 1
		return db.Create(models.LedgerEntryModelFromDomain(entry)).Error
	}
	return db.Save(models.LedgerEntryModelFromDomain(entry)).Error
}

// SavePayments writes the paid amount of each entry
func (r *GormLedgerEntryRepository) SavePayments(ctx context.Context, entries []finance.LedgerEntry) error {
	db := r.db.WithContext(ctx)
	for _, e := range entries {
		c := e.Core()
		result := db.Model(&models.LedgerEntryModel{}).
			Where("id = ?", c.ID).
			Updates(map[string]any{
				"amount_paid": c.AmountPaid,
				"updated_at":  c.UpdatedAt,
				"version":     gorm.Expr("version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewNotFoundError("ledger entry", c.ID)
		}
	}
	return nil
}

var _ finance.LedgerEntryRepository = (*GormLedgerEntryRepository)(nil)
