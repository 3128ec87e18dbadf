package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/erp/reconciliation/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPartyRepository implements PartyRepository using GORM
type GormPartyRepository struct {
	db *gorm.DB
}

// NewGormPartyRepository creates a new GormPartyRepository
func NewGormPartyRepository(db *gorm.DB) *GormPartyRepository {
	return &GormPartyRepository{db: db}
}

// FindByID finds a party by its ID
func (r *GormPartyRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Party, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a party and locks its row until the transaction ends.
// sqlite has no row locks; its single writer already serializes the update.
func (r *GormPartyRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*finance.Party, error) {
	query := r.db.WithContext(ctx)
	if supportsRowLocks(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(query, id)
}

func (r *GormPartyRepository) find(query *gorm.DB, id uuid.UUID) (*finance.Party, error) {
	var model models.PartyModel
	if err := query.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("party", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByType returns all parties of a type ordered by ID
func (r *GormPartyRepository) FindByType(ctx context.Context, partyType finance.PartyType) ([]finance.Party, error) {
	var partyModels []models.PartyModel
	if err := r.db.WithContext(ctx).
		Where("type = ?", partyType).
		Order("id ASC").
		Find(&partyModels).Error; err != nil {
		return nil, err
	}
	parties := make([]finance.Party, len(partyModels))
	for i, model := range partyModels {
		parties[i] = *model.ToDomain()
	}
	return parties, nil
}

// Save creates or updates a party
func (r *GormPartyRepository) Save(ctx context.Context, party *finance.Party) error {
	model := models.PartyModelFromDomain(party)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock updates the party only if its stored version still matches,
// then advances the version on both sides.
func (r *GormPartyRepository) SaveWithLock(ctx context.Context, party *finance.Party) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.PartyModel{}).
		Where("id = ? AND version = ?", party.ID, party.Version).
		Updates(map[string]any{
			"name":            party.Name,
			"overpaid_amount": party.OverpaidAmount,
			"version":         party.Version + 1,
			"updated_at":      now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	party.IncrementVersion()
	party.UpdatedAt = now
	return nil
}

// supportsRowLocks reports whether SELECT ... FOR UPDATE is available
func supportsRowLocks(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

var _ finance.PartyRepository = (*GormPartyRepository)(nil)
