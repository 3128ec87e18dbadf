package persistence

import (
	"context"
	"errors"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/erp/reconciliation/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCreditLotRepository implements CreditLotRepository using GORM
type GormCreditLotRepository struct {
	db *gorm.DB
}

// NewGormCreditLotRepository creates a new GormCreditLotRepository
func NewGormCreditLotRepository(db *gorm.DB) *GormCreditLotRepository {
	return &GormCreditLotRepository{db: db}
}

// FindByPayment finds the lot created by an overpaying payment
func (r *GormCreditLotRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) (*finance.CreditLot, error) {
	var model models.CreditLotModel
	if err := r.db.WithContext(ctx).First(&model, "payment_id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("credit lot for payment", paymentID)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds lots by ID
func (r *GormCreditLotRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*finance.CreditLot, error) {
	if len(ids) == 0 {
		return []*finance.CreditLot{}, nil
	}
	return r.findLots(r.db.WithContext(ctx).Where("id IN ?", ids))
}

// FindAvailableByParty returns lots that still hold credit, oldest first
func (r *GormCreditLotRepository) FindAvailableByParty(ctx context.Context, partyID uuid.UUID) ([]*finance.CreditLot, error) {
	return r.findLots(r.db.WithContext(ctx).
		Where("party_id = ? AND released = ? AND amount > consumed", partyID, false))
}

func (r *GormCreditLotRepository) findLots(query *gorm.DB) ([]*finance.CreditLot, error) {
	var lotModels []models.CreditLotModel
	if err := query.Order("created_at ASC, id ASC").Find(&lotModels).Error; err != nil {
		return nil, err
	}
	lots := make([]*finance.CreditLot, len(lotModels))
	for i := range lotModels {
		lots[i] = lotModels[i].ToDomain()
	}
	return lots, nil
}

// Save creates or updates a lot
func (r *GormCreditLotRepository) Save(ctx context.Context, lot *finance.CreditLot) error {
	return r.db.WithContext(ctx).Save(models.CreditLotModelFromDomain(lot)).Error
}

// SaveConsumptions creates or updates consumption records
func (r *GormCreditLotRepository) SaveConsumptions(ctx context.Context, consumptions []finance.CreditConsumption) error {
	if len(consumptions) == 0 {
		return nil
	}
	rows := make([]models.CreditConsumptionModel, len(consumptions))
	for i, c := range consumptions {
		rows[i] = models.CreditConsumptionModelFromDomain(c)
	}
	return r.db.WithContext(ctx).Save(&rows).Error
}

// FindConsumptionsByConsumer returns the draws made by a credit application
func (r *GormCreditLotRepository) FindConsumptionsByConsumer(ctx context.Context, paymentID uuid.UUID) ([]finance.CreditConsumption, error) {
	return r.findConsumptions(r.db.WithContext(ctx).Where("consumer_payment_id = ?", paymentID))
}

// FindActiveConsumptionsByLot returns the unreversed draws on a lot
func (r *GormCreditLotRepository) FindActiveConsumptionsByLot(ctx context.Context, lotID uuid.UUID) ([]finance.CreditConsumption, error) {
	return r.findConsumptions(r.db.WithContext(ctx).Where("lot_id = ? AND reversed = ?", lotID, false))
}

func (r *GormCreditLotRepository) findConsumptions(query *gorm.DB) ([]finance.CreditConsumption, error) {
	var rows []models.CreditConsumptionModel
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	result := make([]finance.CreditConsumption, len(rows))
	for i := range rows {
		result[i] = rows[i].ToDomain()
	}
	return result, nil
}

var _ finance.CreditLotRepository = (*GormCreditLotRepository)(nil)
