package persistence

import (
	"context"
	"errors"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/erp/reconciliation/internal/domain/shared"
	"github.com/erp/reconciliation/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRecordRepository implements PaymentRecordRepository using GORM.
// Records are append-only apart from the reversal fields.
type GormPaymentRecordRepository struct {
	db *gorm.DB
}

// NewGormPaymentRecordRepository creates a new GormPaymentRecordRepository
func NewGormPaymentRecordRepository(db *gorm.DB) *GormPaymentRecordRepository {
	return &GormPaymentRecordRepository{db: db}
}

func preloadAllocations(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// FindByID finds a payment with its allocations in application order
func (r *GormPaymentRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.PaymentRecord, error) {
	var model models.PaymentRecordModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations", preloadAllocations).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.NewNotFoundError("payment", id)
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByParty lists a party's payments, newest first
func (r *GormPaymentRecordRepository) FindByParty(ctx context.Context, partyID uuid.UUID) ([]finance.PaymentRecord, error) {
	var paymentModels []models.PaymentRecordModel
	if err := r.db.WithContext(ctx).
		Preload("Allocations", preloadAllocations).
		Where("party_id = ?", partyID).
		Order("created_at DESC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}
	payments := make([]finance.PaymentRecord, len(paymentModels))
	for i := range paymentModels {
		payments[i] = *paymentModels[i].ToDomain()
	}
	return payments, nil
}

// Create inserts the payment and then its allocations
func (r *GormPaymentRecordRepository) Create(ctx context.Context, payment *finance.PaymentRecord) error {
	db := r.db.WithContext(ctx)
	model := models.PaymentRecordModelFromDomain(payment)
	if err := db.Omit(clause.Associations).Create(model).Error; err != nil {
		return err
	}
	if len(model.Allocations) == 0 {
		return nil
	}
	return db.Create(&model.Allocations).Error
}

// MarkReversed persists the reversal. The domain bumps the version when it
// reverses, so the stored row must still carry the previous one.
func (r *GormPaymentRecordRepository) MarkReversed(ctx context.Context, payment *finance.PaymentRecord) error {
	result := r.db.WithContext(ctx).
		Model(&models.PaymentRecordModel{}).
		Where("id = ? AND version = ? AND state = ?", payment.ID, payment.Version-1, finance.PaymentStateActive).
		Updates(map[string]any{
			"state":           payment.State,
			"reversed_at":     payment.ReversedAt,
			"reversed_by":     payment.ReversedBy,
			"reversal_reason": payment.ReversalReason,
			"version":         payment.Version,
			"updated_at":      payment.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

var _ finance.PaymentRecordRepository = (*GormPaymentRecordRepository)(nil)
