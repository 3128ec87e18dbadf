package models

import (
	"time"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentRecordModel is the persistence model for the PaymentRecord aggregate root.
type PaymentRecordModel struct {
	AggregateModel
	PartyID         uuid.UUID             `gorm:"type:uuid;not null;index"`
	PartyType       finance.PartyType     `gorm:"type:varchar(20);not null"`
	Amount          decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	PaymentMode     finance.PaymentMode   `gorm:"type:varchar(20);not null"`
	PaymentDate     time.Time             `gorm:"not null"`
	ReferenceNumber string                `gorm:"type:varchar(100)"`
	Notes           string                `gorm:"type:text"`
	RecordedBy      string                `gorm:"type:varchar(100);not null"`
	Source          finance.PaymentSource `gorm:"type:varchar(20);not null"`
	OverpaidAmount  decimal.Decimal       `gorm:"type:decimal(18,4);not null;default:0"`
	State           finance.PaymentState  `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	ReversedAt      *time.Time
	ReversedBy      string                   `gorm:"type:varchar(100)"`
	ReversalReason  string                   `gorm:"type:varchar(500)"`
	IdempotencyKey  string                   `gorm:"type:varchar(128);index"`
	Allocations     []PaymentAllocationModel `gorm:"foreignKey:PaymentID;references:ID"`
}

// TableName returns the table name for GORM
func (PaymentRecordModel) TableName() string {
	return "payment_records"
}

// ToDomain converts the persistence model to a domain PaymentRecord.
func (m *PaymentRecordModel) ToDomain() *finance.PaymentRecord {
	p := &finance.PaymentRecord{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		PartyID:           m.PartyID,
		PartyType:         m.PartyType,
		Amount:            m.Amount,
		PaymentMode:       m.PaymentMode,
		PaymentDate:       m.PaymentDate,
		ReferenceNumber:   m.ReferenceNumber,
		Notes:             m.Notes,
		RecordedBy:        m.RecordedBy,
		Source:            m.Source,
		Allocations:       make([]finance.Allocation, len(m.Allocations)),
		OverpaidAmount:    m.OverpaidAmount,
		State:             m.State,
		ReversedAt:        m.ReversedAt,
		ReversedBy:        m.ReversedBy,
		ReversalReason:    m.ReversalReason,
		IdempotencyKey:    m.IdempotencyKey,
	}
	for i, a := range m.Allocations {
		p.Allocations[i] = a.ToDomain()
	}
	return p
}

// FromDomain populates the persistence model from a domain PaymentRecord.
// Allocations keep their application order in Position.
func (m *PaymentRecordModel) FromDomain(p *finance.PaymentRecord) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.PartyID = p.PartyID
	m.PartyType = p.PartyType
	m.Amount = p.Amount
	m.PaymentMode = p.PaymentMode
	m.PaymentDate = p.PaymentDate
	m.ReferenceNumber = p.ReferenceNumber
	m.Notes = p.Notes
	m.RecordedBy = p.RecordedBy
	m.Source = p.Source
	m.OverpaidAmount = p.OverpaidAmount
	m.State = p.State
	m.ReversedAt = p.ReversedAt
	m.ReversedBy = p.ReversedBy
	m.ReversalReason = p.ReversalReason
	m.IdempotencyKey = p.IdempotencyKey

	m.Allocations = make([]PaymentAllocationModel, len(p.Allocations))
	for i, a := range p.Allocations {
		m.Allocations[i] = PaymentAllocationModel{
			ID:             uuid.New(),
			PaymentID:      p.ID,
			LedgerEntryID:  a.LedgerEntryID,
			DocumentNumber: a.DocumentNumber,
			AmountApplied:  a.AmountApplied,
			Position:       i,
		}
	}
}

// PaymentRecordModelFromDomain creates a new persistence model from a domain PaymentRecord.
func PaymentRecordModelFromDomain(p *finance.PaymentRecord) *PaymentRecordModel {
	m := &PaymentRecordModel{}
	m.FromDomain(p)
	return m
}

// PaymentAllocationModel is one slice of a payment applied to one entry.
type PaymentAllocationModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primary_key"`
	PaymentID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	LedgerEntryID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	DocumentNumber string          `gorm:"type:varchar(50);not null"`
	AmountApplied  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Position       int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (PaymentAllocationModel) TableName() string {
	return "payment_allocations"
}

// ToDomain converts the row to a domain Allocation
func (m *PaymentAllocationModel) ToDomain() finance.Allocation {
	return finance.Allocation{
		LedgerEntryID:  m.LedgerEntryID,
		DocumentNumber: m.DocumentNumber,
		AmountApplied:  m.AmountApplied,
	}
}

// CreditLotModel is the persistence model for a credit lot.
type CreditLotModel struct {
	BaseModel
	PartyID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	PaymentID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Consumed  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Released  bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (CreditLotModel) TableName() string {
	return "credit_lots"
}

// ToDomain converts the persistence model to a domain CreditLot.
func (m *CreditLotModel) ToDomain() *finance.CreditLot {
	return &finance.CreditLot{
		ID:        m.ID,
		PartyID:   m.PartyID,
		PaymentID: m.PaymentID,
		Amount:    m.Amount,
		Consumed:  m.Consumed,
		Released:  m.Released,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// CreditLotModelFromDomain creates a new persistence model from a domain CreditLot.
func CreditLotModelFromDomain(l *finance.CreditLot) *CreditLotModel {
	return &CreditLotModel{
		BaseModel: BaseModel{ID: l.ID, CreatedAt: l.CreatedAt, UpdatedAt: l.UpdatedAt},
		PartyID:   l.PartyID,
		PaymentID: l.PaymentID,
		Amount:    l.Amount,
		Consumed:  l.Consumed,
		Released:  l.Released,
	}
}

// CreditConsumptionModel records one draw on a lot.
type CreditConsumptionModel struct {
	ID                uuid.UUID       `gorm:"type:uuid;primary_key"`
	LotID             uuid.UUID       `gorm:"type:uuid;not null;index"`
	ConsumerPaymentID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Reversed          bool            `gorm:"not null;default:false"`
	CreatedAt         time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CreditConsumptionModel) TableName() string {
	return "credit_consumptions"
}

// ToDomain converts the row to a domain CreditConsumption
func (m *CreditConsumptionModel) ToDomain() finance.CreditConsumption {
	return finance.CreditConsumption{
		ID:                m.ID,
		LotID:             m.LotID,
		ConsumerPaymentID: m.ConsumerPaymentID,
		Amount:            m.Amount,
		Reversed:          m.Reversed,
		CreatedAt:         m.CreatedAt,
	}
}

// CreditConsumptionModelFromDomain creates a new persistence model from a domain CreditConsumption.
func CreditConsumptionModelFromDomain(c finance.CreditConsumption) CreditConsumptionModel {
	return CreditConsumptionModel{
		ID:                c.ID,
		LotID:             c.LotID,
		ConsumerPaymentID: c.ConsumerPaymentID,
		Amount:            c.Amount,
		Reversed:          c.Reversed,
		CreatedAt:         c.CreatedAt,
	}
}

// All returns every model in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&PartyModel{},
		&LedgerEntryModel{},
		&PaymentRecordModel{},
		&PaymentAllocationModel{},
		&CreditLotModel{},
		&CreditConsumptionModel{},
	}
}
