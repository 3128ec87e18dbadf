package models

import (
	"time"

	"github.com/erp/reconciliation/internal/domain/finance"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartyModel is the persistence model for the Party aggregate root.
type PartyModel struct {
	AggregateModel
	Type           finance.PartyType `gorm:"type:varchar(20);not null;index"`
	Name           string            `gorm:"type:varchar(200);not null"`
	OverpaidAmount decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (PartyModel) TableName() string {
	return "parties"
}

// ToDomain converts the persistence model to a domain Party.
func (m *PartyModel) ToDomain() *finance.Party {
	return &finance.Party{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Type:              m.Type,
		Name:              m.Name,
		OverpaidAmount:    m.OverpaidAmount,
	}
}

// FromDomain populates the persistence model from a domain Party.
func (m *PartyModel) FromDomain(p *finance.Party) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Type = p.Type
	m.Name = p.Name
	m.OverpaidAmount = p.OverpaidAmount
}

// PartyModelFromDomain creates a new persistence model from a domain Party.
func PartyModelFromDomain(p *finance.Party) *PartyModel {
	m := &PartyModel{}
	m.FromDomain(p)
	return m
}

// LedgerEntryModel stores sales and purchases in one table, told apart by Kind.
type LedgerEntryModel struct {
	ID             uuid.UUID         `gorm:"type:uuid;primary_key"`
	Kind           finance.EntryKind `gorm:"type:varchar(20);not null;index:idx_ledger_entries_fifo,priority:1"`
	PartyID        uuid.UUID         `gorm:"type:uuid;not null;index:idx_ledger_entries_fifo,priority:2"`
	DocumentNumber string            `gorm:"type:varchar(50);not null"`
	EntryDate      time.Time         `gorm:"type:date;not null;index:idx_ledger_entries_fifo,priority:3"`
	Sequence       int64             `gorm:"not null;uniqueIndex"`
	TotalAmount    decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	AmountPaid     decimal.Decimal   `gorm:"type:decimal(18,4);not null;default:0"`
	Version        int               `gorm:"not null;default:1"`
	CreatedAt      time.Time         `gorm:"not null"`
	UpdatedAt      time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerEntryModel) TableName() string {
	return "ledger_entries"
}

// ToDomain rebuilds the Sale or Purchase the row holds.
func (m *LedgerEntryModel) ToDomain() (finance.LedgerEntry, error) {
	return finance.RestoreLedgerEntry(m.Kind, finance.EntryCore{
		ID:             m.ID,
		PartyID:        m.PartyID,
		DocumentNumber: m.DocumentNumber,
		EntryDate:      finance.CivilDate(m.EntryDate),
		Sequence:       m.Sequence,
		TotalAmount:    m.TotalAmount,
		AmountPaid:     m.AmountPaid,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
		Version:        m.Version,
	})
}

// LedgerEntryModelFromDomain creates a new persistence model from a domain entry.
func LedgerEntryModelFromDomain(e finance.LedgerEntry) *LedgerEntryModel {
	c := e.Core()
	return &LedgerEntryModel{
		ID:             c.ID,
		Kind:           e.Kind(),
		PartyID:        c.PartyID,
		DocumentNumber: c.DocumentNumber,
		EntryDate:      finance.CivilDate(c.EntryDate),
		Sequence:       c.Sequence,
		TotalAmount:    c.TotalAmount,
		AmountPaid:     c.AmountPaid,
		Version:        c.Version,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

// PartyOutstandingRow is the scan target of the outstanding aggregate query.
type PartyOutstandingRow struct {
	PartyID     uuid.UUID
	Outstanding decimal.Decimal
	OpenEntries int
}
