// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns.
//
// Structure:
// - base.go: shared identity and version columns
// - ledger.go: parties and ledger entries
// - payment.go: payment records, allocations, credit lots and their consumption
//
// Column types follow the postgres schema in migrations/. The same models are
// auto-migrated when running on sqlite.
package models
