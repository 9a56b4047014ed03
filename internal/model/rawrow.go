package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawRow is the unmodified mirror of one imported statement line, kept for
// audit and reprocessing. Exactly one of Credit/Debit is set; rows violating
// that never reach the store.
type RawRow struct {
	ID            string
	AccountID     string
	Date          time.Time // date-only, statement posting date
	Description   string
	Credit        *decimal.Decimal
	Debit         *decimal.Decimal
	Balance       decimal.Decimal // account balance after this row
	ImportedAt    time.Time
	ImportRunID   string
	TransactionID string // empty once the linked transaction is deleted
}

// Linked reports whether the row still references a normalized transaction.
func (r RawRow) Linked() bool {
	return r.TransactionID != ""
}

// Magnitude returns the populated one of credit/debit.
func (r RawRow) Magnitude() decimal.Decimal {
	if r.Credit != nil {
		return *r.Credit
	}
	if r.Debit != nil {
		return *r.Debit
	}
	return decimal.Zero
}

// Type derives the transaction type from which side is populated.
func (r RawRow) Type() TransactionType {
	if r.Credit != nil {
		return TypeCredit
	}
	return TypeDebit
}
