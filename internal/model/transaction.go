package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the ledger direction of a statement row.
type TransactionType string

const (
	TypeCredit TransactionType = "credit"
	TypeDebit  TransactionType = "debit"
)

// Subtype is the transaction origin inferred from the description shape.
type Subtype string

const (
	SubtypeVisa         Subtype = "visa"
	SubtypeEftpos       Subtype = "eftpos"
	SubtypeDirectDebit  Subtype = "direct-debit"
	SubtypeTransfer     Subtype = "transfer"
	SubtypeOsko         Subtype = "osko"
	SubtypeBpay         Subtype = "bpay"
	SubtypeAtm          Subtype = "atm"
	SubtypeUnclassified Subtype = "unclassified"
)

// ExtraInfo carries the secondary fields extracted from a description.
type ExtraInfo struct {
	ReceiptNumber *int
	ProcessedDate *time.Time
	PurchaseType  string
}

// Transaction is the classified, queryable record built from one RawRow.
type Transaction struct {
	ID           string
	AccountID    string
	Date         time.Time       // ledger posting date
	Amount       decimal.Decimal // signed: negative for debits
	Type         TransactionType
	Description  string
	Location     string
	Reference    string
	PurchaseDate *time.Time // actual purchase time, when the description carries one
	Subtype      Subtype
	Holder       string // family member who owns the card used, if resolved
	Extra        ExtraInfo
}

// SignedAmount returns magnitude signed by transaction type.
func SignedAmount(magnitude decimal.Decimal, t TransactionType) decimal.Decimal {
	if t == TypeDebit {
		return magnitude.Neg()
	}
	return magnitude
}
