package statement

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// Statement exports carry exactly 5 columns: date, description, credit,
// debit, balance.
const (
	numFields  = 5
	dateLayout = "02/01/2006"

	colDate    = 0
	colDesc    = 1
	colCredit  = 2
	colDebit   = 3
	colBalance = 4
)

// Row is one validated statement line, ready for classification.
type Row struct {
	Date        time.Time
	Description string
	Credit      *decimal.Decimal
	Debit       *decimal.Decimal
	Balance     decimal.Decimal
}

// Type derives the transaction type from which side is populated.
func (r Row) Type() model.TransactionType {
	if r.Credit != nil {
		return model.TypeCredit
	}
	return model.TypeDebit
}

// Magnitude returns the populated one of credit/debit.
func (r Row) Magnitude() decimal.Decimal {
	if r.Credit != nil {
		return *r.Credit
	}
	return *r.Debit
}

// SkipError marks a row that cannot be imported. The row is skipped and the
// run continues; it never aborts the whole import.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return e.Reason }

func skipf(format string, args ...any) error {
	return &SkipError{Reason: fmt.Sprintf(format, args...)}
}

// ParseRow validates one tokenized line. Every failure is a *SkipError with a
// human-readable reason.
func ParseRow(fields []string) (Row, error) {
	if len(fields) != numFields {
		return Row{}, skipf("unrecognised entry: expected %d fields, got %d", numFields, len(fields))
	}

	date, err := time.Parse(dateLayout, fields[colDate])
	if err != nil {
		return Row{}, skipf("invalid date %q: expected dd/mm/yyyy", fields[colDate])
	}

	desc := strings.TrimSpace(fields[colDesc])
	if desc == "" {
		return Row{}, skipf("missing description")
	}

	creditRaw := strings.TrimSpace(fields[colCredit])
	debitRaw := strings.TrimSpace(fields[colDebit])
	if (creditRaw == "") == (debitRaw == "") {
		return Row{}, skipf("expected exactly one of credit or debit to be populated")
	}

	row := Row{Date: date, Description: desc}

	if creditRaw != "" {
		credit, err := decimal.NewFromString(creditRaw)
		if err != nil {
			return Row{}, skipf("invalid credit amount %q", creditRaw)
		}
		row.Credit = &credit
	} else {
		debit, err := decimal.NewFromString(debitRaw)
		if err != nil {
			return Row{}, skipf("invalid debit amount %q", debitRaw)
		}
		row.Debit = &debit
	}

	balance, err := decimal.NewFromString(strings.TrimSpace(fields[colBalance]))
	if err != nil {
		return Row{}, skipf("invalid balance %q", fields[colBalance])
	}
	row.Balance = balance

	return row, nil
}
