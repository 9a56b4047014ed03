package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// RawHeader is the CSV header for raw-rows.csv.
const RawHeader = "id,date,description,credit,debit,balance,imported_at,import_run_id,transaction_id"

const (
	rawNumFields = 9
	dateFormat   = "2006-01-02"

	rawColID         = 0
	rawColDate       = 1
	rawColDesc       = 2
	rawColCredit     = 3
	rawColDebit      = 4
	rawColBalance    = 5
	rawColImportedAt = 6
	rawColRunID      = 7
	rawColTxnID      = 8
)

// TxnHeader is the CSV header for transactions.csv.
const TxnHeader = "id,date,amount,type,description,location,reference,purchase_date,subtype,holder,receipt_number,processed_date,purchase_type"

const (
	txnNumFields = 13

	txnColID           = 0
	txnColDate         = 1
	txnColAmount       = 2
	txnColType         = 3
	txnColDesc         = 4
	txnColLocation     = 5
	txnColReference    = 6
	txnColPurchaseDate = 7
	txnColSubtype      = 8
	txnColHolder       = 9
	txnColReceipt      = 10
	txnColProcessed    = 11
	txnColPurchaseType = 12
)

// MarshalRawRow converts a RawRow to a CSV record.
func MarshalRawRow(r model.RawRow) []string {
	rec := make([]string, rawNumFields)
	rec[rawColID] = r.ID
	rec[rawColDate] = r.Date.Format(dateFormat)
	rec[rawColDesc] = r.Description
	if r.Credit != nil {
		rec[rawColCredit] = r.Credit.String()
	}
	if r.Debit != nil {
		rec[rawColDebit] = r.Debit.String()
	}
	rec[rawColBalance] = r.Balance.String()
	rec[rawColImportedAt] = r.ImportedAt.UTC().Format(time.RFC3339)
	rec[rawColRunID] = r.ImportRunID
	rec[rawColTxnID] = r.TransactionID
	return rec
}

// UnmarshalRawRow converts a CSV record to a RawRow.
func UnmarshalRawRow(rec []string, accountID string) (model.RawRow, error) {
	if len(rec) != rawNumFields {
		return model.RawRow{}, fmt.Errorf("expected %d fields, got %d", rawNumFields, len(rec))
	}

	date, err := time.Parse(dateFormat, rec[rawColDate])
	if err != nil {
		return model.RawRow{}, fmt.Errorf("parsing date %q: %w", rec[rawColDate], err)
	}

	importedAt, err := time.Parse(time.RFC3339, rec[rawColImportedAt])
	if err != nil {
		return model.RawRow{}, fmt.Errorf("parsing imported_at %q: %w", rec[rawColImportedAt], err)
	}

	row := model.RawRow{
		ID:            rec[rawColID],
		AccountID:     accountID,
		Date:          date,
		Description:   rec[rawColDesc],
		ImportedAt:    importedAt,
		ImportRunID:   rec[rawColRunID],
		TransactionID: rec[rawColTxnID],
	}

	if rec[rawColCredit] != "" {
		credit, err := decimal.NewFromString(rec[rawColCredit])
		if err != nil {
			return model.RawRow{}, fmt.Errorf("parsing credit %q: %w", rec[rawColCredit], err)
		}
		row.Credit = &credit
	}
	if rec[rawColDebit] != "" {
		debit, err := decimal.NewFromString(rec[rawColDebit])
		if err != nil {
			return model.RawRow{}, fmt.Errorf("parsing debit %q: %w", rec[rawColDebit], err)
		}
		row.Debit = &debit
	}

	balance, err := decimal.NewFromString(rec[rawColBalance])
	if err != nil {
		return model.RawRow{}, fmt.Errorf("parsing balance %q: %w", rec[rawColBalance], err)
	}
	row.Balance = balance

	return row, nil
}

// MarshalTransaction converts a Transaction to a CSV record.
func MarshalTransaction(t model.Transaction) []string {
	rec := make([]string, txnNumFields)
	rec[txnColID] = t.ID
	rec[txnColDate] = t.Date.Format(dateFormat)
	rec[txnColAmount] = t.Amount.String()
	rec[txnColType] = string(t.Type)
	rec[txnColDesc] = t.Description
	rec[txnColLocation] = t.Location
	rec[txnColReference] = t.Reference
	if t.PurchaseDate != nil {
		rec[txnColPurchaseDate] = t.PurchaseDate.Format(time.RFC3339)
	}
	rec[txnColSubtype] = string(t.Subtype)
	rec[txnColHolder] = t.Holder
	if t.Extra.ReceiptNumber != nil {
		rec[txnColReceipt] = strconv.Itoa(*t.Extra.ReceiptNumber)
	}
	if t.Extra.ProcessedDate != nil {
		rec[txnColProcessed] = t.Extra.ProcessedDate.Format(dateFormat)
	}
	rec[txnColPurchaseType] = t.Extra.PurchaseType
	return rec
}

// UnmarshalTransaction converts a CSV record to a Transaction.
func UnmarshalTransaction(rec []string, accountID string) (model.Transaction, error) {
	if len(rec) != txnNumFields {
		return model.Transaction{}, fmt.Errorf("expected %d fields, got %d", txnNumFields, len(rec))
	}

	date, err := time.Parse(dateFormat, rec[txnColDate])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", rec[txnColDate], err)
	}

	amount, err := decimal.NewFromString(rec[txnColAmount])
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing amount %q: %w", rec[txnColAmount], err)
	}

	txn := model.Transaction{
		ID:          rec[txnColID],
		AccountID:   accountID,
		Date:        date,
		Amount:      amount,
		Type:        model.TransactionType(rec[txnColType]),
		Description: rec[txnColDesc],
		Location:    rec[txnColLocation],
		Reference:   rec[txnColReference],
		Subtype:     model.Subtype(rec[txnColSubtype]),
		Holder:      rec[txnColHolder],
		Extra:       model.ExtraInfo{PurchaseType: rec[txnColPurchaseType]},
	}

	if rec[txnColPurchaseDate] != "" {
		pd, err := time.Parse(time.RFC3339, rec[txnColPurchaseDate])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing purchase_date %q: %w", rec[txnColPurchaseDate], err)
		}
		txn.PurchaseDate = &pd
	}
	if rec[txnColReceipt] != "" {
		n, err := strconv.Atoi(rec[txnColReceipt])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing receipt_number %q: %w", rec[txnColReceipt], err)
		}
		txn.Extra.ReceiptNumber = &n
	}
	if rec[txnColProcessed] != "" {
		pd, err := time.Parse(dateFormat, rec[txnColProcessed])
		if err != nil {
			return model.Transaction{}, fmt.Errorf("parsing processed_date %q: %w", rec[txnColProcessed], err)
		}
		txn.Extra.ProcessedDate = &pd
	}

	return txn, nil
}

func readRecords(r io.Reader, numFields int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	// Skip header row.
	return records[1:], nil
}

func appendCSV(w io.Writer, records [][]string) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	for i, rec := range records {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	return cw.Error()
}

func writeRecords(w io.Writer, header string, records [][]string) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, rec := range records {
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}
