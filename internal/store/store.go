// Package store persists raw rows and normalized transactions as per-account
// CSV files under the data directory.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

const accountsDir = "accounts"

// Store reads and writes per-account CSV files rooted at a data directory.
type Store struct {
	root string
}

// New creates a Store over a data directory.
func New(root string) *Store {
	return &Store{root: root}
}

func (s *Store) rawPath(accountID string) string {
	return filepath.Join(s.root, accountsDir, accountID, "raw-rows.csv")
}

func (s *Store) txnPath(accountID string) string {
	return filepath.Join(s.root, accountsDir, accountID, "transactions.csv")
}

// RawRows returns all raw rows for an account. A missing file means no rows.
func (s *Store) RawRows(accountID string) ([]model.RawRow, error) {
	f, err := os.Open(s.rawPath(accountID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening raw rows: %w", err)
	}
	defer f.Close()

	records, err := readRecords(f, rawNumFields)
	if err != nil {
		return nil, fmt.Errorf("reading raw rows: %w", err)
	}

	var rows []model.RawRow
	for i, rec := range records {
		row, err := UnmarshalRawRow(rec, accountID)
		if err != nil {
			return nil, fmt.Errorf("raw row %d: %w", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// HasRawRow reports whether a raw row with the same description and date
// already exists for the account. This is the dedup key: amount is not
// compared.
func (s *Store) HasRawRow(accountID, description string, date time.Time) (bool, error) {
	rows, err := s.RawRows(accountID)
	if err != nil {
		return false, err
	}
	y, m, d := date.Date()
	for _, row := range rows {
		ry, rm, rd := row.Date.Date()
		if row.Description == description && ry == y && rm == m && rd == d {
			return true, nil
		}
	}
	return false, nil
}

// AppendRawRows appends rows to the account's raw-rows.csv in one batch,
// creating the file and header if needed.
func (s *Store) AppendRawRows(accountID string, rows []model.RawRow) error {
	if len(rows) == 0 {
		return nil
	}
	records := make([][]string, len(rows))
	for i, row := range rows {
		records[i] = MarshalRawRow(row)
	}
	return s.appendRecords(s.rawPath(accountID), RawHeader, records)
}

// Transactions returns all normalized transactions for an account.
func (s *Store) Transactions(accountID string) ([]model.Transaction, error) {
	f, err := os.Open(s.txnPath(accountID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening transactions: %w", err)
	}
	defer f.Close()

	records, err := readRecords(f, txnNumFields)
	if err != nil {
		return nil, fmt.Errorf("reading transactions: %w", err)
	}

	var txns []model.Transaction
	for i, rec := range records {
		txn, err := UnmarshalTransaction(rec, accountID)
		if err != nil {
			return nil, fmt.Errorf("transaction row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// AppendTransactions appends transactions to the account's transactions.csv
// in one batch.
func (s *Store) AppendTransactions(accountID string, txns []model.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	records := make([][]string, len(txns))
	for i, txn := range txns {
		records[i] = MarshalTransaction(txn)
	}
	return s.appendRecords(s.txnPath(accountID), TxnHeader, records)
}

// UpdateTransactions rewrites the account's transactions.csv with the given
// transactions substituted by ID. Unknown IDs are ignored.
func (s *Store) UpdateTransactions(accountID string, updated []model.Transaction) error {
	if len(updated) == 0 {
		return nil
	}

	existing, err := s.Transactions(accountID)
	if err != nil {
		return err
	}

	byID := make(map[string]model.Transaction, len(updated))
	for _, txn := range updated {
		byID[txn.ID] = txn
	}

	records := make([][]string, len(existing))
	for i, txn := range existing {
		if repl, ok := byID[txn.ID]; ok {
			txn = repl
		}
		records[i] = MarshalTransaction(txn)
	}

	path := s.txnPath(accountID)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating transactions file: %w", err)
	}
	if err := writeRecords(f, TxnHeader, records); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing transactions: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing transactions file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing transactions file: %w", err)
	}
	return nil
}

func (s *Store) appendRecords(path, header string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating account dir: %w", err)
	}

	isNew := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		isNew = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if isNew {
		if _, err := f.WriteString(header + "\n"); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	return appendCSV(f, records)
}
