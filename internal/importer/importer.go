// Package importer drives the statement ingestion pipeline: tokenize,
// validate, dedup, classify, resolve the card holder, and persist.
package importer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/bankfeed-dev/bankfeed/internal/classify"
	"github.com/bankfeed-dev/bankfeed/internal/holders"
	"github.com/bankfeed-dev/bankfeed/internal/model"
	"github.com/bankfeed-dev/bankfeed/internal/statement"
)

// RawStore is the raw-row collaborator the orchestrator needs.
type RawStore interface {
	HasRawRow(accountID, description string, date time.Time) (bool, error)
	AppendRawRows(accountID string, rows []model.RawRow) error
}

// Skip records one line the importer could not use.
type Skip struct {
	Line   int
	Reason string
}

// Result is the outcome of one import run. Raw rows are persisted by the
// importer in one batch; transactions are returned for the caller to persist
// via the transaction store.
type Result struct {
	Transactions  []model.Transaction
	RawRows       []model.RawRow
	EndingBalance *decimal.Decimal // nil when the file had no valid rows
	Imported      int
	Skipped       int
	Duplicates    int
	Skips         []Skip
}

// Empty reports whether the run imported nothing.
func (r *Result) Empty() bool { return r.Imported == 0 }

// Importer imports bank statement CSVs for one or more accounts.
type Importer struct {
	raws  RawStore
	dir   holders.Lookup
	rules []classify.Rule
	log   *zap.Logger
}

// New creates an Importer with the default classification rules.
func New(raws RawStore, dir holders.Lookup, log *zap.Logger) *Importer {
	return &Importer{raws: raws, dir: dir, rules: classify.DefaultRules(), log: log}
}

// Import reads a statement CSV and produces the paired raw rows and
// normalized transactions. Bad rows are skipped and recorded, never fatal;
// only a stream read failure aborts the run. The first line is always the
// header and is discarded.
func (im *Importer) Import(ctx context.Context, accountID, runID string, r io.Reader) (*Result, error) {
	resolver := holders.NewResolver(im.dir)
	seen := make(map[string]bool) // (description, date) pairs accepted this run

	res := &Result{}
	scanner := bufio.NewScanner(r)
	line := 0

	for scanner.Scan() {
		line++
		if line == 1 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fields := statement.Tokenize(scanner.Text())
		row, err := statement.ParseRow(fields)
		if err != nil {
			var se *statement.SkipError
			if !errors.As(err, &se) {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			im.log.Warn("skipping row",
				zap.String("account", accountID),
				zap.Int("line", line),
				zap.String("reason", se.Reason))
			res.Skipped++
			res.Skips = append(res.Skips, Skip{Line: line, Reason: se.Reason})
			continue
		}

		// The export lists the current balance on the first row.
		if res.EndingBalance == nil {
			balance := row.Balance
			res.EndingBalance = &balance
		}

		key := dedupKey(row.Description, row.Date)
		dup := seen[key]
		if !dup {
			dup, err = im.raws.HasRawRow(accountID, row.Description, row.Date)
			if err != nil {
				return nil, fmt.Errorf("checking duplicates: %w", err)
			}
		}
		if dup {
			im.log.Info("duplicate row",
				zap.String("account", accountID),
				zap.Int("line", line),
				zap.String("description", row.Description))
			res.Duplicates++
			continue
		}

		ex, err := classify.Classify(im.rules, row.Description)
		if err != nil {
			im.log.Warn("classification failed",
				zap.String("account", accountID),
				zap.Int("line", line),
				zap.Error(err))
			res.Skipped++
			res.Skips = append(res.Skips, Skip{Line: line, Reason: err.Error()})
			continue
		}

		txn := buildTransaction(accountID, row, ex, resolver.Resolve(ex.CardLast4))
		raw := model.RawRow{
			ID:            uuid.NewString(),
			AccountID:     accountID,
			Date:          row.Date,
			Description:   row.Description,
			Credit:        row.Credit,
			Debit:         row.Debit,
			Balance:       row.Balance,
			ImportedAt:    time.Now().UTC(),
			ImportRunID:   runID,
			TransactionID: txn.ID,
		}

		seen[key] = true
		res.Transactions = append(res.Transactions, txn)
		res.RawRows = append(res.RawRows, raw)
		res.Imported++
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading statement: %w", err)
	}

	// One batch, not row-by-row.
	if err := im.raws.AppendRawRows(accountID, res.RawRows); err != nil {
		return nil, fmt.Errorf("persisting raw rows: %w", err)
	}

	im.log.Info("import complete",
		zap.String("account", accountID),
		zap.String("run", runID),
		zap.Int("imported", res.Imported),
		zap.Int("skipped", res.Skipped),
		zap.Int("duplicates", res.Duplicates))
	return res, nil
}

func buildTransaction(accountID string, row statement.Row, ex classify.Extraction, holder string) model.Transaction {
	processed := row.Date
	return model.Transaction{
		ID:           uuid.NewString(),
		AccountID:    accountID,
		Date:         row.Date,
		Amount:       model.SignedAmount(row.Magnitude(), row.Type()),
		Type:         row.Type(),
		Description:  ex.Description,
		Location:     ex.Location,
		Reference:    ex.Reference,
		PurchaseDate: ex.PurchaseDate,
		Subtype:      ex.Subtype,
		Holder:       holder,
		Extra: model.ExtraInfo{
			ReceiptNumber: ex.ReceiptNumber,
			ProcessedDate: &processed,
			PurchaseType:  ex.PurchaseType,
		},
	}
}

func dedupKey(description string, date time.Time) string {
	return description + "|" + date.Format("2006-01-02")
}
