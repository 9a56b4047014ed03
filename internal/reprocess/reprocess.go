// Package reprocess re-runs classification over already-imported raw rows,
// typically after the rule list changes. The source file is never re-read.
package reprocess

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bankfeed-dev/bankfeed/internal/classify"
	"github.com/bankfeed-dev/bankfeed/internal/holders"
	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// Store is the persistence collaborator the reprocessor needs.
type Store interface {
	RawRows(accountID string) ([]model.RawRow, error)
	Transactions(accountID string) ([]model.Transaction, error)
	UpdateTransactions(accountID string, txns []model.Transaction) error
}

// workers bounds per-row parallelism. Rows are independent within one
// account, but two runs for the same account must not overlap.
const workers = 8

// Summary counts what one reprocess run touched.
type Summary struct {
	Reclassified int
	Orphaned     int
	Failed       int
}

// Reprocessor re-classifies descriptions for all raw rows whose normalized
// transaction still exists.
type Reprocessor struct {
	store Store
	dir   holders.Lookup
	rules []classify.Rule
	log   *zap.Logger
}

// New creates a Reprocessor with the default classification rules.
func New(store Store, dir holders.Lookup, log *zap.Logger) *Reprocessor {
	return &Reprocessor{store: store, dir: dir, rules: classify.DefaultRules(), log: log}
}

// Reprocess partitions the account's raw rows into processed (linked to a
// still-known transaction) and orphaned, then rewrites the descriptive fields
// of each processed row's transaction from a fresh classification. Amount,
// type, date, account, and row linkage are never altered. Orphaned rows are
// left untouched.
func (rp *Reprocessor) Reprocess(ctx context.Context, accountID string) (Summary, error) {
	txns, err := rp.store.Transactions(accountID)
	if err != nil {
		return Summary{}, fmt.Errorf("loading transactions: %w", err)
	}
	rows, err := rp.store.RawRows(accountID)
	if err != nil {
		return Summary{}, fmt.Errorf("loading raw rows: %w", err)
	}

	known := make(map[string]model.Transaction, len(txns))
	for _, txn := range txns {
		known[txn.ID] = txn
	}

	var summary Summary
	var processed []model.RawRow
	for _, row := range rows {
		if !row.Linked() {
			summary.Orphaned++
			continue
		}
		if _, ok := known[row.TransactionID]; !ok {
			summary.Orphaned++
			continue
		}
		processed = append(processed, row)
	}

	resolver := holders.NewResolver(rp.dir)
	updated := make([]model.Transaction, len(processed))
	ok := make([]bool, len(processed))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, row := range processed {
		i, row := i, row
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ex, err := classify.Classify(rp.rules, row.Description)
			if err != nil {
				rp.log.Warn("reclassification failed",
					zap.String("account", accountID),
					zap.String("raw_row", row.ID),
					zap.Error(err))
				return nil
			}
			updated[i] = refresh(known[row.TransactionID], ex, resolver.Resolve(ex.CardLast4))
			ok[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	var changed []model.Transaction
	for i := range processed {
		if ok[i] {
			changed = append(changed, updated[i])
			summary.Reclassified++
		} else {
			summary.Failed++
		}
	}

	if err := rp.store.UpdateTransactions(accountID, changed); err != nil {
		return Summary{}, fmt.Errorf("updating transactions: %w", err)
	}

	rp.log.Info("reprocess complete",
		zap.String("account", accountID),
		zap.Int("reclassified", summary.Reclassified),
		zap.Int("orphaned", summary.Orphaned),
		zap.Int("failed", summary.Failed))
	return summary, nil
}

// refresh overwrites the descriptive fields of a transaction from a fresh
// extraction, keeping its identity, amount, type, dates, and account.
func refresh(txn model.Transaction, ex classify.Extraction, holder string) model.Transaction {
	txn.Description = ex.Description
	txn.Location = ex.Location
	txn.Reference = ex.Reference
	txn.PurchaseDate = ex.PurchaseDate
	txn.Subtype = ex.Subtype
	txn.Holder = holder
	txn.Extra.ReceiptNumber = ex.ReceiptNumber
	txn.Extra.PurchaseType = ex.PurchaseType
	return txn
}
