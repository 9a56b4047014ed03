package importer

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bankfeed-dev/bankfeed/internal/holders"
	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// fakeRawStore keeps raw rows in memory and records dedup queries.
type fakeRawStore struct {
	rows       []model.RawRow
	appendErr  error
	dedupCalls int
}

func (f *fakeRawStore) HasRawRow(accountID, description string, date time.Time) (bool, error) {
	f.dedupCalls++
	for _, r := range f.rows {
		if r.AccountID == accountID && r.Description == description && r.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRawStore) AppendRawRows(accountID string, rows []model.RawRow) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.rows = append(f.rows, rows...)
	return nil
}

func newTestImporter(t *testing.T, raws RawStore) *Importer {
	t.Helper()
	dir := holders.NewDirectory([]model.AccountHolder{
		{Name: "Alex", LastFour: 7890},
		{Name: "Sam", LastFour: 1234},
	})
	return New(raws, dir, zaptest.NewLogger(t))
}

func TestImport_FullStatement(t *testing.T) {
	data, err := os.ReadFile("../../testdata/statement.csv")
	require.NoError(t, err)

	raws := &fakeRawStore{}
	imp := newTestImporter(t, raws)

	res, err := imp.Import(context.Background(), "everyday", "2024-03-001", strings.NewReader(string(data)))
	require.NoError(t, err)

	assert.Equal(t, 6, res.Imported)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 0, res.Duplicates)
	require.Len(t, res.Transactions, 6)
	require.Len(t, raws.rows, 6)

	// Balance comes from the first validated row, not the last.
	require.NotNil(t, res.EndingBalance)
	assert.Equal(t, "1000.00", res.EndingBalance.StringFixed(2))
}

func TestImport_VisaRow(t *testing.T) {
	csv := "Date,Description,Credit,Debit,Balance\n" +
		`15/03/2024,"BIG W - Visa Purchase - Receipt 123456In SYDNEY Date 14/03/2024 Card 123456xxxxxx7890",,45.00,1000.00` + "\n"

	raws := &fakeRawStore{}
	imp := newTestImporter(t, raws)

	res, err := imp.Import(context.Background(), "everyday", "2024-03-001", strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)

	txn := res.Transactions[0]
	assert.Equal(t, model.TypeDebit, txn.Type)
	assert.Equal(t, "-45.00", txn.Amount.StringFixed(2))
	assert.Equal(t, "BIG W", txn.Description)
	assert.Equal(t, "SYDNEY", txn.Location)
	assert.Equal(t, model.SubtypeVisa, txn.Subtype)
	assert.Equal(t, "Alex", txn.Holder)
	require.NotNil(t, txn.Extra.ReceiptNumber)
	assert.Equal(t, 123456, *txn.Extra.ReceiptNumber)

	// The raw row mirrors the original line and links to the transaction.
	raw := raws.rows[0]
	assert.Equal(t, txn.ID, raw.TransactionID)
	assert.Equal(t, "2024-03-001", raw.ImportRunID)
	assert.Contains(t, raw.Description, "Visa Purchase")
	require.NotNil(t, raw.Debit)
	assert.Equal(t, "45.00", raw.Debit.StringFixed(2))
	assert.Nil(t, raw.Credit)
}

func TestImport_SkipsBadRowsAndContinues(t *testing.T) {
	csv := "Date,Description,Credit,Debit,Balance\n" +
		"15/03/2024,COLES,,45.00,1000.00\n" +
		"garbage line\n" +
		"16/03/2024,EMPTY AMOUNTS,,,995.00\n" +
		"17/03/2024,BOTH AMOUNTS,5.00,6.00,990.00\n" +
		"18/03/2024,KMART,,12.00,978.00\n"

	raws := &fakeRawStore{}
	imp := newTestImporter(t, raws)

	res, err := imp.Import(context.Background(), "everyday", "2024-03-001", strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 3, res.Skipped)
	require.Len(t, res.Skips, 3)
	assert.Equal(t, 3, res.Skips[0].Line)
	assert.Contains(t, res.Skips[0].Reason, "unrecognised entry")
	assert.Contains(t, res.Skips[1].Reason, "exactly one")
	assert.Contains(t, res.Skips[2].Reason, "exactly one")
}

func TestImport_DuplicateWithinFile(t *testing.T) {
	csv := "Date,Description,Credit,Debit,Balance\n" +
		"15/03/2024,COFFEE SHOP,,4.50,1000.00\n" +
		"15/03/2024,COFFEE SHOP,,4.50,995.50\n"

	raws := &fakeRawStore{}
	imp := newTestImporter(t, raws)

	res, err := imp.Import(context.Background(), "everyday", "2024-03-001", strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 0, res.Skipped, "duplicates are not validation errors")
}

func TestImport_DuplicateAgainstStore(t *testing.T) {
	csv := "Date,Description,Credit,Debit,Balance\n" +
		"15/03/2024,COFFEE SHOP,,4.50,1000.00\n"

	raws := &fakeRawStore{}
	imp := newTestImporter(t, raws)

	first, err := imp.Import(context.Background(), "everyday", "2024-03-001", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, first.Imported)

	// Importing the identical file again yields zero new transactions.
	second, err := imp.Import(context.Background(), "everyday", "2024-03-002", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 1, second.Duplicates)
	assert.Len(t, raws.rows, 1)

	// Balance is still read from the validated (if duplicate) first row.
	require.NotNil(t, second.EndingBalance)
	assert.Equal(t, "1000.00", second.EndingBalance.StringFixed(2))
}

func TestImport_DedupIgnoresAmount(t *testing.T) {
	// Known quirk: two distinct purchases with the same description on the
	// same day collide, because the dedup key has no amount in it.
	csv := "Date,Description,Credit,Debit,Balance\n" +
		"15/03/2024,COFFEE SHOP,,4.50,1000.00\n" +
		"15/03/2024,COFFEE SHOP,,5.50,994.50\n"

	raws := &fakeRawStore{}
	imp := newTestImporter(t, raws)

	res, err := imp.Import(context.Background(), "everyday", "2024-03-001", strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Duplicates)
}

func TestImport_EmptyFile(t *testing.T) {
	raws := &fakeRawStore{}
	imp := newTestImporter(t, raws)

	res, err := imp.Import(context.Background(), "everyday", "2024-03-001", strings.NewReader("Date,Description,Credit,Debit,Balance\n"))
	require.NoError(t, err)

	assert.True(t, res.Empty())
	assert.Nil(t, res.EndingBalance)
	assert.Empty(t, raws.rows)
}

func TestImport_UnknownCardLeavesHolderEmpty(t *testing.T) {
	csv := "Date,Description,Credit,Debit,Balance\n" +
		`15/03/2024,"BIG W - Visa Purchase - Receipt 123456In SYDNEY Date 14/03/2024 Card 123456xxxxxx9999",,45.00,1000.00` + "\n"

	raws := &fakeRawStore{}
	imp := newTestImporter(t, raws)

	res, err := imp.Import(context.Background(), "everyday", "2024-03-001", strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, res.Transactions, 1)
	assert.Empty(t, res.Transactions[0].Holder)
}

func TestImport_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raws := &fakeRawStore{}
	imp := newTestImporter(t, raws)

	csv := "Date,Description,Credit,Debit,Balance\n15/03/2024,COLES,,45.00,1000.00\n"
	_, err := imp.Import(ctx, "everyday", "2024-03-001", strings.NewReader(csv))
	require.ErrorIs(t, err, context.Canceled)
}
