// Package auditlog records import and reprocess runs in
// logs/import-log.csv for operator visibility.
package auditlog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Entry is one row in the import log.
type Entry struct {
	Timestamp  time.Time
	RunID      string
	AccountID  string
	Action     string // "import" or "reprocess"
	SourceFile string
	Imported   int
	Skipped    int
	Duplicates int
	CommitHash string
}

// Header is the CSV header for import-log.csv.
const Header = "timestamp,run_id,account_id,action,source_file,imported,skipped,duplicates,commit_hash"

const (
	numFields = 9
	logDir    = "logs"
	logFile   = "logs/import-log.csv"

	colTimestamp  = 0
	colRunID      = 1
	colAccountID  = 2
	colAction     = 3
	colSourceFile = 4
	colImported   = 5
	colSkipped    = 6
	colDuplicates = 7
	colCommitHash = 8
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.Format(time.RFC3339)
	row[colRunID] = e.RunID
	row[colAccountID] = e.AccountID
	row[colAction] = e.Action
	row[colSourceFile] = e.SourceFile
	row[colImported] = strconv.Itoa(e.Imported)
	row[colSkipped] = strconv.Itoa(e.Skipped)
	row[colDuplicates] = strconv.Itoa(e.Duplicates)
	row[colCommitHash] = e.CommitHash
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}

	imported, err := strconv.Atoi(record[colImported])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing imported %q: %w", record[colImported], err)
	}
	skipped, err := strconv.Atoi(record[colSkipped])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing skipped %q: %w", record[colSkipped], err)
	}
	duplicates, err := strconv.Atoi(record[colDuplicates])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing duplicates %q: %w", record[colDuplicates], err)
	}

	return Entry{
		Timestamp:  ts,
		RunID:      record[colRunID],
		AccountID:  record[colAccountID],
		Action:     record[colAction],
		SourceFile: record[colSourceFile],
		Imported:   imported,
		Skipped:    skipped,
		Duplicates: duplicates,
		CommitHash: record[colCommitHash],
	}, nil
}

// Append writes entries to <dataRoot>/logs/import-log.csv, creating the file
// and header if needed.
func Append(dataRoot string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	dir := filepath.Join(dataRoot, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(dataRoot, logFile)
	needsHeader := false
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	if needsHeader {
		if _, err := f.WriteString(Header + "\n"); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	cw := csv.NewWriter(f)
	defer cw.Flush()
	for _, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry: %w", err)
		}
	}
	return cw.Error()
}

// ReadAll returns every entry in the import log. A missing file means no
// entries.
func ReadAll(dataRoot string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(dataRoot, logFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening import log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading import log: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records {
		if i == 0 && strings.EqualFold(rec[colTimestamp], "timestamp") {
			continue
		}
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
