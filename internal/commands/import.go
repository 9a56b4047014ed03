package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bankfeed-dev/bankfeed/internal/auditlog"
	"github.com/bankfeed-dev/bankfeed/internal/config"
	"github.com/bankfeed-dev/bankfeed/internal/gitops"
	"github.com/bankfeed-dev/bankfeed/internal/holders"
	"github.com/bankfeed-dev/bankfeed/internal/id"
	"github.com/bankfeed-dev/bankfeed/internal/importer"
	"github.com/bankfeed-dev/bankfeed/internal/logging"
	"github.com/bankfeed-dev/bankfeed/internal/store"
)

func newImportCommand() *cobra.Command {
	var account string
	var repoDir string

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a bank statement CSV",
		Long: "Import a bank statement CSV into the account's raw-row and transaction\n" +
			"stores. With no file argument, every CSV waiting in <repo>/import/ is\n" +
			"imported and moved to import/processed/.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(repoDir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			file := ""
			if len(args) > 0 {
				file = args[0]
			}
			return runImport(cmd.Context(), absDir, account, file)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account ID (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&repoDir, "repo", ".", "data directory")

	return cmd
}

func runImport(ctx context.Context, dataRoot, account, file string) error {
	cfg, err := config.Load(filepath.Join(dataRoot, "bankfeed.yaml"))
	if err != nil {
		return err
	}
	if !cfg.HasAccount(account) {
		return fmt.Errorf("unknown account %q: add it to bankfeed.yaml first", account)
	}

	log := logging.NewLogger(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	hs, err := cfg.Holders()
	if err != nil {
		return err
	}

	st := store.New(dataRoot)
	imp := importer.New(st, holders.NewDirectory(hs), log)

	if file != "" {
		return importOne(ctx, dataRoot, cfg, st, imp, account, file, filepath.Base(file))
	}

	files, err := importer.Scan(dataRoot)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No statements waiting in import/")
		return nil
	}
	for _, fi := range files {
		if err := importOne(ctx, dataRoot, cfg, st, imp, account, fi.Path, fi.Name); err != nil {
			return fmt.Errorf("%s: %w", fi.Name, err)
		}
		if err := importer.MarkProcessed(dataRoot, fi.Name); err != nil {
			return err
		}
	}
	return nil
}

func importOne(ctx context.Context, dataRoot string, cfg *config.Config, st *store.Store, imp *importer.Importer, account, path, name string) error {
	runID, err := nextRunID(dataRoot)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	res, err := imp.Import(ctx, account, runID, f)
	if err != nil {
		return err
	}

	for _, s := range res.Skips {
		fmt.Printf("  line %d: %s\n", s.Line, s.Reason)
	}

	if res.EndingBalance == nil {
		return fmt.Errorf("no valid rows in %s (%d skipped)", name, res.Skipped)
	}

	if res.Empty() {
		fmt.Printf("Nothing new in %s: %d duplicates, %d skipped\n", name, res.Duplicates, res.Skipped)
		return auditlog.Append(dataRoot, []auditlog.Entry{logEntry(runID, account, name, res, "")})
	}

	if err := st.AppendTransactions(account, res.Transactions); err != nil {
		// Raw rows are already on disk; git restore recovers the data dir.
		return fmt.Errorf("persisting transactions (raw rows already written, restore the data directory): %w", err)
	}

	hash := ""
	if cfg.Git.AutoCommit && gitops.IsRepo(dataRoot) {
		hash, err = gitops.CommitAll(dataRoot,
			fmt.Sprintf("import: %s run %s (%d transactions)", account, runID, res.Imported),
			cfg.Git.AuthorName, cfg.Git.AuthorEmail)
		if err != nil {
			return fmt.Errorf("committing import: %w", err)
		}
	}

	if err := auditlog.Append(dataRoot, []auditlog.Entry{logEntry(runID, account, name, res, hash)}); err != nil {
		return err
	}

	fmt.Printf("Imported %d transactions from %s (%d skipped, %d duplicates), balance %s\n",
		res.Imported, name, res.Skipped, res.Duplicates, res.EndingBalance.StringFixed(2))
	return nil
}

func logEntry(runID, account, source string, res *importer.Result, hash string) auditlog.Entry {
	return auditlog.Entry{
		Timestamp:  time.Now().UTC(),
		RunID:      runID,
		AccountID:  account,
		Action:     "import",
		SourceFile: source,
		Imported:   res.Imported,
		Skipped:    res.Skipped,
		Duplicates: res.Duplicates,
		CommitHash: hash,
	}
}

// nextRunID numbers runs sequentially within the current month, continuing
// from whatever the import log already records.
func nextRunID(dataRoot string) (string, error) {
	entries, err := auditlog.ReadAll(dataRoot)
	if err != nil {
		return "", err
	}

	now := time.Now()
	seq := 1
	for _, e := range entries {
		y, m, s, err := id.ParseRunID(e.RunID)
		if err != nil {
			continue
		}
		if y == now.Year() && m == int(now.Month()) && s >= seq {
			seq = s + 1
		}
	}
	return id.FormatRunID(now.Year(), int(now.Month()), seq), nil
}
