package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bankfeed-dev/bankfeed/internal/config"
	"github.com/bankfeed-dev/bankfeed/internal/gitops"
	"github.com/bankfeed-dev/bankfeed/internal/holders"
	"github.com/bankfeed-dev/bankfeed/internal/logging"
	"github.com/bankfeed-dev/bankfeed/internal/reprocess"
	"github.com/bankfeed-dev/bankfeed/internal/store"
)

func newReprocessCommand() *cobra.Command {
	var account string
	var repoDir string

	cmd := &cobra.Command{
		Use:   "reprocess",
		Short: "Re-run classification over already-imported raw rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			absDir, err := filepath.Abs(repoDir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}
			return runReprocess(cmd.Context(), absDir, account)
		},
	}

	cmd.Flags().StringVar(&account, "account", "", "account ID (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&repoDir, "repo", ".", "data directory")

	return cmd
}

func runReprocess(ctx context.Context, dataRoot, account string) error {
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
	rp := reprocess.New(st, holders.NewDirectory(hs), log)

	summary, err := rp.Reprocess(ctx, account)
	if err != nil {
		return err
	}

	if summary.Reclassified > 0 && cfg.Git.AutoCommit && gitops.IsRepo(dataRoot) {
		if _, err := gitops.CommitAll(dataRoot,
			fmt.Sprintf("reprocess: %s (%d transactions)", account, summary.Reclassified),
			cfg.Git.AuthorName, cfg.Git.AuthorEmail); err != nil {
			return fmt.Errorf("committing reprocess: %w", err)
		}
	}

	fmt.Printf("Reclassified %d transactions (%d orphaned rows untouched, %d failed)\n",
		summary.Reclassified, summary.Orphaned, summary.Failed)
	return nil
}
