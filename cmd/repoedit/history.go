package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"repoedit/internal/storage"
)

var (
	historyLimit int
	historyBatch string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently applied edits",
	Long: `Show per-file results recorded in the apply journal, newest first.

Examples:
  repoedit history
  repoedit history --limit 100
  repoedit history --batch 1f0c...   # one batch, in apply order`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", storage.DefaultHistoryLimit, "Maximum entries to show")
	historyCmd.Flags().StringVar(&historyBatch, "batch", "", "Show a single batch")
	rootCmd.AddCommand(historyCmd)
}

// HistoryResponseCLI is the history command's output.
type HistoryResponseCLI struct {
	Entries []storage.JournalEntry `json:"entries"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	journal, err := a.journal()
	if err != nil {
		return err
	}
	if journal == nil {
		return fmt.Errorf("the apply journal is disabled (journal.enabled=false)")
	}

	ctx, stop := newContext()
	defer stop()

	var entries []storage.JournalEntry
	if historyBatch != "" {
		entries, err = journal.Batch(ctx, historyBatch)
	} else {
		entries, err = journal.List(ctx, historyLimit)
	}
	if err != nil {
		return err
	}
	return printResponse(cmd, &HistoryResponseCLI{Entries: entries})
}
