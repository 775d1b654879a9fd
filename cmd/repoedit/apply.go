package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"repoedit/internal/apply"
	"repoedit/internal/edit"
)

var applyCmd = &cobra.Command{
	Use:   "apply <edits-file>",
	Short: "Apply an edits file and commit each file",
	Long: `Apply edits from a JSON or YAML file to the configured repository.
Each file is committed separately. A file whose edits fail is left untouched
and the remaining files are still applied.

Examples:
  repoedit apply edits.json
  repoedit apply edits.yaml --format json
  cat edits.json | repoedit apply -`,
	Args: cobra.ExactArgs(1),
	RunE: runApply,
}

var previewCmd = &cobra.Command{
	Use:   "preview <edits-file>",
	Short: "Show the diff an edits file would produce",
	Long: `Compute the result of an edits file against the repository and print a
unified diff per file. Nothing is committed.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

func init() {
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(previewCmd)
}

// ApplyResponseCLI is the apply command's output.
type ApplyResponseCLI struct {
	Results []apply.Result `json:"results"`
	Summary apply.Summary  `json:"summary"`
	Error   string         `json:"error,omitempty"`
}

// PreviewResponseCLI is the preview command's output.
type PreviewResponseCLI struct {
	Previews []apply.Preview `json:"previews"`
}

func runApply(cmd *cobra.Command, args []string) error {
	edits, err := loadEdits(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(edits) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No edits to apply.")
		return nil
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.store()
	if err != nil {
		return err
	}
	orch, _, err := a.orchestrator(st)
	if err != nil {
		return err
	}

	ctx, stop := newContext()
	defer stop()

	a.logger.Info("Applying edits", "files", len(edit.GroupByFile(edits)), "edits", len(edits))
	results, applyErr := orch.Apply(ctx, edits)

	resp := &ApplyResponseCLI{Results: results, Summary: apply.Summarize(results)}
	if applyErr != nil {
		resp.Error = applyErr.Error()
	}
	if err := printResponse(cmd, resp); err != nil {
		return err
	}

	if applyErr != nil {
		return applyErr
	}
	if resp.Summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", resp.Summary.Failed, len(results))
	}
	return nil
}

func runPreview(cmd *cobra.Command, args []string) error {
	edits, err := loadEdits(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.store()
	if err != nil {
		return err
	}
	// Previews are not journaled.
	orch := apply.NewOrchestrator(apply.NewReconciler(st, a.logger), nil, a.logger)

	ctx, stop := newContext()
	defer stop()

	previews, err := orch.Preview(ctx, edits)
	if printErr := printResponse(cmd, &PreviewResponseCLI{Previews: previews}); printErr != nil {
		return printErr
	}
	return err
}
