package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"repoedit/internal/preview"
	"repoedit/internal/store"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatHuman OutputFormat = "human"
)

// printResponse writes resp to the command's stdout in the --format format.
func printResponse(cmd *cobra.Command, resp interface{}) error {
	out, err := FormatResponse(resp, OutputFormat(formatFlag))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	switch v := resp.(type) {
	case *ApplyResponseCLI:
		return formatApplyHuman(v), nil
	case *PreviewResponseCLI:
		return formatPreviewHuman(v), nil
	case *TreeResponseCLI:
		return formatTreeHuman(v), nil
	case *HistoryResponseCLI:
		return formatHistoryHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

func formatApplyHuman(resp *ApplyResponseCLI) string {
	var b strings.Builder
	for _, r := range resp.Results {
		if r.Success {
			fmt.Fprintf(&b, "  ok    %s (%s", r.File, r.Action)
			if r.Commit != "" {
				fmt.Fprintf(&b, ", commit %s", shortSHA(r.Commit))
			}
			b.WriteString(")\n")
			continue
		}
		fmt.Fprintf(&b, "  FAIL  %s [%s] %s\n", r.File, r.Code, r.Error)
	}
	fmt.Fprintf(&b, "\n%d succeeded, %d failed", resp.Summary.Succeeded, resp.Summary.Failed)
	if resp.Error != "" {
		fmt.Fprintf(&b, "\nAborted: %s", resp.Error)
	}
	return b.String()
}

func formatPreviewHuman(resp *PreviewResponseCLI) string {
	if len(resp.Previews) == 0 {
		return "No changes."
	}
	var b strings.Builder
	for i, p := range resp.Previews {
		if i > 0 {
			b.WriteString("\n")
		}
		if p.Error != "" {
			fmt.Fprintf(&b, "%s: [%s] %s\n", p.File, p.Code, p.Error)
			continue
		}
		added, removed := preview.Stats(p.Diff)
		fmt.Fprintf(&b, "%s (%s, +%d -%d)\n", p.File, p.Action, added, removed)
		b.WriteString(p.Diff)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatTreeHuman(resp *TreeResponseCLI) string {
	if len(resp.Entries) == 0 {
		return "(empty repository)"
	}
	var b strings.Builder
	writeTree(&b, resp.Entries, 0)
	return strings.TrimRight(b.String(), "\n")
}

func writeTree(b *strings.Builder, entries []store.TreeEntry, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, e := range entries {
		if e.Type == store.EntryDir {
			fmt.Fprintf(b, "%s%s/\n", indent, e.Name)
			writeTree(b, e.Children, depth+1)
			continue
		}
		fmt.Fprintf(b, "%s%s (%d bytes)\n", indent, e.Name, e.Size)
	}
}

func formatHistoryHuman(resp *HistoryResponseCLI) string {
	if len(resp.Entries) == 0 {
		return "No edits recorded."
	}
	var b strings.Builder
	for _, e := range resp.Entries {
		status := "ok"
		detail := e.Action
		if !e.Success {
			status = "FAIL"
			detail = e.ErrorCode
		}
		fmt.Fprintf(&b, "%s  %-4s  %-8s  %s  %s\n",
			e.CreatedAt.Local().Format("2006-01-02 15:04:05"), status, shortSHA(e.BatchID), e.File, detail)
	}
	return strings.TrimRight(b.String(), "\n")
}

func shortSHA(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}
