package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"repoedit/internal/store"
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "List the repository tree",
	Args:  cobra.NoArgs,
	RunE:  runTree,
}

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print a file from the repository",
	Long: `Print a repository file. With --format json the version token is
included, which is what a write must present to replace the file.`,
	Args: cobra.ExactArgs(1),
	RunE: runCat,
}

func init() {
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(catCmd)
}

// TreeResponseCLI is the tree command's output.
type TreeResponseCLI struct {
	Entries []store.TreeEntry `json:"entries"`
}

// FileResponseCLI is the cat command's JSON output.
type FileResponseCLI struct {
	Path    string        `json:"path"`
	Size    int           `json:"size"`
	Version store.Version `json:"version"`
	Content string        `json:"content"`
}

func runTree(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.store()
	if err != nil {
		return err
	}

	ctx, stop := newContext()
	defer stop()

	entries, err := st.GetTree(ctx)
	if err != nil {
		return err
	}
	return printResponse(cmd, &TreeResponseCLI{Entries: entries})
}

func runCat(cmd *cobra.Command, args []string) error {
	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.store()
	if err != nil {
		return err
	}

	ctx, stop := newContext()
	defer stop()

	f, err := st.GetFile(ctx, args[0])
	if err != nil {
		return err
	}

	if OutputFormat(formatFlag) == FormatJSON {
		return printResponse(cmd, &FileResponseCLI{Path: f.Path, Size: f.Size, Version: f.Version, Content: f.Content})
	}
	return writeContent(cmd.OutOrStdout(), f.Content)
}

// writeContent prints content, adding a final newline when it lacks one.
func writeContent(w io.Writer, content string) error {
	if _, err := io.WriteString(w, content); err != nil {
		return err
	}
	if content != "" && content[len(content)-1] != '\n' {
		_, err := fmt.Fprintln(w)
		return err
	}
	return nil
}
