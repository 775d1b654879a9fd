// Package preview renders proposed file changes for review before commit.
package preview

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// ContextLines is the number of unchanged lines shown around each hunk.
const ContextLines = 3

// UnifiedDiff renders a git-style unified diff between before and after.
// A missing side is shown as /dev/null. Identical content yields "".
func UnifiedDiff(file, before, after string) (string, error) {
	if before == after {
		return "", nil
	}

	from, to := "a/"+file, "b/"+file
	if before == "" {
		from = "/dev/null"
	}
	if after == "" {
		to = "/dev/null"
	}

	diff := difflib.UnifiedDiff{
		A:        splitLines(before),
		B:        splitLines(after),
		FromFile: from,
		ToFile:   to,
		Context:  ContextLines,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", file, err)
	}
	return text, nil
}

// splitLines keeps line terminators, which difflib expects, and marks a
// missing final newline the way git does.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := difflib.SplitLines(s)
	// SplitLines appends "\n" to the last line; undo that when s has no
	// trailing newline so the difference is visible.
	if !strings.HasSuffix(s, "\n") {
		last := len(lines) - 1
		lines[last] = strings.TrimSuffix(lines[last], "\n") + "\n\\ No newline at end of file\n"
	} else if n := len(lines); n > 0 && lines[n-1] == "\n" {
		lines = lines[:n-1]
	}
	return lines
}

// Stats counts added and removed lines in a unified diff.
func Stats(diff string) (added, removed int) {
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			added++
		case strings.HasPrefix(line, "-"):
			removed++
		}
	}
	return added, removed
}
