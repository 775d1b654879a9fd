package edit

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDeleteMismatch is wrapped by DeleteMismatchError.
var ErrDeleteMismatch = errors.New("delete mismatch")

// ErrInvalidLine is returned for line numbers below 1.
var ErrInvalidLine = errors.New("line numbers start at 1")

// DeleteMismatchError reports a delete whose expected text did not match the
// buffer, or whose line does not exist.
type DeleteMismatchError struct {
	Line     int
	Expected string
	Found    string
	Missing  bool
}

func (e *DeleteMismatchError) Error() string {
	if e.Missing {
		return fmt.Sprintf("delete mismatch at line %d: line does not exist (expected %q)", e.Line, e.Expected)
	}
	return fmt.Sprintf("delete mismatch at line %d: expected %q, found %q", e.Line, e.Expected, e.Found)
}

// Unwrap lets errors.Is match ErrDeleteMismatch.
func (e *DeleteMismatchError) Unwrap() error {
	return ErrDeleteMismatch
}

// Buffer is a file's content as ordered lines. The empty file is zero lines;
// any other text is split on "\n" so a trailing newline yields a trailing
// empty line.
type Buffer []string

// FromText splits s into a Buffer.
func FromText(s string) Buffer {
	if s == "" {
		return Buffer{}
	}
	return Buffer(strings.Split(s, "\n"))
}

// Text joins the buffer back into file content. Text(FromText(s)) == s.
func (b Buffer) Text() string {
	return strings.Join(b, "\n")
}

// Len returns the number of lines.
func (b Buffer) Len() int {
	return len(b)
}

// InsertAt inserts text before line. Lines past the end are padded with
// empty lines so the text lands exactly on line.
func (b Buffer) InsertAt(line int, text string) (Buffer, error) {
	if line < 1 {
		return b, fmt.Errorf("insert at %d: %w", line, ErrInvalidLine)
	}

	if line > len(b)+1 {
		out := make(Buffer, line)
		copy(out, b)
		out[line-1] = text
		return out, nil
	}

	out := make(Buffer, 0, len(b)+1)
	out = append(out, b[:line-1]...)
	out = append(out, text)
	out = append(out, b[line-1:]...)
	return out, nil
}

// DeleteAt removes line if its text equals expected exactly. On mismatch the
// buffer is returned unchanged with a *DeleteMismatchError.
func (b Buffer) DeleteAt(line int, expected string) (Buffer, error) {
	if line < 1 {
		return b, fmt.Errorf("delete at %d: %w", line, ErrInvalidLine)
	}
	if line > len(b) {
		return b, &DeleteMismatchError{Line: line, Expected: expected, Missing: true}
	}
	if found := b[line-1]; found != expected {
		return b, &DeleteMismatchError{Line: line, Expected: expected, Found: found}
	}

	out := make(Buffer, 0, len(b)-1)
	out = append(out, b[:line-1]...)
	out = append(out, b[line:]...)
	return out, nil
}

// ReplaceAll discards the buffer in favour of text.
func (b Buffer) ReplaceAll(text string) Buffer {
	return FromText(text)
}

// Apply performs one buffer-level edit. delete_file is not a buffer
// operation and is rejected.
func (b Buffer) Apply(e Edit) (Buffer, error) {
	switch e.Action {
	case ActionInsert:
		return b.InsertAt(e.Line, e.Content)
	case ActionDelete:
		return b.DeleteAt(e.Line, e.Content)
	case ActionWrite:
		return b.ReplaceAll(e.Content), nil
	case ActionDeleteFile:
		return b, fmt.Errorf("%w: delete_file cannot be applied to a buffer", ErrInvalidEdit)
	default:
		return b, fmt.Errorf("%w: %q", ErrUnknownAction, e.Action)
	}
}

// ApplyAll applies edits in order, stopping at the first error. The original
// buffer is never modified.
func (b Buffer) ApplyAll(edits []Edit) (Buffer, error) {
	cur := b
	for _, e := range edits {
		next, err := cur.Apply(e)
		if err != nil {
			return b, fmt.Errorf("%s %s: %w", e.FileName, e, err)
		}
		cur = next
	}
	return cur, nil
}
