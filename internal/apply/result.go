// Package apply turns planned edits into commits against a content store.
package apply

import (
	"repoedit/internal/edit"
	apperrors "repoedit/internal/errors"
	"repoedit/internal/store"
)

// Outcome is what happened to a file.
type Outcome string

const (
	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeDeleted Outcome = "deleted"
)

// Result is the per-file report returned to the caller.
type Result struct {
	File    string              `json:"file"`
	Success bool                `json:"success"`
	Action  Outcome             `json:"action,omitempty"`
	Error   string              `json:"error,omitempty"`
	Code    apperrors.ErrorCode `json:"code,omitempty"`
	Version store.Version       `json:"version,omitempty"`
	Commit  string              `json:"commit,omitempty"`
	// Content is the committed text; omitted from API responses.
	Content string `json:"-"`
}

func failed(file string, err error) Result {
	return Result{
		File:  file,
		Error: err.Error(),
		Code:  CodeOf(err),
	}
}

// Computation is the outcome of applying planned edits in memory, before
// anything is committed.
type Computation struct {
	File    string
	Planned []edit.Edit
	Existed bool
	Version store.Version
	Before  string
	After   string
	// Delete is set when the plan removes the whole file.
	Delete bool
}

// Outcome reports the action committing this computation will take.
func (c *Computation) Outcome() Outcome {
	switch {
	case c.Delete:
		return OutcomeDeleted
	case c.Existed:
		return OutcomeUpdated
	default:
		return OutcomeCreated
	}
}

// Summary counts results by success.
type Summary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Summarize counts successes and failures.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}
