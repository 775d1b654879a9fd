package apply

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"repoedit/internal/edit"
	apperrors "repoedit/internal/errors"
	"repoedit/internal/preview"
)

// Journal records per-file results. Failures to record are logged and
// never affect the batch.
type Journal interface {
	Record(ctx context.Context, batchID string, res Result) error
}

// Orchestrator applies a flat, cross-file edit list one file at a time.
type Orchestrator struct {
	reconciler *Reconciler
	journal    Journal
	logger     *slog.Logger
}

// NewOrchestrator creates an Orchestrator. journal may be nil.
func NewOrchestrator(reconciler *Reconciler, journal Journal, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{reconciler: reconciler, journal: journal, logger: logger}
}

// Apply groups edits by file and reconciles each file in order of first
// appearance. A failing file does not stop the others and nothing is rolled
// back. A store transport failure stops the run; the results gathered so far
// (including the failing file) are returned alongside the error.
func (o *Orchestrator) Apply(ctx context.Context, edits []edit.Edit) ([]Result, error) {
	batchID := uuid.New().String()
	batches := edit.GroupByFile(edits)
	results := make([]Result, 0, len(batches))

	o.logger.Info("Applying edit batch", "batch", batchID, "files", len(batches), "edits", len(edits))

	for _, b := range batches {
		res, err := o.reconciler.Reconcile(ctx, b.FileName, b.Edits)
		results = append(results, res)
		o.record(ctx, batchID, res)
		if err != nil {
			o.logger.Error("Edit batch aborted", "batch", batchID, "file", b.FileName, "error", err.Error())
			return results, err
		}
	}

	s := Summarize(results)
	o.logger.Info("Edit batch finished", "batch", batchID, "succeeded", s.Succeeded, "failed", s.Failed)
	return results, nil
}

func (o *Orchestrator) record(ctx context.Context, batchID string, res Result) {
	if o.journal == nil {
		return
	}
	if err := o.journal.Record(ctx, batchID, res); err != nil {
		o.logger.Warn("Failed to journal result", "batch", batchID, "file", res.File, "error", err.Error())
	}
}

// Preview describes what Apply would do to one file, without committing.
type Preview struct {
	File   string              `json:"file"`
	Action Outcome             `json:"action,omitempty"`
	Before string              `json:"before"`
	After  string              `json:"after"`
	Diff   string              `json:"diff"`
	Error  string              `json:"error,omitempty"`
	Code   apperrors.ErrorCode `json:"code,omitempty"`
}

// Preview computes every file's new content and a unified diff. Per-file
// problems are reported inline; a store transport failure aborts.
func (o *Orchestrator) Preview(ctx context.Context, edits []edit.Edit) ([]Preview, error) {
	batches := edit.GroupByFile(edits)
	previews := make([]Preview, 0, len(batches))

	for _, b := range batches {
		comp, err := o.reconciler.Compute(ctx, b.FileName, b.Edits)
		if err != nil {
			code := CodeOf(err)
			previews = append(previews, Preview{File: b.FileName, Error: err.Error(), Code: code})
			if !apperrors.IsPerFile(code) {
				return previews, err
			}
			continue
		}

		diff, err := preview.UnifiedDiff(comp.File, comp.Before, comp.After)
		if err != nil {
			return previews, err
		}
		previews = append(previews, Preview{
			File:   comp.File,
			Action: comp.Outcome(),
			Before: comp.Before,
			After:  comp.After,
			Diff:   diff,
		})
	}
	return previews, nil
}
