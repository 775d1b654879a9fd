package apply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"repoedit/internal/edit"
	apperrors "repoedit/internal/errors"
	"repoedit/internal/store"
)

// Reconciler applies one file's edits against the store.
type Reconciler struct {
	store  store.Store
	logger *slog.Logger

	// RetryOnConflict re-fetches and re-applies once when a commit hits a
	// stale version token.
	RetryOnConflict bool
}

// NewReconciler creates a Reconciler over st.
func NewReconciler(st store.Store, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Reconciler{store: st, logger: logger}
}

// Compute fetches the file, plans the edits and applies them in memory.
// Per-file problems (invalid edits, delete mismatches, deleting a missing
// file) and store failures are both returned as errors; use
// apperrors.IsPerFile(CodeOf(err)) to tell them apart.
func (r *Reconciler) Compute(ctx context.Context, file string, edits []edit.Edit) (*Computation, error) {
	for _, e := range edits {
		if e.FileName != file {
			return nil, fmt.Errorf("%w: edit for %s in batch for %s", edit.ErrInvalidEdit, e.FileName, file)
		}
	}

	// Only planned edits are validated: a delete_file discards its siblings.
	planned := edit.Plan(edits)
	for _, e := range planned {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}

	comp := &Computation{File: file, Planned: planned}

	current, err := r.store.GetFile(ctx, file)
	switch {
	case err == nil:
		comp.Existed = true
		comp.Version = current.Version
		comp.Before = current.Content
	case errors.Is(err, store.ErrNotFound):
		r.logger.Debug("File does not exist yet", "file", file)
	default:
		return nil, fmt.Errorf("fetch %s: %w", file, err)
	}

	if edit.DeletesFile(planned) {
		if !comp.Existed {
			return nil, apperrors.NewAppError(apperrors.FileNotFoundForDeletion,
				fmt.Sprintf("cannot delete %s: file not found", file), nil)
		}
		comp.Delete = true
		return comp, nil
	}

	buf, err := edit.FromText(comp.Before).ApplyAll(planned)
	if err != nil {
		return nil, err
	}
	comp.After = buf.Text()
	return comp, nil
}

// Reconcile computes and commits one file. The returned Result always
// describes the file; the error is non-nil only for failures that must abort
// the whole request (transport, auth, unexpected store errors).
func (r *Reconciler) Reconcile(ctx context.Context, file string, edits []edit.Edit) (Result, error) {
	res, err := r.reconcileOnce(ctx, file, edits)
	if err == nil || !r.RetryOnConflict || CodeOf(err) != apperrors.VersionConflict {
		return r.finish(file, res, err)
	}

	r.logger.Warn("Version conflict, retrying with fresh content", "file", file)
	res, err = r.reconcileOnce(ctx, file, edits)
	return r.finish(file, res, err)
}

func (r *Reconciler) finish(file string, res Result, err error) (Result, error) {
	if err == nil {
		return res, nil
	}
	code := CodeOf(err)
	if apperrors.IsPerFile(code) {
		r.logger.Warn("File reconciliation failed", "file", file, "code", string(code), "error", err.Error())
		return failed(file, err), nil
	}
	r.logger.Error("Store failure", "file", file, "code", string(code), "error", err.Error())
	return failed(file, err), err
}

func (r *Reconciler) reconcileOnce(ctx context.Context, file string, edits []edit.Edit) (Result, error) {
	comp, err := r.Compute(ctx, file, edits)
	if err != nil {
		return Result{}, err
	}
	return r.Commit(ctx, comp)
}

// Commit persists a computation with create, update or delete semantics.
func (r *Reconciler) Commit(ctx context.Context, comp *Computation) (Result, error) {
	res := Result{File: comp.File, Action: comp.Outcome()}

	if comp.Delete {
		commit, err := r.store.DeleteFile(ctx, store.DeleteRequest{
			Path:    comp.File,
			Version: comp.Version,
			Message: fmt.Sprintf("AI: delete file %s", comp.File),
		})
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return Result{}, apperrors.NewAppError(apperrors.FileNotFoundForDeletion,
					fmt.Sprintf("cannot delete %s: file not found", comp.File), err)
			}
			return Result{}, fmt.Errorf("delete %s: %w", comp.File, err)
		}
		res.Success = true
		res.Commit = commit.SHA
		r.logger.Info("Deleted file", "file", comp.File, "commit", commit.SHA)
		return res, nil
	}

	req := store.PutRequest{
		Path:    comp.File,
		Content: comp.After,
		Message: fmt.Sprintf("AI: %s - %s", comp.File, edit.Describe(comp.Planned)),
	}
	if comp.Existed {
		req.Version = comp.Version
	}

	commit, err := r.store.PutFile(ctx, req)
	if err != nil {
		return Result{}, fmt.Errorf("commit %s: %w", comp.File, err)
	}

	res.Success = true
	res.Version = commit.Version
	res.Commit = commit.SHA
	res.Content = comp.After
	r.logger.Info("Committed file", "file", comp.File, "action", string(res.Action), "edits", len(comp.Planned))
	return res, nil
}
