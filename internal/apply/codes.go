package apply

import (
	"errors"

	"repoedit/internal/edit"
	apperrors "repoedit/internal/errors"
	"repoedit/internal/store"
)

// CodeOf classifies an error from the edit engine or the store. An AppError
// anywhere in the chain wins; otherwise the edit and store sentinels are
// matched. Unknown errors are internal.
func CodeOf(err error) apperrors.ErrorCode {
	if err == nil {
		return ""
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	switch {
	case errors.Is(err, edit.ErrDeleteMismatch):
		return apperrors.DeleteMismatch
	case errors.Is(err, edit.ErrInvalidEdit),
		errors.Is(err, edit.ErrUnknownAction),
		errors.Is(err, edit.ErrInvalidLine),
		errors.Is(err, store.ErrRejected):
		return apperrors.InvalidEdit
	case errors.Is(err, store.ErrVersionConflict):
		return apperrors.VersionConflict
	case errors.Is(err, store.ErrNotFound):
		return apperrors.NotFound
	case errors.Is(err, store.ErrTransport):
		return apperrors.TransportFailure
	default:
		return apperrors.InternalError
	}
}
