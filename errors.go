package bitsvg

import "github.com/pkg/errors"

var (
	// ErrInsufficientGeometry is returned when a polyline has fewer points than
	// an operation needs. The polyline is skipped, the image is not aborted.
	ErrInsufficientGeometry = errors.New("insufficient points")

	// ErrSingularFit marks a least-squares system that could not be inverted.
	// It is recovered locally by a fallback and never returned to callers.
	ErrSingularFit = errors.New("singular least-squares system")

	// ErrSegmentBudgetExhausted reports that a curve was accepted above the
	// error tolerance because the segment budget ran out. It is a soft warning.
	ErrSegmentBudgetExhausted = errors.New("segment budget exhausted")

	// ErrRenderFailure is returned when the QA renderer cannot rasterize a document.
	ErrRenderFailure = errors.New("could not render document")

	// ErrCacheIO wraps failures of the durable trace store.
	ErrCacheIO = errors.New("trace store unavailable")
)

// storeError reports a failure of the durable trace store. It matches
// ErrCacheIO and keeps the store's own error as its cause.
type storeError struct {
	err error
}

func wrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	return &storeError{err: err}
}

func (e *storeError) Error() string { return ErrCacheIO.Error() + ": " + e.err.Error() }

func (e *storeError) Cause() error { return e.err }

func (e *storeError) Unwrap() error { return e.err }

func (e *storeError) Is(target error) bool { return target == ErrCacheIO }
