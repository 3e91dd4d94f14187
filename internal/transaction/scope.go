// Package transaction defines the unit-of-work boundary used by the order
// commit protocol. Storage adapters implement Scope and carry their
// transaction handle in the context passed to fn.
package transaction

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrAborted is returned when the backing store aborts a unit of work, for
// example on a write conflict, deadlock or timeout. No effects of the unit of
// work survive; the whole operation is safe to retry.
var ErrAborted = errors.New("unit of work aborted")

// ErrNested is returned when Execute is called with a context that already
// carries a unit of work from the same scope.
var ErrNested = errors.New("nested unit of work")

// Scope manages the lifecycle of a unit of work.
type Scope interface {
	// Execute runs fn within a unit of work. The unit of work is committed if
	// fn returns nil and rolled back otherwise. The ctx passed to fn carries
	// the unit of work for repositories to use.
	Execute(ctx context.Context, fn func(ctx context.Context) error) error
}

// ExecuteWithResult runs fn within a unit of work and returns its result.
func ExecuteWithResult[T any](ctx context.Context, scope Scope, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := scope.Execute(ctx, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	return result, err
}

// IsAborted reports whether err is a retryable unit of work abort.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}
