package visibility

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplj/visgate/internal/item"
)

// ErrCheckFailed marks a failed visibility check. It is the only failure kind the
// pipeline knows about; the checkers in this package wrap it so callers can use errors.Is.
var ErrCheckFailed = errors.New("visibility check failed")

// Checkf returns a formatted error wrapping ErrCheckFailed.
func Checkf(format string, a ...any) error {
	return fmt.Errorf("%w: %s", ErrCheckFailed, fmt.Sprintf(format, a...))
}

//go:generate mockgen -source=checker.go -destination=mock_checker_test.go -package=visibility

// Checker decides whether the principal carried by ctx may see it.
//
// Implementations must be safe for concurrent use and must not retain or mutate it.
// A hidden item is (false, nil); an error means the decision could not be made.
type Checker interface {
	CanSee(ctx context.Context, it item.Item) (bool, error)
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, it item.Item) (bool, error)

func (f CheckerFunc) CanSee(ctx context.Context, it item.Item) (bool, error) {
	return f(ctx, it)
}

type fixed bool

func (f fixed) CanSee(context.Context, item.Item) (bool, error) {
	return bool(f), nil
}

// AllowAll sees everything.
func AllowAll() Checker {
	return fixed(true)
}

// DenyAll sees nothing.
func DenyAll() Checker {
	return fixed(false)
}
