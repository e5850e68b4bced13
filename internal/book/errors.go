package book

import (
	"errors"
	"fmt"
)

var (
	// ErrBadRequest marks caller-supplied arguments that are invalid. It is
	// returned before any store call is made.
	ErrBadRequest = errors.New("bad request")

	// ErrStoreUnavailable marks failures reported by the document store or the
	// connection to it. The driver error stays in the chain.
	ErrStoreUnavailable = errors.New("store unavailable")
)

func badRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// storeErr wraps err as ErrStoreUnavailable unless it already carries one of
// the two kinds.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBadRequest) || errors.Is(err, ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
