package dnsbench

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks fatal configuration problems, like an unknown backend or an unreadable input file.
	// They are reported before any lookup is issued and before the store is touched.
	ErrConfiguration = errors.New("configuration error")

	// ErrStore marks failures to open, read, write or commit the result store.
	ErrStore = errors.New("store error")
)

// ResolutionError is a failure of a single lookup. The engine records it as a failed
// ResultRecord and continues with the next lookup.
type ResolutionError struct {
	Server string
	Domain string
	Status Status
	Err    error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolving %s via %s: %s: %v", e.Domain, e.Server, e.Status, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
