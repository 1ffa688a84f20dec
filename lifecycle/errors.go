package lifecycle

import "fmt"

// Business-rule failures surfaced by the engine. Handlers translate these to
// HTTP codes; anything else is treated as a store failure.
var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrUnavailable  = fmt.Errorf("no units available")
	ErrConflict     = fmt.Errorf("conflicting record exists")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrInvalidState = fmt.Errorf("invalid state for operation")
	ErrLimitReached = fmt.Errorf("employee package limit reached")
)
