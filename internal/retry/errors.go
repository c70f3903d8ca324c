package retry

import (
	"fmt"

	"github.com/phrazzld/coach-api/internal/generation"
)

// ExhaustedError is returned when every attempt produced an unusable
// response. It carries the reason and snippet of the last failure.
type ExhaustedError struct {
	Operation string
	Attempts  int
	Reason    string
	Snippet   string
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %d attempts for %s, last issue: %s",
		generation.ErrExhaustedRetries, e.Attempts, e.Operation, e.Reason)
}

// Unwrap returns generation.ErrExhaustedRetries.
func (e *ExhaustedError) Unwrap() error {
	return generation.ErrExhaustedRetries
}
