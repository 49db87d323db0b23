package backend

import (
	"errors"
	"fmt"

	"github.com/propertyhub/lease-planner/internal/scrape"
)

// Error is a failed backend call. Reason is one of the scrape reason codes.
type Error struct {
	Reason     string
	StatusCode int
	err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("automation backend: %s (status %d): %v", e.Reason, e.StatusCode, e.err)
	}
	return fmt.Sprintf("automation backend: %s: %v", e.Reason, e.err)
}

func (e *Error) Unwrap() error {
	return e.err
}

// ReasonOf returns the failure reason carried by err.
func ReasonOf(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return be.Reason
	}
	return scrape.ReasonUnknown
}
