package contract

import "errors"

var (
	// ErrUnauthorized is returned when no transition matches (status, role, action).
	ErrUnauthorized = errors.New("transition not permitted")
	// ErrAmbiguous means the table maps one (status, role, action) to several statuses.
	// It is a configuration bug.
	ErrAmbiguous = errors.New("ambiguous transition")

	ErrUnknownStatus = errors.New("unknown contract status")
	ErrUnknownAction = errors.New("unknown contract action")
	ErrUnknownRole   = errors.New("unknown contract role")
	ErrSelfLoop      = errors.New("transition does not change status")
)
