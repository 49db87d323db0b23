package contract

import (
	"errors"
	"fmt"
)

// DefaultTransitions is the contract lifecycle. Declaration order is the
// order in which actions are offered.
var DefaultTransitions = []Transition{
	{From: StatusDraft, To: StatusPendingSignature, Action: ActionSendForSignature, Role: RoleLandlord},
	{From: StatusDraft, To: StatusCancelled, Action: ActionCancel, Role: RoleLandlord},
	{From: StatusPendingSignature, To: StatusActive, Action: ActionSign, Role: RoleTenant},
	{From: StatusPendingSignature, To: StatusDraft, Action: ActionReject, Role: RoleTenant},
	{From: StatusPendingSignature, To: StatusCancelled, Action: ActionCancel, Role: RoleLandlord},
	{From: StatusActive, To: StatusPendingTermination, Action: ActionRequestTermination, Role: RoleTenant},
	{From: StatusPendingTermination, To: StatusActive, Action: ActionWithdrawTermination, Role: RoleTenant},
	{From: StatusPendingTermination, To: StatusTerminated, Action: ActionConfirmTermination, Role: RoleLandlord},
}

var defaultEngine = mustNewEngine(DefaultTransitions)

// Engine evaluates role gated transitions over an immutable table.
// It holds no other state and is safe for concurrent use.
type Engine struct {
	transitions []Transition
}

// NewEngine copies and validates table.
func NewEngine(table []Transition) (*Engine, error) {
	if err := Validate(table); err != nil {
		return nil, err
	}
	return &Engine{transitions: append([]Transition(nil), table...)}, nil
}

func mustNewEngine(table []Transition) *Engine {
	e, err := NewEngine(table)
	if err != nil {
		panic(fmt.Sprintf("invalid contract transition table: %v", err))
	}
	return e
}

// Default returns the engine over DefaultTransitions.
func Default() *Engine {
	return defaultEngine
}

// Transitions returns a copy of the table.
func (e *Engine) Transitions() []Transition {
	return append([]Transition(nil), e.transitions...)
}

// AvailableTransitions returns every row leaving status for role, in table order.
// The result is empty, never nil, when nothing applies.
func (e *Engine) AvailableTransitions(status Status, role Role) []Transition {
	result := []Transition{}
	for _, t := range e.transitions {
		if t.From == status && t.Role == role {
			result = append(result, t)
		}
	}
	return result
}

// AvailableActions is AvailableTransitions reduced to the action names.
func (e *Engine) AvailableActions(status Status, role Role) []Action {
	available := e.AvailableTransitions(status, role)
	actions := make([]Action, 0, len(available))
	for _, t := range available {
		actions = append(actions, t.Action)
	}
	return actions
}

// ApplyTransition returns the status reached by applying action to status as role.
func (e *Engine) ApplyTransition(status Status, role Role, action Action) (Status, error) {
	var (
		to    Status
		found bool
	)
	for _, t := range e.transitions {
		if t.From != status || t.Role != role || t.Action != action {
			continue
		}
		if found && t.To != to {
			return "", fmt.Errorf("%w: %s as %s from %s leads to %s and %s", ErrAmbiguous, action, role, status, to, t.To)
		}
		to, found = t.To, true
	}
	if !found {
		return "", fmt.Errorf("%w: %s cannot %s a %s contract", ErrUnauthorized, role, action, status)
	}
	return to, nil
}

// IsTerminal reports whether no role can leave status.
func (e *Engine) IsTerminal(status Status) bool {
	for _, t := range e.transitions {
		if t.From == status {
			return false
		}
	}
	return true
}

// Validate checks the integrity of a transition table.
func Validate(table []Transition) error {
	var errs []error
	targets := make(map[[3]string]Status, len(table))
	for i, t := range table {
		if !t.From.Valid() {
			errs = append(errs, fmt.Errorf("row %d: %w %q", i, ErrUnknownStatus, t.From))
		}
		if !t.To.Valid() {
			errs = append(errs, fmt.Errorf("row %d: %w %q", i, ErrUnknownStatus, t.To))
		}
		if !t.Role.Valid() {
			errs = append(errs, fmt.Errorf("row %d: %w %q", i, ErrUnknownRole, t.Role))
		}
		if !t.Action.Valid() {
			errs = append(errs, fmt.Errorf("row %d: %w %q", i, ErrUnknownAction, t.Action))
		}
		if t.From == t.To {
			errs = append(errs, fmt.Errorf("row %d: %w: %s", i, ErrSelfLoop, t))
		}

		key := [3]string{string(t.From), string(t.Role), string(t.Action)}
		if prev, ok := targets[key]; ok && prev != t.To {
			errs = append(errs, fmt.Errorf("row %d: %w: %s also leads to %s", i, ErrAmbiguous, t, prev))
			continue
		}
		targets[key] = t.To
	}
	return errors.Join(errs...)
}
