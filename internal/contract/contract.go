package contract

import "fmt"

// Status is the lifecycle state of a rental contract.
type Status string

const (
	StatusDraft              Status = "draft"
	StatusPendingSignature   Status = "pending_signature"
	StatusActive             Status = "active"
	StatusPendingTermination Status = "pending_termination"
	StatusTerminated         Status = "terminated"
	StatusCancelled          Status = "cancelled"
)

// InitialStatus is the status of a newly created contract.
const InitialStatus = StatusDraft

var statuses = []Status{
	StatusDraft,
	StatusPendingSignature,
	StatusActive,
	StatusPendingTermination,
	StatusTerminated,
	StatusCancelled,
}

// Role is the party acting on a contract. It is resolved by the caller.
type Role string

const (
	RoleLandlord Role = "landlord"
	RoleTenant   Role = "tenant"
)

var roles = []Role{RoleLandlord, RoleTenant}

type Action string

const (
	ActionSendForSignature    Action = "send_for_signature"
	ActionCancel              Action = "cancel"
	ActionSign                Action = "sign"
	ActionReject              Action = "reject"
	ActionRequestTermination  Action = "request_termination"
	ActionWithdrawTermination Action = "withdraw_termination"
	ActionConfirmTermination  Action = "confirm_termination"
)

var labels = map[Action]string{
	ActionSendForSignature:    "Send for signature",
	ActionCancel:              "Cancel contract",
	ActionSign:                "Sign contract",
	ActionReject:              "Request changes",
	ActionRequestTermination:  "Request termination",
	ActionWithdrawTermination: "Withdraw termination request",
	ActionConfirmTermination:  "Confirm termination",
}

// Transition is a permitted (From, Role, Action) -> To mapping.
type Transition struct {
	From   Status `json:"from"`
	To     Status `json:"to"`
	Action Action `json:"action"`
	Role   Role   `json:"role"`
}

func (t Transition) String() string {
	return fmt.Sprintf("%s --%s(%s)--> %s", t.From, t.Action, t.Role, t.To)
}

// Statuses returns every known status in lifecycle order.
func Statuses() []Status {
	return append([]Status(nil), statuses...)
}

// Label is the display label of an action. Unknown actions are returned verbatim.
func Label(a Action) string {
	if l, ok := labels[a]; ok {
		return l
	}
	return string(a)
}

func (s Status) Valid() bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func (r Role) Valid() bool {
	for _, rl := range roles {
		if rl == r {
			return true
		}
	}
	return false
}

func (a Action) Valid() bool {
	_, ok := labels[a]
	return ok
}

func ParseStatus(s string) (Status, error) {
	if st := Status(s); st.Valid() {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func ParseAction(s string) (Action, error) {
	if a := Action(s); a.Valid() {
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
}

func ParseRole(s string) (Role, error) {
	if r := Role(s); r.Valid() {
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
}
