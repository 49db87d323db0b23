package events

import "time"

// ContractEvent is emitted every time a transition is applied to a contract.
type ContractEvent struct {
	ContractID string    `json:"contract_id"`
	OrgID      string    `json:"org_id"`
	Actor      string    `json:"actor"`
	Role       string    `json:"role"`
	Action     string    `json:"action"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	At         time.Time `json:"at"`
}

// ScrapeJobEvent is emitted when a scrape job reaches a terminal status.
type ScrapeJobEvent struct {
	JobID    string    `json:"job_id"`
	OrgID    string    `json:"org_id"`
	Provider string    `json:"provider"`
	Status   string    `json:"status"`
	Reason   string    `json:"reason,omitempty"`
	Invoices int       `json:"invoices"`
	At       time.Time `json:"at"`
}
