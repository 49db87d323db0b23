package scrape

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Failure reason codes reported by runners.
const (
	ReasonNavigationFailed   = "navigation_failed"
	ReasonLoginRejected      = "login_rejected"
	ReasonSelectorNotFound   = "selector_not_found"
	ReasonBackendUnavailable = "backend_unavailable"
	ReasonExtractionFailed   = "extraction_failed"
	ReasonUnknownProvider    = "unknown_provider"
	ReasonUnknown            = "unknown"
)

var reasons = map[string]struct{}{
	ReasonNavigationFailed:   {},
	ReasonLoginRejected:      {},
	ReasonSelectorNotFound:   {},
	ReasonBackendUnavailable: {},
	ReasonExtractionFailed:   {},
	ReasonUnknownProvider:    {},
	ReasonUnknown:            {},
}

// IsReason reports whether code is a known failure reason.
func IsReason(code string) bool {
	_, ok := reasons[code]
	return ok
}

func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// CanTransitionTo enforces the one way lifecycle:
//
//	pending -> in_progress -> completed | failed
//	pending -> completed | failed
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobStatusPending:
		return next == JobStatusInProgress || next.IsTerminal()
	case JobStatusInProgress:
		return next.IsTerminal()
	default:
		return false
	}
}

func ParseJobStatus(s string) (JobStatus, error) {
	switch st := JobStatus(s); st {
	case JobStatusPending, JobStatusInProgress, JobStatusCompleted, JobStatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// Credentials are handed to the automation backend and never serialized.
type Credentials struct {
	Username string `json:"-"`
	Password string `json:"-"`
}

func (c Credentials) String() string {
	return fmt.Sprintf("{%s ****}", c.Username)
}

func (c Credentials) Empty() bool {
	return c.Username == "" && c.Password == ""
}

// InvoiceRecord is one invoice row extracted from a provider portal.
// Amount is expressed in minor units of Currency.
type InvoiceRecord struct {
	Number      string    `json:"number"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Date        time.Time `json:"date"`
	DownloadRef string    `json:"downloadRef,omitempty"`
}

type Job struct {
	ID          uuid.UUID        `json:"id"`
	Provider    ProviderIdentity `json:"provider"`
	Status      JobStatus        `json:"status"`
	Reason      string           `json:"reason,omitempty"`
	Records     []InvoiceRecord  `json:"records,omitempty"`
	Credentials Credentials      `json:"-"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Outcome is the single result a runner reports for a job.
type Outcome struct {
	Success bool
	Records []InvoiceRecord
	Reason  string
}

func Succeeded(records []InvoiceRecord) Outcome {
	return Outcome{Success: true, Records: records}
}

// Failed records reason. An empty reason becomes ReasonUnknown.
func Failed(reason string) Outcome {
	if reason == "" {
		reason = ReasonUnknown
	}
	return Outcome{Reason: reason}
}

var now = func() time.Time { return time.Now().UTC() }

// SubmitJob creates a pending job for a registered provider. It never waits for the scrape.
func SubmitJob(provider ProviderIdentity, credentials Credentials) (Job, error) {
	return DefaultRegistry().SubmitJob(provider, credentials)
}

func (r *Registry) SubmitJob(provider ProviderIdentity, credentials Credentials) (Job, error) {
	if _, err := r.SelectorsFor(provider); err != nil {
		return Job{}, err
	}
	ts := now()
	return Job{
		ID:          uuid.New(),
		Provider:    provider,
		Status:      JobStatusPending,
		Credentials: credentials,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}, nil
}

// StartJob marks a pending job as picked up by a runner.
func StartJob(job Job) (Job, error) {
	if !job.Status.CanTransitionTo(JobStatusInProgress) {
		return job, fmt.Errorf("%w: cannot start a %s job", ErrInvalidTransition, job.Status)
	}
	job.Status = JobStatusInProgress
	job.UpdatedAt = now()
	return job, nil
}

// AdvanceJob records the outcome of a job. Completed and failed jobs are immutable.
// Credentials are dropped once the job is terminal.
func AdvanceJob(job Job, outcome Outcome) (Job, error) {
	next := JobStatusFailed
	if outcome.Success {
		next = JobStatusCompleted
	}
	if !job.Status.CanTransitionTo(next) {
		return job, fmt.Errorf("%w: job %s is already %s", ErrInvalidTransition, job.ID, job.Status)
	}

	job.Status = next
	job.UpdatedAt = now()
	job.Credentials = Credentials{}
	if outcome.Success {
		job.Records = append([]InvoiceRecord(nil), outcome.Records...)
		job.Reason = ""
		return job, nil
	}

	job.Records = nil
	job.Reason = outcome.Reason
	if job.Reason == "" {
		job.Reason = ReasonUnknown
	}
	return job, nil
}
