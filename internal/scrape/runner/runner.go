package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lthibault/jitterbug/v2"
	"github.com/propertyhub/lease-planner/internal/scrape"
	"github.com/propertyhub/lease-planner/internal/scrape/archive"
	"github.com/propertyhub/lease-planner/internal/scrape/backend"
	"github.com/propertyhub/lease-planner/internal/scrape/extract"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultInterval = 30 * time.Second
	defaultWorkers  = 2
	jitterStdev     = 2 * time.Second
	// bounds a claimed job once the poll loop no longer does
	defaultJobTimeout = 5 * time.Minute
	reportTimeout     = 10 * time.Second
)

// JobSource hands out pending jobs and records their single outcome.
type JobSource interface {
	ClaimPending(ctx context.Context, limit int) ([]scrape.Job, error)
	ReportOutcome(ctx context.Context, id uuid.UUID, outcome scrape.Outcome) (*scrape.Job, error)
}

type Backend interface {
	Scrape(ctx context.Context, req backend.Request) (*backend.Response, error)
}

type Archive interface {
	Put(ctx context.Context, s archive.Snapshot) (string, error)
}

type RunnerOpts func(r *Runner)

// Runner polls for pending scrape jobs and drives them through the automation
// backend. Every claimed job gets exactly one outcome. Retrying a failed job is
// left to whoever submits a new one.
type Runner struct {
	source     JobSource
	backend    Backend
	registry   *scrape.Registry
	archive    Archive
	interval   time.Duration
	workers    int
	jobTimeout time.Duration
}

func New(source JobSource, b Backend, opts ...RunnerOpts) *Runner {
	r := &Runner{
		source:     source,
		backend:    b,
		registry:   scrape.DefaultRegistry(),
		interval:   defaultInterval,
		workers:    defaultWorkers,
		jobTimeout: defaultJobTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func WithInterval(d time.Duration) RunnerOpts {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithWorkers(n int) RunnerOpts {
	return func(r *Runner) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithJobTimeout bounds the scrape of a single claimed job.
func WithJobTimeout(d time.Duration) RunnerOpts {
	return func(r *Runner) {
		if d > 0 {
			r.jobTimeout = d
		}
	}
}

func WithRegistry(reg *scrape.Registry) RunnerOpts {
	return func(r *Runner) {
		r.registry = reg
	}
}

// WithArchive keeps a snapshot of every successful scrape.
func WithArchive(a Archive) RunnerOpts {
	return func(r *Runner) {
		r.archive = a
	}
}

// Run polls until ctx is cancelled. Cancelling stops claiming new jobs; Run
// returns once the jobs already claimed have reported their outcome.
func (r *Runner) Run(ctx context.Context) error {
	zap.S().Named("scrape_runner").Infof("scrape runner started: interval %s, workers %d", r.interval, r.workers)

	ticker := jitterbug.New(r.interval, &jitterbug.Norm{Stdev: jitterStdev, Mean: 0})
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.S().Named("scrape_runner").Info("scrape runner stopped")
			return nil
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			continue
		}

		if _, err := r.RunOnce(ctx); err != nil {
			zap.S().Named("scrape_runner").Errorw("failed to claim scrape jobs", "error", err)
		}
	}
}

// RunOnce claims up to one job per worker and processes them concurrently.
// ctx only governs the claim: a claimed job is scraped and reported even if ctx
// is cancelled meanwhile. It returns the number of jobs processed.
func (r *Runner) RunOnce(ctx context.Context) (int, error) {
	jobs, err := r.source.ClaimPending(ctx, r.workers)
	if err != nil {
		return 0, err
	}

	jobCtx := context.WithoutCancel(ctx)
	g := new(errgroup.Group)
	g.SetLimit(r.workers)
	for _, job := range jobs {
		g.Go(func() error {
			r.process(jobCtx, job)
			return nil
		})
	}
	return len(jobs), g.Wait()
}

func (r *Runner) process(ctx context.Context, job scrape.Job) {
	logger := zap.S().Named("scrape_runner").With("job_id", job.ID, "provider", job.Provider)

	scrapeCtx, cancelScrape := context.WithTimeout(ctx, r.jobTimeout)
	outcome := r.scrape(scrapeCtx, job)
	cancelScrape()
	if !outcome.Success {
		logger.Warnw("scrape failed", "reason", outcome.Reason)
	}

	reportCtx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()

	done, err := r.source.ReportOutcome(reportCtx, job.ID, outcome)
	if err != nil {
		logger.Errorw("failed to report scrape outcome", "error", err)
		return
	}
	logger.Infow("scrape job finished", "status", done.Status, "records", len(done.Records))
}

func (r *Runner) scrape(ctx context.Context, job scrape.Job) scrape.Outcome {
	cfg, err := r.registry.SelectorsFor(job.Provider)
	if err != nil {
		return scrape.Failed(scrape.ReasonUnknownProvider)
	}

	resp, err := r.backend.Scrape(ctx, backend.NewInvoiceRequest(cfg, job.Credentials))
	if err != nil {
		zap.S().Named("scrape_runner").Debugw("backend call failed", "job_id", job.ID, "error", err)
		return scrape.Failed(backend.ReasonOf(err))
	}

	rows := resp.Results(cfg.InvoiceRowSelector)
	records, err := extract.Invoices(cfg, rows)
	if err != nil {
		zap.S().Named("scrape_runner").Debugw("extraction failed", "job_id", job.ID, "error", err)
		return scrape.Failed(extract.Reason(err))
	}

	if r.archive != nil {
		key, err := r.archive.Put(ctx, archive.Snapshot{JobID: job.ID, Provider: job.Provider, Rows: rows, Records: records})
		if err != nil {
			zap.S().Named("scrape_runner").Warnw("failed to archive scrape snapshot", "job_id", job.ID, "error", err)
		} else {
			zap.S().Named("scrape_runner").Debugw("scrape snapshot archived", "job_id", job.ID, "key", key)
		}
	}

	return scrape.Succeeded(records)
}
