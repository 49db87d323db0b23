package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/propertyhub/lease-planner/internal/auth"
	"github.com/propertyhub/lease-planner/internal/events"
	"github.com/propertyhub/lease-planner/internal/scrape"
	"github.com/propertyhub/lease-planner/internal/service/mappers"
	"github.com/propertyhub/lease-planner/internal/store"
	"github.com/propertyhub/lease-planner/internal/store/model"
	"github.com/propertyhub/lease-planner/pkg/log"
	"github.com/propertyhub/lease-planner/pkg/metrics"
	"github.com/propertyhub/lease-planner/pkg/secrets"
	"go.uber.org/zap"
)

type ScrapeService struct {
	store       store.Store
	registry    *scrape.Registry
	secrets     *secrets.Box
	eventWriter EventWriter
	logger      *log.StructuredLogger
}

// NewScrapeService seals credentials with a per process key until WithSecrets
// sets a persistent one.
func NewScrapeService(store store.Store, ew EventWriter) *ScrapeService {
	return &ScrapeService{
		store:       store,
		registry:    scrape.DefaultRegistry(),
		secrets:     secrets.NewEphemeralBox(),
		eventWriter: eventWriterOrNoop(ew),
		logger:      log.NewDebugLogger("scrape_service"),
	}
}

func (s *ScrapeService) WithRegistry(r *scrape.Registry) *ScrapeService {
	s.registry = r
	return s
}

func (s *ScrapeService) WithSecrets(b *secrets.Box) *ScrapeService {
	s.secrets = b
	return s
}

func (s *ScrapeService) Providers() []scrape.ProviderIdentity {
	return s.registry.Providers()
}

func (s *ScrapeService) Selectors(provider string) (scrape.ProviderSelectorConfig, error) {
	cfg, err := s.registry.SelectorsFor(scrape.ProviderIdentity(provider))
	if err != nil {
		return scrape.ProviderSelectorConfig{}, NewErrProviderNotFound(provider)
	}
	return cfg, nil
}

// SubmitJob stores a pending job. The scrape itself is left to a runner.
func (s *ScrapeService) SubmitJob(ctx context.Context, user auth.User, provider string, credentials scrape.Credentials) (*scrape.Job, error) {
	tracer := s.logger.WithContext(ctx).Operation("submit_scrape_job").
		WithString("provider", provider).
		WithString("user", user.Username).
		Build()

	job, err := s.registry.SubmitJob(scrape.ProviderIdentity(provider), credentials)
	if err != nil {
		if errors.Is(err, scrape.ErrUnknownProvider) {
			return nil, NewErrProviderNotFound(provider)
		}
		return nil, err
	}

	m := mappers.ScrapeJobToModel(job, user)
	if m.CredentialSecret, err = s.secrets.Seal(job.Credentials.Password, job.ID[:]); err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	if _, err := s.store.ScrapeJob().Create(ctx, m); err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	tracer.Success().WithUUID("job_id", job.ID).Log()
	job.Credentials = scrape.Credentials{}
	return &job, nil
}

func (s *ScrapeService) GetJob(ctx context.Context, user auth.User, id uuid.UUID) (*scrape.Job, error) {
	m, err := s.store.ScrapeJob().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrScrapeJobNotFound(id)
		}
		return nil, err
	}

	if m.Username != user.Username {
		return nil, NewErrScrapeJobAccessForbidden(id, user.Username)
	}

	invoices, err := s.store.Invoice().ListByJob(ctx, id)
	if err != nil {
		return nil, err
	}

	job, err := mappers.ScrapeJobFromModel(*m, invoices)
	if err != nil {
		return nil, err
	}
	job.Credentials = scrape.Credentials{}
	return &job, nil
}

func (s *ScrapeService) ListJobs(ctx context.Context, user auth.User) ([]scrape.Job, error) {
	models, err := s.store.ScrapeJob().List(ctx, store.NewScrapeJobQueryFilter().ByUsername(user.Username), nil)
	if err != nil {
		return nil, err
	}

	jobs := make([]scrape.Job, 0, len(models))
	for _, m := range models {
		job, err := mappers.ScrapeJobFromModel(m, nil)
		if err != nil {
			return nil, err
		}
		job.Credentials = scrape.Credentials{}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *ScrapeService) ListInvoices(ctx context.Context, user auth.User, id uuid.UUID) ([]scrape.InvoiceRecord, error) {
	job, err := s.GetJob(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if job.Records == nil {
		return []scrape.InvoiceRecord{}, nil
	}
	return job.Records, nil
}

// StartJob marks a pending job as in progress. The returned job carries the
// credentials the runner needs.
func (s *ScrapeService) StartJob(ctx context.Context, id uuid.UUID) (*scrape.Job, error) {
	m, err := s.store.ScrapeJob().Claim(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrRecordNotFound):
			return nil, NewErrScrapeJobNotFound(id)
		case errors.Is(err, store.ErrStaleStatus):
			current, gerr := s.store.ScrapeJob().Get(ctx, id)
			if gerr != nil {
				return nil, gerr
			}
			return nil, NewErrJobNotPending(id, current.Status)
		}
		return nil, err
	}

	job, err := s.runnableJob(*m)
	if err != nil {
		s.failUnreadable(ctx, m.ID, err)
		return nil, err
	}
	return &job, nil
}

// ClaimPending starts up to limit pending jobs, oldest first. A job whose
// credentials cannot be opened is failed instead of handed out.
func (s *ScrapeService) ClaimPending(ctx context.Context, limit int) ([]scrape.Job, error) {
	models, err := s.store.ScrapeJob().ClaimPending(ctx, limit)
	if err != nil {
		return nil, err
	}

	jobs := make([]scrape.Job, 0, len(models))
	for _, m := range models {
		job, err := s.runnableJob(m)
		if err != nil {
			s.failUnreadable(ctx, m.ID, err)
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// runnableJob rebuilds a claimed job with its credentials in clear.
func (s *ScrapeService) runnableJob(m model.ScrapeJob) (scrape.Job, error) {
	job, err := mappers.ScrapeJobFromModel(m, nil)
	if err != nil {
		return scrape.Job{}, err
	}
	if job.Credentials.Password, err = s.secrets.Open(m.CredentialSecret, m.ID[:]); err != nil {
		return scrape.Job{}, err
	}
	return job, nil
}

func (s *ScrapeService) failUnreadable(ctx context.Context, id uuid.UUID, cause error) {
	s.logger.WithContext(ctx).Operation("claim_scrape_job").WithUUID("job_id", id).Build().
		Error(cause).Log()
	if _, err := s.ReportOutcome(ctx, id, scrape.Failed(scrape.ReasonUnknown)); err != nil {
		zap.S().Named("scrape_service").Errorw("failed to fail unreadable job", "job_id", id, "error", err)
	}
}

// ReportOutcomeAs records the outcome on behalf of user. Only principals
// holding the scrape runner scope report outcomes; the user who submitted the
// job cannot complete it.
func (s *ScrapeService) ReportOutcomeAs(ctx context.Context, user auth.User, id uuid.UUID, outcome scrape.Outcome) (*scrape.Job, error) {
	if !user.HasScope(auth.ScrapeRunnerScope) {
		return nil, NewErrOutcomeForbidden(id, user.Username)
	}
	return s.ReportOutcome(ctx, id, outcome)
}

// ReportOutcome moves the job to completed or failed and stores its invoices.
// A job accepts a single outcome; later reports fail with ErrInvalidJobTransition.
func (s *ScrapeService) ReportOutcome(ctx context.Context, id uuid.UUID, outcome scrape.Outcome) (*scrape.Job, error) {
	tracer := s.logger.WithContext(ctx).Operation("report_scrape_outcome").
		WithUUID("job_id", id).
		WithBool("success", outcome.Success).
		Build()

	ctx, err := s.store.NewTransactionContext(ctx)
	if err != nil {
		return nil, err
	}

	m, err := s.store.ScrapeJob().Get(ctx, id)
	if err != nil {
		_, _ = store.Rollback(ctx)
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrScrapeJobNotFound(id)
		}
		return nil, err
	}

	job, err := mappers.ScrapeJobFromModel(*m, nil)
	if err != nil {
		_, _ = store.Rollback(ctx)
		return nil, err
	}

	from := job.Status
	done, err := scrape.AdvanceJob(job, outcome)
	if err != nil {
		_, _ = store.Rollback(ctx)
		if errors.Is(err, scrape.ErrInvalidTransition) {
			return nil, NewErrJobAlreadyFinished(id, string(from))
		}
		return nil, err
	}

	finished, err := s.store.ScrapeJob().Finish(ctx, id, []string{string(from)}, string(done.Status), done.Reason)
	if err != nil {
		_, _ = store.Rollback(ctx)
		if errors.Is(err, store.ErrStaleStatus) {
			return nil, NewErrJobAlreadyFinished(id, "finished")
		}
		tracer.Error(err).Log()
		return nil, err
	}

	if err := s.store.Invoice().CreateBatch(ctx, id, mappers.InvoicesFromRecords(done.Records)); err != nil {
		_, _ = store.Rollback(ctx)
		tracer.Error(err).Log()
		return nil, err
	}

	// repeated invoice numbers are stored once, the reply mirrors the store
	stored, err := s.store.Invoice().ListByJob(ctx, id)
	if err != nil {
		_, _ = store.Rollback(ctx)
		tracer.Error(err).Log()
		return nil, err
	}
	done.Records = nil
	if len(stored) > 0 {
		done.Records = mappers.RecordsFromInvoices(stored)
	}

	if _, err := store.Commit(ctx); err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	metrics.IncreaseScrapeJobsMetric(string(done.Status), done.Reason)
	if err := s.eventWriter.WriteScrapeJobEvent(ctx, events.ScrapeJobEvent{
		JobID:    id.String(),
		OrgID:    finished.OrgID,
		Provider: finished.Provider,
		Status:   string(done.Status),
		Reason:   done.Reason,
		Invoices: len(done.Records),
		At:       finished.UpdatedAt,
	}); err != nil {
		tracer.Step("event_dropped").WithParam("error", err).Log()
	}

	tracer.Success().WithString("status", string(done.Status)).WithInt("records", len(done.Records)).Log()
	done.UpdatedAt = finished.UpdatedAt
	return &done, nil
}
