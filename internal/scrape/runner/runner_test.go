package runner_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/propertyhub/lease-planner/internal/scrape"
	"github.com/propertyhub/lease-planner/internal/scrape/archive"
	"github.com/propertyhub/lease-planner/internal/scrape/backend"
	"github.com/propertyhub/lease-planner/internal/scrape/runner"
)

const invoiceRow = `<tr><td class="invoice-number">FE-9</td><td class="invoice-date">01.04.2025</td><td class="invoice-amount">250,40 lei</td><td class="invoice-actions"><a href="/f/FE-9">PDF</a></td></tr>`

var _ = Describe("scrape runner", func() {
	var (
		source *fakeSource
		be     *fakeBackend
		arch   *fakeArchive
		cfg    scrape.ProviderSelectorConfig
	)

	BeforeEach(func() {
		var err error
		cfg, err = scrape.SelectorsFor(scrape.ProviderEngieRomania)
		Expect(err).To(BeNil())

		source = &fakeSource{outcomes: map[uuid.UUID]scrape.Outcome{}}
		be = &fakeBackend{}
		arch = &fakeArchive{}
	})

	newJob := func(provider scrape.ProviderIdentity) scrape.Job {
		return scrape.Job{ID: uuid.New(), Provider: provider, Status: scrape.JobStatusInProgress, Credentials: scrape.Credentials{Username: "u", Password: "p"}}
	}

	It("completes jobs with the extracted invoices and archives them", func() {
		job := newJob(scrape.ProviderEngieRomania)
		source.pending = []scrape.Job{job}
		be.resp = &backend.Response{Data: []backend.ElementResult{{Selector: cfg.InvoiceRowSelector, Results: []backend.Match{{HTML: invoiceRow}}}}}

		n, err := runner.New(source, be, runner.WithArchive(arch)).RunOnce(context.TODO())
		Expect(err).To(BeNil())
		Expect(n).To(Equal(1))

		outcome := source.outcomes[job.ID]
		Expect(outcome.Success).To(BeTrue())
		Expect(outcome.Records).To(HaveLen(1))
		Expect(outcome.Records[0].Amount).To(Equal(int64(25040)))
		Expect(outcome.Records[0].DownloadRef).To(Equal("https://my.engie.ro/f/FE-9"))

		Expect(be.requests).To(HaveLen(1))
		Expect(be.requests[0].Login.Password).To(Equal("p"))
		Expect(arch.snapshots).To(HaveLen(1))
		Expect(arch.snapshots[0].JobID).To(Equal(job.ID))
	})

	It("reports backend failures with their reason", func() {
		job := newJob(scrape.ProviderEngieRomania)
		source.pending = []scrape.Job{job}
		be.err = &backend.Error{Reason: scrape.ReasonLoginRejected}

		_, err := runner.New(source, be, runner.WithArchive(arch)).RunOnce(context.TODO())
		Expect(err).To(BeNil())
		Expect(source.outcomes[job.ID]).To(Equal(scrape.Failed(scrape.ReasonLoginRejected)))
		Expect(arch.snapshots).To(BeEmpty())
	})

	It("fails jobs whose rows are missing", func() {
		job := newJob(scrape.ProviderEngieRomania)
		source.pending = []scrape.Job{job}
		be.resp = &backend.Response{}

		_, err := runner.New(source, be).RunOnce(context.TODO())
		Expect(err).To(BeNil())
		Expect(source.outcomes[job.ID].Reason).To(Equal(scrape.ReasonSelectorNotFound))
	})

	It("fails jobs for providers it does not know", func() {
		job := newJob("Enel")
		source.pending = []scrape.Job{job}

		_, err := runner.New(source, be).RunOnce(context.TODO())
		Expect(err).To(BeNil())
		Expect(source.outcomes[job.ID].Reason).To(Equal(scrape.ReasonUnknownProvider))
		Expect(be.requests).To(BeEmpty())
	})

	It("still succeeds when archiving fails", func() {
		job := newJob(scrape.ProviderEngieRomania)
		source.pending = []scrape.Job{job}
		be.resp = &backend.Response{Data: []backend.ElementResult{{Selector: cfg.InvoiceRowSelector, Results: []backend.Match{{HTML: invoiceRow}}}}}
		arch.err = errors.New("bucket gone")

		_, err := runner.New(source, be, runner.WithArchive(arch)).RunOnce(context.TODO())
		Expect(err).To(BeNil())
		Expect(source.outcomes[job.ID].Success).To(BeTrue())
	})

	It("processes several jobs in one round", func() {
		jobs := []scrape.Job{newJob(scrape.ProviderEngieRomania), newJob(scrape.ProviderEngieRomania), newJob(scrape.ProviderEngieRomania)}
		source.pending = jobs
		be.resp = &backend.Response{Data: []backend.ElementResult{{Selector: cfg.InvoiceRowSelector, Results: []backend.Match{{HTML: invoiceRow}}}}}

		n, err := runner.New(source, be, runner.WithWorkers(3)).RunOnce(context.TODO())
		Expect(err).To(BeNil())
		Expect(n).To(Equal(3))
		Expect(source.lastLimit).To(Equal(3))
		Expect(source.outcomes).To(HaveLen(3))
	})

	It("returns claim errors", func() {
		source.claimErr = errors.New("db down")
		_, err := runner.New(source, be).RunOnce(context.TODO())
		Expect(err).NotTo(BeNil())
	})

	It("polls until the context is cancelled", func() {
		source.pending = []scrape.Job{newJob(scrape.ProviderEngieRomania)}
		be.err = &backend.Error{Reason: scrape.ReasonNavigationFailed}

		ctx, cancel := context.WithCancel(context.TODO())
		done := make(chan error)
		go func() {
			done <- runner.New(source, be, runner.WithInterval(10*time.Millisecond)).Run(ctx)
		}()

		Eventually(func() int { return source.reported() }, 10*time.Second).Should(Equal(1))
		cancel()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
	})

	It("finishes a claimed job when cancelled during its scrape", func() {
		job := newJob(scrape.ProviderEngieRomania)
		source.pending = []scrape.Job{job}
		be.resp = &backend.Response{Data: []backend.ElementResult{{Selector: cfg.InvoiceRowSelector, Results: []backend.Match{{HTML: invoiceRow}}}}}
		be.delay = 300 * time.Millisecond
		be.started = make(chan struct{}, 1)

		ctx, cancel := context.WithCancel(context.TODO())
		done := make(chan int)
		go func() {
			n, _ := runner.New(source, be).RunOnce(ctx)
			done <- n
		}()

		Eventually(be.started, 5*time.Second).Should(Receive())
		cancel()
		Eventually(done, 5*time.Second).Should(Receive(Equal(1)))

		outcome := source.outcomes[job.ID]
		Expect(outcome.Success).To(BeTrue())
		Expect(outcome.Reason).ToNot(Equal(scrape.ReasonBackendUnavailable))
	})

	It("waits for the jobs in flight before returning from Run", func() {
		job := newJob(scrape.ProviderEngieRomania)
		source.pending = []scrape.Job{job}
		be.resp = &backend.Response{Data: []backend.ElementResult{{Selector: cfg.InvoiceRowSelector, Results: []backend.Match{{HTML: invoiceRow}}}}}
		be.delay = 300 * time.Millisecond
		be.started = make(chan struct{}, 1)

		ctx, cancel := context.WithCancel(context.TODO())
		done := make(chan error)
		go func() {
			done <- runner.New(source, be, runner.WithInterval(10*time.Millisecond)).Run(ctx)
		}()

		Eventually(be.started, 10*time.Second).Should(Receive())
		cancel()
		Eventually(done, 5*time.Second).Should(Receive(BeNil()))
		Expect(source.reported()).To(Equal(1))
		Expect(source.outcomes[job.ID].Success).To(BeTrue())
	})

	It("fails a scrape that outlives the job timeout", func() {
		job := newJob(scrape.ProviderEngieRomania)
		source.pending = []scrape.Job{job}
		be.resp = &backend.Response{}
		be.delay = 5 * time.Second

		_, err := runner.New(source, be, runner.WithJobTimeout(50*time.Millisecond)).RunOnce(context.TODO())
		Expect(err).To(BeNil())
		Expect(source.outcomes[job.ID].Success).To(BeFalse())
		Expect(source.outcomes[job.ID].Reason).To(Equal(scrape.ReasonBackendUnavailable))
	})
})

type fakeSource struct {
	mu        sync.Mutex
	pending   []scrape.Job
	outcomes  map[uuid.UUID]scrape.Outcome
	claimErr  error
	lastLimit int
}

func (f *fakeSource) ClaimPending(_ context.Context, limit int) ([]scrape.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLimit = limit
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	n := min(limit, len(f.pending))
	claimed := f.pending[:n]
	f.pending = f.pending[n:]
	return claimed, nil
}

func (f *fakeSource) ReportOutcome(_ context.Context, id uuid.UUID, outcome scrape.Outcome) (*scrape.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.outcomes[id]; ok {
		return nil, scrape.ErrInvalidTransition
	}
	f.outcomes[id] = outcome
	job, err := scrape.AdvanceJob(scrape.Job{ID: id, Status: scrape.JobStatusInProgress}, outcome)
	return &job, err
}

func (f *fakeSource) reported() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.outcomes)
}

type fakeBackend struct {
	mu       sync.Mutex
	resp     *backend.Response
	err      error
	requests []backend.Request
	// delay holds every call until it elapses or the call context ends
	delay   time.Duration
	started chan struct{}
}

func (f *fakeBackend) Scrape(ctx context.Context, req backend.Request) (*backend.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	delay, started := f.delay, f.started
	f.mu.Unlock()

	if started != nil {
		select {
		case started <- struct{}{}:
		default:
		}
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, &backend.Error{Reason: scrape.ReasonBackendUnavailable}
		case <-time.After(delay):
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

type fakeArchive struct {
	mu        sync.Mutex
	snapshots []archive.Snapshot
	err       error
}

func (f *fakeArchive) Put(_ context.Context, s archive.Snapshot) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.snapshots = append(f.snapshots, s)
	return "key", nil
}
