package service_test

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/propertyhub/lease-planner/internal/auth"
	"github.com/propertyhub/lease-planner/internal/config"
	"github.com/propertyhub/lease-planner/internal/events"
	"github.com/propertyhub/lease-planner/internal/scrape"
	"github.com/propertyhub/lease-planner/internal/service"
	"github.com/propertyhub/lease-planner/internal/store"
	"github.com/propertyhub/lease-planner/pkg/secrets"
	"gorm.io/gorm"
)

var creds = scrape.Credentials{Username: "client@example.ro", Password: "hunter2"}

func invoiceRecords() []scrape.InvoiceRecord {
	return []scrape.InvoiceRecord{
		{Number: "FE-1", Amount: 12345, Currency: "RON", Date: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), DownloadRef: "https://my.engie.ro/f/FE-1"},
		{Number: "FE-2", Amount: 9900, Currency: "RON", Date: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)},
	}
}

var _ = Describe("scrape service", Ordered, func() {
	var (
		s      store.Store
		gormdb *gorm.DB
		user   = auth.User{Username: "alice", Organization: "acme"}
		runner = auth.User{Username: "scrape-runner", Organization: "ops", Scopes: []string{auth.ScrapeRunnerScope}}
	)

	BeforeAll(func() {
		db, err := store.InitDB(config.NewDefault())
		Expect(err).To(BeNil())

		s = store.NewStore(db)
		gormdb = db
		Expect(s.InitialMigration(context.TODO())).To(BeNil())
	})

	AfterAll(func() {
		s.Close()
	})

	AfterEach(func() {
		gormdb.Exec("DELETE FROM invoices;")
		gormdb.Exec("DELETE FROM scrape_jobs;")
	})

	Context("providers", func() {
		It("lists the registered providers", func() {
			srv := service.NewScrapeService(s, nil)
			Expect(srv.Providers()).To(ContainElement(scrape.ProviderEngieRomania))
		})

		It("returns the selectors of a provider", func() {
			srv := service.NewScrapeService(s, nil)
			cfg, err := srv.Selectors(string(scrape.ProviderEngieRomania))
			Expect(err).To(BeNil())
			Expect(cfg.InvoiceRowSelector).ToNot(BeEmpty())
		})

		It("fails for an unknown provider", func() {
			srv := service.NewScrapeService(s, nil)
			_, err := srv.Selectors("Acme Power")
			_, ok := err.(*service.ErrProviderNotFound)
			Expect(ok).To(BeTrue())
		})
	})

	Context("submit", func() {
		It("stores a pending job without returning the credentials", func() {
			srv := service.NewScrapeService(s, nil)

			job, err := srv.SubmitJob(context.TODO(), user, string(scrape.ProviderEngieRomania), creds)
			Expect(err).To(BeNil())
			Expect(job.Status).To(Equal(scrape.JobStatusPending))
			Expect(job.Credentials.Empty()).To(BeTrue())

			var secret string
			Expect(gormdb.Raw("SELECT credential_secret FROM scrape_jobs WHERE id = ?;", job.ID).Scan(&secret).Error).To(BeNil())
			Expect(secret).ToNot(BeEmpty())
			Expect(secret).ToNot(ContainSubstring("hunter2"))
		})

		It("opens the stored password with the same key after a restart", func() {
			box, err := secrets.NewBox("credentials-key")
			Expect(err).To(BeNil())
			job, err := service.NewScrapeService(s, nil).WithSecrets(box).
				SubmitJob(context.TODO(), user, string(scrape.ProviderEngieRomania), creds)
			Expect(err).To(BeNil())

			again, err := secrets.NewBox("credentials-key")
			Expect(err).To(BeNil())
			started, err := service.NewScrapeService(s, nil).WithSecrets(again).StartJob(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(started.Credentials).To(Equal(creds))
		})

		It("rejects an unknown provider", func() {
			srv := service.NewScrapeService(s, nil)
			_, err := srv.SubmitJob(context.TODO(), user, "Acme Power", creds)
			_, ok := err.(*service.ErrProviderNotFound)
			Expect(ok).To(BeTrue())

			count := 0
			Expect(gormdb.Raw("SELECT COUNT(*) FROM scrape_jobs;").Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(0))
		})
	})

	Context("get and list", func() {
		It("lists the jobs of the user only", func() {
			srv := service.NewScrapeService(s, nil)
			_, err := srv.SubmitJob(context.TODO(), user, string(scrape.ProviderEngieRomania), creds)
			Expect(err).To(BeNil())
			_, err = srv.SubmitJob(context.TODO(), auth.User{Username: "bob", Organization: "acme"}, string(scrape.ProviderEngieRomania), creds)
			Expect(err).To(BeNil())

			jobs, err := srv.ListJobs(context.TODO(), user)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
			Expect(jobs[0].Credentials.Empty()).To(BeTrue())
		})

		It("forbids another user", func() {
			srv := service.NewScrapeService(s, nil)
			job, err := srv.SubmitJob(context.TODO(), user, string(scrape.ProviderEngieRomania), creds)
			Expect(err).To(BeNil())

			_, err = srv.GetJob(context.TODO(), auth.User{Username: "bob", Organization: "acme"}, job.ID)
			_, ok := err.(*service.ErrAccessForbidden)
			Expect(ok).To(BeTrue())
		})

		It("returns not found for a missing job", func() {
			srv := service.NewScrapeService(s, nil)
			_, err := srv.GetJob(context.TODO(), user, uuid.New())
			_, ok := err.(*service.ErrResourceNotFound)
			Expect(ok).To(BeTrue())
		})
	})

	Context("lifecycle", func() {
		It("starts a pending job once", func() {
			srv := service.NewScrapeService(s, nil)
			job, err := srv.SubmitJob(context.TODO(), user, string(scrape.ProviderEngieRomania), creds)
			Expect(err).To(BeNil())

			started, err := srv.StartJob(context.TODO(), job.ID)
			Expect(err).To(BeNil())
			Expect(started.Status).To(Equal(scrape.JobStatusInProgress))
			Expect(started.Credentials).To(Equal(creds))

			_, err = srv.StartJob(context.TODO(), job.ID)
			_, ok := err.(*service.ErrInvalidJobTransition)
			Expect(ok).To(BeTrue())
		})

		It("claims pending jobs with their credentials", func() {
			srv := service.NewScrapeService(s, nil)
			for i := 0; i < 3; i++ {
				_, err := srv.SubmitJob(context.TODO(), user, string(scrape.ProviderEngieRomania), creds)
				Expect(err).To(BeNil())
			}

			jobs, err := srv.ClaimPending(context.TODO(), 2)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(2))
			for _, j := range jobs {
				Expect(j.Status).To(Equal(scrape.JobStatusInProgress))
				Expect(j.Credentials).To(Equal(creds))
			}

			jobs, err = srv.ClaimPending(context.TODO(), 2)
			Expect(err).To(BeNil())
			Expect(jobs).To(HaveLen(1))
		})

		It("fails a claimed job whose password cannot be opened", func() {
			job, err := service.NewScrapeService(s, nil).SubmitJob(context.TODO(), user, string(scrape.ProviderEngieRomania), creds)
			Expect(err).To(BeNil())

			// another process key
			srv := service.NewScrapeService(s, nil)
			jobs, err := srv.ClaimPending(context.TODO(), 5)
			Expect(err).To(BeNil())
			Expect(jobs).To(BeEmpty())

			got, err := srv.GetJob(context.TODO(), user, job.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(scrape.JobStatusFailed))
			Expect(got.Reason).To(Equal(scrape.ReasonUnknown))
		})

		It("completes a job with its invoices", func() {
			w := newTestWriter()
			producer := events.NewEventProducer(w)
			srv := service.NewScrapeService(s, producer)

			job, err := srv.SubmitJob(context.TODO(), user, string(scrape.ProviderEngieRomania), creds)
			Expect(err).To(BeNil())
			_, err = srv.StartJob(context.TODO(), job.ID)
			Expect(err).To(BeNil())

			done, err := srv.ReportOutcome(context.TODO(), job.ID, scrape.Succeeded(invoiceRecords()))
			Expect(err).To(BeNil())
			Expect(done.Status).To(Equal(scrape.JobStatusCompleted))
			Expect(done.Records).To(HaveLen(2))
			Expect(done.Credentials.Empty()).To(BeTrue())

			var secret string
			Expect(gormdb.Raw("SELECT credential_secret FROM scrape_jobs WHERE id = ?;", job.ID).Scan(&secret).Error).To(BeNil())
			Expect(secret).To(BeEmpty())

			invoices, err := srv.ListInvoices(context.TODO(), user, job.ID)
			Expect(err).To(BeNil())
			Expect(invoices).To(HaveLen(2))

			got, err := srv.GetJob(context.TODO(), user, job.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(scrape.JobStatusCompleted))
			Expect(got.Records).To(HaveLen(2))

			Expect(producer.Close()).To(Succeed())
			Expect(w.Len()).To(Equal(1))
			Expect(w.Get(0).Type()).To(Equal(events.ScrapeJobMessageKind))

			var e events.ScrapeJobEvent
			Expect(json.Unmarshal(w.Get(0).Data(), &e)).To(Succeed())
			Expect(e.JobID).To(Equal(job.ID.String()))
			Expect(e.Status).To(Equal("completed"))
			Expect(e.Invoices).To(Equal(2))
		})

		It("returns each invoice number once", func() {
			w := newTestWriter()
			producer := events.NewEventProducer(w)
			srv := service.NewScrapeService(s, producer)

			job, err := srv.SubmitJob(context.TODO(), user, string(scrape.ProviderEngieRomania), creds)
			Expect(err).To(BeNil())

			records := invoiceRecords()[:1]
			records = append(records, records[0])
			done, err := srv.ReportOutcome(context.TODO(), job.ID, scrape.Succeeded(records))
			Expect(err).To(BeNil())
			Expect(done.Records).To(HaveLen(1))
			Expect(done.Records[0].Number).To(Equal("FE-1"))

			count := 0
			Expect(gormdb.Raw("SELECT COUNT(*) FROM invoices WHERE job_id = ?;", job.ID).Scan(&count).Error).To(BeNil())
			Expect(count).To(Equal(1))

			Expect(producer.Close()).To(Succeed())
			var e events.ScrapeJobEvent
			Expect(json.Unmarshal(w.Get(0).Data(), &e)).To(Succeed())
			Expect(e.Invoices).To(Equal(1))
		})

		It("fails a pending job directly", func() {
			srv := service.NewScrapeService(s, nil)
			job, err := srv.SubmitJob(context.TODO(), user, string(scrape.ProviderEngieRomania), creds)
			Expect(err).To(BeNil())

			done, err := srv.ReportOutcome(context.TODO(), job.ID, scrape.Failed(scrape.ReasonLoginRejected))
			Expect(err).To(BeNil())
			Expect(done.Status).To(Equal(scrape.JobStatusFailed))
			Expect(done.Reason).To(Equal(scrape.ReasonLoginRejected))
			Expect(done.Records).To(BeEmpty())

			invoices, err := srv.ListInvoices(context.TODO(), user, job.ID)
			Expect(err).To(BeNil())
			Expect(invoices).To(BeEmpty())
		})

		It("accepts a single outcome", func() {
			srv := service.NewScrapeService(s, nil)
			job, err := srv.SubmitJob(context.TODO(), user, string(scrape.ProviderEngieRomania), creds)
			Expect(err).To(BeNil())

			_, err = srv.ReportOutcome(context.TODO(), job.ID, scrape.Failed(scrape.ReasonNavigationFailed))
			Expect(err).To(BeNil())

			_, err = srv.ReportOutcome(context.TODO(), job.ID, scrape.Succeeded(invoiceRecords()))
			_, ok := err.(*service.ErrInvalidJobTransition)
			Expect(ok).To(BeTrue())

			got, err := srv.GetJob(context.TODO(), user, job.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(scrape.JobStatusFailed))
			Expect(got.Records).To(BeEmpty())
		})

		It("lets only the scrape runner report outcomes", func() {
			srv := service.NewScrapeService(s, nil)
			job, err := srv.SubmitJob(context.TODO(), user, string(scrape.ProviderEngieRomania), creds)
			Expect(err).To(BeNil())

			for _, u := range []auth.User{
				{Username: "bob", Organization: "acme"},
				user,
				{Username: "eve", Organization: "other"},
			} {
				_, err = srv.ReportOutcomeAs(context.TODO(), u, job.ID, scrape.Succeeded(invoiceRecords()))
				_, ok := err.(*service.ErrAccessForbidden)
				Expect(ok).To(BeTrue(), u.Username)
			}

			got, err := srv.GetJob(context.TODO(), user, job.ID)
			Expect(err).To(BeNil())
			Expect(got.Status).To(Equal(scrape.JobStatusPending))

			done, err := srv.ReportOutcomeAs(context.TODO(), runner, job.ID, scrape.Failed(scrape.ReasonUnknown))
			Expect(err).To(BeNil())
			Expect(done.Status).To(Equal(scrape.JobStatusFailed))
		})

		It("returns not found to the runner for a missing job", func() {
			srv := service.NewScrapeService(s, nil)
			_, err := srv.ReportOutcomeAs(context.TODO(), runner, uuid.New(), scrape.Failed(scrape.ReasonUnknown))
			_, ok := err.(*service.ErrResourceNotFound)
			Expect(ok).To(BeTrue())
		})
	})
})
