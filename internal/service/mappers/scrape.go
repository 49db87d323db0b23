package mappers

import (
	"github.com/propertyhub/lease-planner/internal/auth"
	"github.com/propertyhub/lease-planner/internal/scrape"
	"github.com/propertyhub/lease-planner/internal/store/model"
)

// ScrapeJobToModel leaves CredentialSecret empty: the password is sealed by the
// caller before the row is written.
func ScrapeJobToModel(job scrape.Job, user auth.User) model.ScrapeJob {
	return model.ScrapeJob{
		ID:                 job.ID,
		CreatedAt:          job.CreatedAt,
		UpdatedAt:          job.UpdatedAt,
		OrgID:              user.Organization,
		Username:           user.Username,
		Provider:           string(job.Provider),
		Status:             string(job.Status),
		Reason:             job.Reason,
		CredentialUsername: job.Credentials.Username,
	}
}

// ScrapeJobFromModel rebuilds the domain job. Only the credential username is
// set; the sealed password is opened by the service.
func ScrapeJobFromModel(m model.ScrapeJob, invoices model.InvoiceList) (scrape.Job, error) {
	status, err := scrape.ParseJobStatus(m.Status)
	if err != nil {
		return scrape.Job{}, err
	}

	job := scrape.Job{
		ID:        m.ID,
		Provider:  scrape.ProviderIdentity(m.Provider),
		Status:    status,
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
		Credentials: scrape.Credentials{
			Username: m.CredentialUsername,
		},
	}
	if len(invoices) > 0 {
		job.Records = RecordsFromInvoices(invoices)
	}
	return job, nil
}

func InvoicesFromRecords(records []scrape.InvoiceRecord) model.InvoiceList {
	invoices := make(model.InvoiceList, 0, len(records))
	for _, r := range records {
		invoices = append(invoices, model.Invoice{
			Number:      r.Number,
			Amount:      r.Amount,
			Currency:    r.Currency,
			IssuedAt:    r.Date,
			DownloadRef: r.DownloadRef,
		})
	}
	return invoices
}

func RecordsFromInvoices(invoices model.InvoiceList) []scrape.InvoiceRecord {
	records := make([]scrape.InvoiceRecord, 0, len(invoices))
	for _, inv := range invoices {
		records = append(records, scrape.InvoiceRecord{
			Number:      inv.Number,
			Amount:      inv.Amount,
			Currency:    inv.Currency,
			Date:        inv.IssuedAt,
			DownloadRef: inv.DownloadRef,
		})
	}
	return records
}
