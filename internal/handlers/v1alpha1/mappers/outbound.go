package mappers

import (
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/propertyhub/lease-planner/internal/contract"
	"github.com/propertyhub/lease-planner/internal/scrape"
	"github.com/propertyhub/lease-planner/internal/store/model"
)

type Contract struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	PropertyAddress string     `json:"propertyAddress"`
	LandlordID      string     `json:"landlordId"`
	TenantID        string     `json:"tenantId"`
	Status          string     `json:"status"`
	RentAmount      int64      `json:"rentAmount"`
	Currency        string     `json:"currency,omitempty"`
	StartDate       *time.Time `json:"startDate,omitempty"`
	EndDate         *time.Time `json:"endDate,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type ContractList []Contract

type ContractAction struct {
	Action string `json:"action"`
	Label  string `json:"label"`
	To     string `json:"to"`
}

type ContractActionList []ContractAction

type Provider struct {
	Name string `json:"name"`
}

type ProviderList []Provider

type Selectors scrape.ProviderSelectorConfig

type ScrapeJob struct {
	ID        uuid.UUID `json:"id"`
	Provider  string    `json:"provider"`
	Status    string    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Invoices  int       `json:"invoices"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AcceptedScrapeJob is the reply to a submission, sent with 202 Accepted.
type AcceptedScrapeJob struct {
	ScrapeJob
}

type ScrapeJobList []ScrapeJob

type Invoice struct {
	Number      string    `json:"number"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency"`
	Date        time.Time `json:"date"`
	DownloadRef string    `json:"downloadRef,omitempty"`
}

type InvoiceList []Invoice

type Health struct {
	Status string `json:"status"`
}

func (c Contract) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (c ContractList) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (c ContractActionList) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (p ProviderList) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (s Selectors) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (j ScrapeJob) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (j ScrapeJobList) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (i InvoiceList) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (h Health) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func (j AcceptedScrapeJob) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, http.StatusAccepted)
	return nil
}

func ContractToApi(c model.Contract) Contract {
	return Contract{
		ID:              c.ID,
		Title:           c.Title,
		PropertyAddress: c.PropertyAddress,
		LandlordID:      c.LandlordID,
		TenantID:        c.TenantID,
		Status:          c.Status,
		RentAmount:      c.RentAmount,
		Currency:        c.Currency,
		StartDate:       c.StartDate,
		EndDate:         c.EndDate,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func ContractListToApi(contracts model.ContractList) ContractList {
	list := make(ContractList, 0, len(contracts))
	for _, c := range contracts {
		list = append(list, ContractToApi(c))
	}
	return list
}

func TransitionsToApi(transitions []contract.Transition) ContractActionList {
	list := make(ContractActionList, 0, len(transitions))
	for _, t := range transitions {
		list = append(list, ContractAction{
			Action: string(t.Action),
			Label:  contract.Label(t.Action),
			To:     string(t.To),
		})
	}
	return list
}

func ProvidersToApi(providers []scrape.ProviderIdentity) ProviderList {
	list := make(ProviderList, 0, len(providers))
	for _, p := range providers {
		list = append(list, Provider{Name: string(p)})
	}
	return list
}

func ScrapeJobToApi(job scrape.Job) ScrapeJob {
	return ScrapeJob{
		ID:        job.ID,
		Provider:  string(job.Provider),
		Status:    string(job.Status),
		Reason:    job.Reason,
		Invoices:  len(job.Records),
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

func ScrapeJobListToApi(jobs []scrape.Job) ScrapeJobList {
	list := make(ScrapeJobList, 0, len(jobs))
	for _, j := range jobs {
		list = append(list, ScrapeJobToApi(j))
	}
	return list
}

func InvoicesToApi(records []scrape.InvoiceRecord) InvoiceList {
	list := make(InvoiceList, 0, len(records))
	for _, r := range records {
		list = append(list, Invoice(r))
	}
	return list
}
