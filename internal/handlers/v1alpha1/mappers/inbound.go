package mappers

import (
	"strings"
	"time"

	"github.com/propertyhub/lease-planner/internal/contract"
	"github.com/propertyhub/lease-planner/internal/scrape"
	"github.com/propertyhub/lease-planner/internal/service"
)

type ContractCreate struct {
	Title           string     `json:"title" validate:"required,max=200"`
	PropertyAddress string     `json:"propertyAddress" validate:"max=500"`
	TenantID        string     `json:"tenantId" validate:"required,username"`
	RentAmount      int64      `json:"rentAmount" validate:"gte=0"`
	Currency        string     `json:"currency" validate:"omitempty,iso4217"`
	StartDate       *time.Time `json:"startDate"`
	EndDate         *time.Time `json:"endDate"`
}

type TransitionRequest struct {
	Action string `json:"action" validate:"required,contract_action"`
}

type ContractListParams struct {
	Status string `json:"status" validate:"omitempty,contract_status"`
	Limit  int    `json:"limit" validate:"gte=0,lte=500"`
	Offset int    `json:"offset" validate:"gte=0"`
}

type ScrapeJobCreate struct {
	Provider string `json:"provider" validate:"required,provider"`
	Username string `json:"username" validate:"required,max=256"`
	Password string `json:"password" validate:"required,max=256"`
}

type InvoiceForm struct {
	Number      string    `json:"number" validate:"required,max=64"`
	Amount      int64     `json:"amount"`
	Currency    string    `json:"currency" validate:"omitempty,iso4217"`
	Date        time.Time `json:"date" validate:"required"`
	DownloadRef string    `json:"downloadRef" validate:"omitempty,url"`
}

// ScrapeOutcome is posted by an external runner. A success carries records
// and no reason, a failure carries a reason and no records.
type ScrapeOutcome struct {
	Success bool          `json:"success"`
	Records []InvoiceForm `json:"records" validate:"excluded_if=Success false,dive"`
	Reason  string        `json:"reason" validate:"required_if=Success false,excluded_if=Success true,omitempty,reason_code"`
}

func ContractFormApi(form ContractCreate) service.ContractForm {
	return service.ContractForm{
		Title:           form.Title,
		PropertyAddress: form.PropertyAddress,
		TenantID:        strings.TrimSpace(form.TenantID),
		RentAmount:      form.RentAmount,
		Currency:        form.Currency,
		StartDate:       form.StartDate,
		EndDate:         form.EndDate,
	}
}

func ContractFilterApi(params ContractListParams) service.ContractFilter {
	return service.ContractFilter{
		Status: params.Status,
		Limit:  params.Limit,
		Offset: params.Offset,
	}
}

// ActionApi expects a request that already passed validation.
func ActionApi(req TransitionRequest) contract.Action {
	return contract.Action(req.Action)
}

func CredentialsApi(form ScrapeJobCreate) scrape.Credentials {
	return scrape.Credentials{
		Username: form.Username,
		Password: form.Password,
	}
}

func OutcomeApi(form ScrapeOutcome) scrape.Outcome {
	if !form.Success {
		return scrape.Failed(form.Reason)
	}

	records := make([]scrape.InvoiceRecord, 0, len(form.Records))
	for _, r := range form.Records {
		records = append(records, scrape.InvoiceRecord{
			Number:      r.Number,
			Amount:      r.Amount,
			Currency:    strings.ToUpper(r.Currency),
			Date:        r.Date,
			DownloadRef: r.DownloadRef,
		})
	}
	return scrape.Succeeded(records)
}
