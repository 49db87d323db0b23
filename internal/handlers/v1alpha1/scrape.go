package v1alpha1

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/propertyhub/lease-planner/internal/auth"
	"github.com/propertyhub/lease-planner/internal/handlers/v1alpha1/mappers"
	"github.com/propertyhub/lease-planner/internal/service"
)

// (GET /api/v1/providers)
func (s *ServiceHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	_ = render.Render(w, r, mappers.ProvidersToApi(s.scrapeSrv.Providers()))
}

// (GET /api/v1/providers/{provider}/selectors)
func (s *ServiceHandler) GetProviderSelectors(w http.ResponseWriter, r *http.Request) {
	provider, err := url.PathUnescape(chi.URLParam(r, "provider"))
	if err != nil {
		renderError(w, r, http.StatusBadRequest, "invalid provider")
		return
	}

	cfg, err := s.scrapeSrv.Selectors(provider)
	if err != nil {
		if _, ok := err.(*service.ErrProviderNotFound); ok {
			renderError(w, r, http.StatusNotFound, err.Error())
			return
		}
		renderServiceError(w, r, err)
		return
	}

	_ = render.Render(w, r, mappers.Selectors(cfg))
}

// (GET /api/v1/scrape-jobs)
func (s *ServiceHandler) ListScrapeJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.scrapeSrv.ListJobs(r.Context(), auth.MustHaveUser(r.Context()))
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	_ = render.Render(w, r, mappers.ScrapeJobListToApi(jobs))
}

// (POST /api/v1/scrape-jobs)
func (s *ServiceHandler) CreateScrapeJob(w http.ResponseWriter, r *http.Request) {
	var form mappers.ScrapeJobCreate
	if !decodeBody(w, r, &form) {
		return
	}
	if err := s.scrapeValidator.Struct(form); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.scrapeSrv.SubmitJob(r.Context(), auth.MustHaveUser(r.Context()), form.Provider, mappers.CredentialsApi(form))
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	_ = render.Render(w, r, mappers.AcceptedScrapeJob{ScrapeJob: mappers.ScrapeJobToApi(*job)})
}

// (GET /api/v1/scrape-jobs/{id})
func (s *ServiceHandler) GetScrapeJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	job, err := s.scrapeSrv.GetJob(r.Context(), auth.MustHaveUser(r.Context()), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	_ = render.Render(w, r, mappers.ScrapeJobToApi(*job))
}

// (POST /api/v1/scrape-jobs/{id}/outcome)
func (s *ServiceHandler) ReportScrapeOutcome(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var form mappers.ScrapeOutcome
	if !decodeBody(w, r, &form) {
		return
	}
	if err := s.scrapeValidator.Struct(form); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	job, err := s.scrapeSrv.ReportOutcomeAs(r.Context(), auth.MustHaveUser(r.Context()), id, mappers.OutcomeApi(form))
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	_ = render.Render(w, r, mappers.ScrapeJobToApi(*job))
}

// (GET /api/v1/scrape-jobs/{id}/invoices)
func (s *ServiceHandler) ListScrapeJobInvoices(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	records, err := s.scrapeSrv.ListInvoices(r.Context(), auth.MustHaveUser(r.Context()), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	_ = render.Render(w, r, mappers.InvoicesToApi(records))
}
