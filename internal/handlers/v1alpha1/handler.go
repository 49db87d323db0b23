package v1alpha1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/propertyhub/lease-planner/internal/auth"
	"github.com/propertyhub/lease-planner/internal/handlers/v1alpha1/mappers"
	"github.com/propertyhub/lease-planner/internal/handlers/validator"
	"github.com/propertyhub/lease-planner/internal/service"
	"github.com/propertyhub/lease-planner/pkg/metrics"
)

type ServiceHandler struct {
	contractSrv       *service.ContractService
	scrapeSrv         *service.ScrapeService
	contractValidator *validator.Validator
	scrapeValidator   *validator.Validator
}

func NewServiceHandler(contractService *service.ContractService, scrapeService *service.ScrapeService) *ServiceHandler {
	cv := validator.NewValidator()
	cv.Register(validator.NewContractValidationRules()...)

	sv := validator.NewValidator()
	sv.Register(validator.NewScrapeJobValidationRules(nil)...)

	return &ServiceHandler{
		contractSrv:       contractService,
		scrapeSrv:         scrapeService,
		contractValidator: cv,
		scrapeValidator:   sv,
	}
}

// Routes mounts the api on r. The authenticator must run before it.
func (s *ServiceHandler) Routes(r chi.Router) {
	r.Get("/health", s.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(observeUser)

		r.Route("/contracts", func(r chi.Router) {
			r.Get("/", s.ListContracts)
			r.Post("/", s.CreateContract)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetContract)
				r.Delete("/", s.DeleteContract)
				r.Get("/actions", s.ListContractActions)
				r.Post("/transitions", s.ApplyContractAction)
			})
		})

		r.Get("/providers", s.ListProviders)
		r.Get("/providers/{provider}/selectors", s.GetProviderSelectors)

		r.Route("/scrape-jobs", func(r chi.Router) {
			r.Get("/", s.ListScrapeJobs)
			r.Post("/", s.CreateScrapeJob)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetScrapeJob)
				r.Post("/outcome", s.ReportScrapeOutcome)
				r.Get("/invoices", s.ListScrapeJobInvoices)
			})
		})
	})
}

// (GET /health)
func (s *ServiceHandler) Health(w http.ResponseWriter, r *http.Request) {
	_ = render.Render(w, r, mappers.Health{Status: "ok"})
}

func observeUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := auth.UserFromContext(r.Context()); ok {
			metrics.UniqueUsersPerWeek.Observe(user.Username)
		}
		next.ServeHTTP(w, r)
	})
}
