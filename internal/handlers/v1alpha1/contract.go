package v1alpha1

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/propertyhub/lease-planner/internal/auth"
	"github.com/propertyhub/lease-planner/internal/handlers/v1alpha1/mappers"
)

// (GET /api/v1/contracts)
func (s *ServiceHandler) ListContracts(w http.ResponseWriter, r *http.Request) {
	params := mappers.ContractListParams{Status: r.URL.Query().Get("status")}
	for name, dst := range map[string]*int{"limit": &params.Limit, "offset": &params.Offset} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			renderError(w, r, http.StatusBadRequest, "invalid "+name+": "+raw)
			return
		}
		*dst = n
	}

	if err := s.contractValidator.Struct(params); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user := auth.MustHaveUser(r.Context())
	contracts, err := s.contractSrv.ListContracts(r.Context(), user, mappers.ContractFilterApi(params))
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	_ = render.Render(w, r, mappers.ContractListToApi(contracts))
}

// (POST /api/v1/contracts)
func (s *ServiceHandler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var form mappers.ContractCreate
	if !decodeBody(w, r, &form) {
		return
	}

	if err := s.contractValidator.Struct(form); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	user := auth.MustHaveUser(r.Context())
	c, err := s.contractSrv.CreateContract(r.Context(), user, mappers.ContractFormApi(form))
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	_ = render.Render(w, r, mappers.ContractToApi(*c))
}

// (GET /api/v1/contracts/{id})
func (s *ServiceHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	c, err := s.contractSrv.GetContract(r.Context(), auth.MustHaveUser(r.Context()), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	_ = render.Render(w, r, mappers.ContractToApi(*c))
}

// (DELETE /api/v1/contracts/{id})
func (s *ServiceHandler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := s.contractSrv.DeleteContract(r.Context(), auth.MustHaveUser(r.Context()), id); err != nil {
		renderServiceError(w, r, err)
		return
	}

	render.NoContent(w, r)
}

// (GET /api/v1/contracts/{id}/actions)
func (s *ServiceHandler) ListContractActions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	transitions, err := s.contractSrv.ListActions(r.Context(), auth.MustHaveUser(r.Context()), id)
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	_ = render.Render(w, r, mappers.TransitionsToApi(transitions))
}

// (POST /api/v1/contracts/{id}/transitions)
func (s *ServiceHandler) ApplyContractAction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req mappers.TransitionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.contractValidator.Struct(req); err != nil {
		renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	c, err := s.contractSrv.ApplyAction(r.Context(), auth.MustHaveUser(r.Context()), id, mappers.ActionApi(req))
	if err != nil {
		renderServiceError(w, r, err)
		return
	}

	_ = render.Render(w, r, mappers.ContractToApi(*c))
}
