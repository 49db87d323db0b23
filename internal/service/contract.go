package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/propertyhub/lease-planner/internal/auth"
	"github.com/propertyhub/lease-planner/internal/contract"
	"github.com/propertyhub/lease-planner/internal/events"
	"github.com/propertyhub/lease-planner/internal/store"
	"github.com/propertyhub/lease-planner/internal/store/model"
	"github.com/propertyhub/lease-planner/pkg/log"
	"github.com/propertyhub/lease-planner/pkg/metrics"
)

type ContractService struct {
	store       store.Store
	engine      *contract.Engine
	eventWriter EventWriter
	logger      *log.StructuredLogger
}

func NewContractService(store store.Store, ew EventWriter) *ContractService {
	return &ContractService{
		store:       store,
		engine:      contract.Default(),
		eventWriter: eventWriterOrNoop(ew),
		logger:      log.NewDebugLogger("contract_service"),
	}
}

// WithEngine replaces the transition table used to enforce actions.
func (s *ContractService) WithEngine(e *contract.Engine) *ContractService {
	s.engine = e
	return s
}

type ContractFilter struct {
	Status string
	Limit  int
	Offset int
}

type ContractForm struct {
	Title           string
	PropertyAddress string
	TenantID        string
	RentAmount      int64
	Currency        string
	StartDate       *time.Time
	EndDate         *time.Time
}

// ListContracts returns the contracts where user is the landlord or the tenant.
func (s *ContractService) ListContracts(ctx context.Context, user auth.User, filter ContractFilter) (model.ContractList, error) {
	storeFilter := store.NewContractQueryFilter().ByParty(user.Username)
	if filter.Status != "" {
		storeFilter = storeFilter.ByStatus(filter.Status)
	}

	opts := store.NewQueryOptions().WithSortOrder(store.SortByCreatedTime)
	if filter.Limit > 0 {
		opts = opts.WithLimit(filter.Limit)
	}
	if filter.Offset > 0 {
		opts = opts.WithOffset(filter.Offset)
	}

	return s.store.Contract().List(ctx, storeFilter, opts)
}

func (s *ContractService) GetContract(ctx context.Context, user auth.User, id uuid.UUID) (*model.Contract, error) {
	c, err := s.store.Contract().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrContractNotFound(id)
		}
		return nil, err
	}

	if !c.IsParty(user.Username) {
		return nil, NewErrContractAccessForbidden(id, user.Username)
	}

	return c, nil
}

// CreateContract creates a draft contract with user as the landlord.
func (s *ContractService) CreateContract(ctx context.Context, user auth.User, form ContractForm) (*model.Contract, error) {
	tracer := s.logger.WithContext(ctx).Operation("create_contract").
		WithString("landlord", user.Username).
		WithString("tenant", form.TenantID).
		Build()

	if err := validateContractForm(user, form); err != nil {
		return nil, err
	}

	c, err := s.store.Contract().Create(ctx, model.Contract{
		ID:              uuid.New(),
		OrgID:           user.Organization,
		Title:           strings.TrimSpace(form.Title),
		PropertyAddress: strings.TrimSpace(form.PropertyAddress),
		LandlordID:      user.Username,
		TenantID:        form.TenantID,
		Status:          string(contract.InitialStatus),
		RentAmount:      form.RentAmount,
		Currency:        strings.ToUpper(form.Currency),
		StartDate:       form.StartDate,
		EndDate:         form.EndDate,
	})
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}

	tracer.Success().WithUUID("contract_id", c.ID).Log()
	return c, nil
}

func validateContractForm(user auth.User, form ContractForm) error {
	switch {
	case user.Username == "":
		return NewErrInvalidContract("the landlord is unknown")
	case strings.TrimSpace(form.Title) == "":
		return NewErrInvalidContract("the title is required")
	case form.TenantID == "":
		return NewErrInvalidContract("the tenant is required")
	case form.TenantID == user.Username:
		return NewErrInvalidContract("the landlord cannot be the tenant")
	case form.RentAmount < 0:
		return NewErrInvalidContract("the rent cannot be negative")
	case form.StartDate != nil && form.EndDate != nil && !form.EndDate.After(*form.StartDate):
		return NewErrInvalidContract("the contract must end after it starts")
	}
	return nil
}

// RoleOf resolves the party user plays on c.
func RoleOf(c *model.Contract, user auth.User) (contract.Role, bool) {
	switch user.Username {
	case "":
		return "", false
	case c.LandlordID:
		return contract.RoleLandlord, true
	case c.TenantID:
		return contract.RoleTenant, true
	default:
		return "", false
	}
}

// ListActions returns the transitions user may apply to the contract now.
func (s *ContractService) ListActions(ctx context.Context, user auth.User, id uuid.UUID) ([]contract.Transition, error) {
	c, err := s.GetContract(ctx, user, id)
	if err != nil {
		return nil, err
	}

	status, err := contract.ParseStatus(c.Status)
	if err != nil {
		return nil, err
	}

	role, _ := RoleOf(c, user)
	return s.engine.AvailableTransitions(status, role), nil
}

// ApplyAction runs action on behalf of user. The transition table is checked
// against the stored status, so the client's view of the contract is never trusted.
func (s *ContractService) ApplyAction(ctx context.Context, user auth.User, id uuid.UUID, action contract.Action) (*model.Contract, error) {
	tracer := s.logger.WithContext(ctx).Operation("apply_contract_action").
		WithUUID("contract_id", id).
		WithString("user", user.Username).
		WithString("action", string(action)).
		Build()

	c, err := s.GetContract(ctx, user, id)
	if err != nil {
		return nil, err
	}

	from, err := contract.ParseStatus(c.Status)
	if err != nil {
		tracer.Error(err).Log()
		return nil, err
	}
	role, _ := RoleOf(c, user)

	to, err := s.engine.ApplyTransition(from, role, action)
	switch {
	case errors.Is(err, contract.ErrUnauthorized):
		metrics.IncreaseContractTransitionsMetric(string(action), metrics.TransitionForbidden)
		tracer.Step("transition_forbidden").WithString("from", string(from)).WithString("role", string(role)).Log()
		return nil, NewErrTransitionForbidden(from, role, action)
	case err != nil:
		tracer.Error(err).Log()
		return nil, err
	}

	updated, err := s.store.Contract().UpdateStatus(ctx, id, string(from), string(to))
	if err != nil {
		if errors.Is(err, store.ErrStaleStatus) {
			metrics.IncreaseContractTransitionsMetric(string(action), metrics.TransitionConflict)
			return nil, NewErrContractConflict(id)
		}
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrContractNotFound(id)
		}
		tracer.Error(err).Log()
		return nil, err
	}

	metrics.IncreaseContractTransitionsMetric(string(action), metrics.TransitionApplied)
	if err := s.eventWriter.WriteContractEvent(ctx, events.ContractEvent{
		ContractID: id.String(),
		OrgID:      updated.OrgID,
		Actor:      user.Username,
		Role:       string(role),
		Action:     string(action),
		From:       string(from),
		To:         string(to),
		At:         updated.UpdatedAt,
	}); err != nil {
		tracer.Step("event_dropped").WithParam("error", err).Log()
	}

	tracer.Success().WithString("from", string(from)).WithString("to", string(to)).Log()
	return updated, nil
}

// DeleteContract removes a contract that never took effect or is over. Only the
// landlord can delete it.
func (s *ContractService) DeleteContract(ctx context.Context, user auth.User, id uuid.UUID) error {
	c, err := s.GetContract(ctx, user, id)
	if err != nil {
		return err
	}

	if role, _ := RoleOf(c, user); role != contract.RoleLandlord {
		return NewErrContractAccessForbidden(id, user.Username)
	}

	status, err := contract.ParseStatus(c.Status)
	if err != nil {
		return err
	}
	if status != contract.StatusDraft && !s.engine.IsTerminal(status) {
		return NewErrContractNotDeletable(id, c.Status)
	}

	return s.store.Contract().Delete(ctx, id)
}
