package service

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/propertyhub/lease-planner/internal/contract"
)

type ErrResourceNotFound struct {
	error
}

func NewErrResourceNotFound(id uuid.UUID, resourceType string) *ErrResourceNotFound {
	return &ErrResourceNotFound{fmt.Errorf("%s %s not found", resourceType, id)}
}

func NewErrContractNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "contract")
}

func NewErrScrapeJobNotFound(id uuid.UUID) *ErrResourceNotFound {
	return NewErrResourceNotFound(id, "scrape job")
}

type ErrAccessForbidden struct {
	error
}

func NewErrContractAccessForbidden(id uuid.UUID, username string) *ErrAccessForbidden {
	return &ErrAccessForbidden{fmt.Errorf("user %s is not a party of contract %s", username, id)}
}

func NewErrScrapeJobAccessForbidden(id uuid.UUID, username string) *ErrAccessForbidden {
	return &ErrAccessForbidden{fmt.Errorf("user %s has no access to scrape job %s", username, id)}
}

func NewErrOutcomeForbidden(id uuid.UUID, username string) *ErrAccessForbidden {
	return &ErrAccessForbidden{fmt.Errorf("user %s is not allowed to report the outcome of scrape job %s", username, id)}
}

type ErrInvalidContract struct {
	error
}

func NewErrInvalidContract(message string) *ErrInvalidContract {
	return &ErrInvalidContract{fmt.Errorf("invalid contract: %s", message)}
}

// ErrTransitionForbidden is returned when the transition table has no row for
// the requested action from the contract's status for the caller's role.
type ErrTransitionForbidden struct {
	error
}

func NewErrTransitionForbidden(status contract.Status, role contract.Role, action contract.Action) *ErrTransitionForbidden {
	return &ErrTransitionForbidden{fmt.Errorf("%s cannot %s a contract in status %s", role, action, status)}
}

type ErrContractConflict struct {
	error
}

func NewErrContractConflict(id uuid.UUID) *ErrContractConflict {
	return &ErrContractConflict{fmt.Errorf("contract %s was modified concurrently, reload it and retry", id)}
}

func NewErrContractNotDeletable(id uuid.UUID, status string) *ErrContractConflict {
	return &ErrContractConflict{fmt.Errorf("contract %s cannot be deleted in status %s", id, status)}
}

type ErrProviderNotFound struct {
	error
}

func NewErrProviderNotFound(provider string) *ErrProviderNotFound {
	return &ErrProviderNotFound{fmt.Errorf("provider %q is not supported", provider)}
}

// ErrInvalidJobTransition is returned when a scrape job cannot move to the
// requested status, e.g. a second outcome for a finished job.
type ErrInvalidJobTransition struct {
	error
}

func NewErrJobAlreadyFinished(id uuid.UUID, status string) *ErrInvalidJobTransition {
	return &ErrInvalidJobTransition{fmt.Errorf("scrape job %s is already %s", id, status)}
}

func NewErrJobNotPending(id uuid.UUID, status string) *ErrInvalidJobTransition {
	return &ErrInvalidJobTransition{fmt.Errorf("scrape job %s is %s, not pending", id, status)}
}
