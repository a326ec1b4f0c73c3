// file: internals/features/correction/service/errors.go
package service

import (
	"errors"

	"longessay_backend/internals/features/correction/repository"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrValidationMismatch = errors.New("validation mismatch")
	ErrPersistence        = errors.New("persistence failure")
	ErrInvalid            = errors.New("invalid payload")
	ErrConflict           = errors.New("conflict")
)

// Reason is the per-record rejection code reported back to the client.
type Reason string

const (
	ReasonNotFound           Reason = "not_found"
	ReasonForbidden          Reason = "forbidden"
	ReasonValidationMismatch Reason = "validation_mismatch"
	ReasonInvalid            Reason = "invalid"
	ReasonPersistence        Reason = "persistence_failure"
	ReasonNotEligible        Reason = "not_eligible"
)

// Err maps a rejection reason back onto the request-level error it stands for.
func (r Reason) Err() error {
	switch r {
	case ReasonNotFound:
		return ErrNotFound
	case ReasonForbidden, ReasonNotEligible:
		return ErrForbidden
	case ReasonValidationMismatch:
		return ErrValidationMismatch
	case ReasonInvalid:
		return ErrInvalid
	default:
		return ErrPersistence
	}
}

// reasonOfStoreErr classifies a store error from a write path.
func reasonOfStoreErr(err error) Reason {
	if repository.IsNotFound(err) {
		return ReasonNotFound
	}
	return ReasonPersistence
}
