// Package identity models the calling user on whose behalf requests run.
package identity

import (
	"github.com/google/uuid"

	"github.com/roach88/recordsim/internal/ir"
)

// Logical names of the records a Caller points at.
const (
	UserEntity         = "systemuser"
	BusinessUnitEntity = "businessunit"
	OrganizationEntity = "organization"
)

// Caller identifies the user executing requests.
type Caller struct {
	UserID         uuid.UUID
	BusinessUnitID uuid.UUID
	OrganizationID uuid.UUID

	// ImpersonatedUserID, when set, is the user requests run as.
	ImpersonatedUserID uuid.UUID
}

// EffectiveUser returns the impersonated user if set, otherwise the caller.
func (c Caller) EffectiveUser() uuid.UUID {
	if c.ImpersonatedUserID != uuid.Nil {
		return c.ImpersonatedUserID
	}
	return c.UserID
}

// Impersonate returns a copy of c running as user.
func (c Caller) Impersonate(user uuid.UUID) Caller {
	c.ImpersonatedUserID = user
	return c
}

// UserRef references the effective user.
func (c Caller) UserRef() ir.Reference {
	return ir.NewReference(UserEntity, c.EffectiveUser())
}

// InitiatingUserRef references the real caller, ignoring impersonation.
func (c Caller) InitiatingUserRef() ir.Reference {
	return ir.NewReference(UserEntity, c.UserID)
}

// BusinessUnitRef references the caller's business unit.
func (c Caller) BusinessUnitRef() ir.Reference {
	return ir.NewReference(BusinessUnitEntity, c.BusinessUnitID)
}

// OrganizationRef references the caller's organization.
func (c Caller) OrganizationRef() ir.Reference {
	return ir.NewReference(OrganizationEntity, c.OrganizationID)
}

// Provider supplies the current caller.
type Provider interface {
	Caller() Caller
}

// Static is a Provider with a settable caller.
type Static struct {
	caller Caller
}

// NewStatic creates a provider returning c.
func NewStatic(c Caller) *Static {
	return &Static{caller: c}
}

// Caller implements Provider.
func (s *Static) Caller() Caller {
	return s.caller
}

// Set replaces the current caller.
func (s *Static) Set(c Caller) {
	s.caller = c
}
