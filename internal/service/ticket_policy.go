package service

import (
	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// Field names accepted in mutation requests. Anything else is unknown.
const (
	FieldTitle                  = "title"
	FieldDescription            = "description"
	FieldPriority               = "priority"
	FieldStatus                 = "status"
	FieldCategory               = "category"
	FieldDepartmentAffected     = "departmentAffected"
	FieldContactEmail           = "contactEmail"
	FieldContactPhone           = "contactPhone"
	FieldPreferredContact       = "preferredContact"
	FieldExpectedResolutionDate = "expectedResolutionDate"
	FieldAttachment             = "attachment"
	FieldAssignedToEmail        = "assignedToEmail"
)

// knownFields covers every addressable ticket field. Server-owned fields are
// known so a write attempt is a permission failure, not an unknown field.
var knownFields = map[string]struct{}{
	FieldTitle:                  {},
	FieldDescription:            {},
	FieldPriority:               {},
	FieldStatus:                 {},
	FieldCategory:               {},
	FieldDepartmentAffected:     {},
	FieldContactEmail:           {},
	FieldContactPhone:           {},
	FieldPreferredContact:       {},
	FieldExpectedResolutionDate: {},
	FieldAttachment:             {},
	FieldAssignedToEmail:        {},
	"id":                        {},
	"createdBy":                 {},
	"createdByEmail":            {},
	"createdAt":                 {},
	"updatedAt":                 {},
	"updatedBy":                 {},
}

// agentEditableFields is the full mutable set for support staff. Category and
// department classification are fixed at creation for everyone, as are the
// server-owned identity and timestamp fields.
var agentEditableFields = map[string]struct{}{
	FieldTitle:                  {},
	FieldDescription:            {},
	FieldPriority:               {},
	FieldStatus:                 {},
	FieldContactEmail:           {},
	FieldContactPhone:           {},
	FieldPreferredContact:       {},
	FieldExpectedResolutionDate: {},
	FieldAttachment:             {},
	FieldAssignedToEmail:        {},
}

// customerEditableFields is what the ticket owner may touch, and only while
// the ticket is still new.
var customerEditableFields = map[string]struct{}{
	FieldTitle:       {},
	FieldDescription: {},
}

// allowedTransitions is the status state machine. closed is terminal.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:        {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusPending:    {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
}

func isKnownField(name string) bool {
	_, ok := knownFields[name]
	return ok
}

// canEditField reports whether the principal may write the named field on a
// ticket in the given state. Ownership only widens the customer set.
func canEditField(principal domain.Principal, ticket *domain.Ticket, field string) bool {
	switch principal.Role {
	case domain.RoleAgent:
		_, ok := agentEditableFields[field]
		return ok
	case domain.RoleCustomer:
		if ticket.CreatedBy != principal.ID || ticket.Status != domain.TicketStatusNew {
			return false
		}
		_, ok := customerEditableFields[field]
		return ok
	}
	return false
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
