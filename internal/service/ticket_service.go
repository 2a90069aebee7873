package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util"
)

// TicketService is the ticket lifecycle engine. It is stateless and
// reentrant; the store's atomic single-record write is the only concurrency
// primitive it relies on.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
	}
}

// Create validates the input and persists a new ticket owned by the caller.
// Status, creator identity and timestamps are forced server-side.
func (s *TicketService) Create(ctx context.Context, principal domain.Principal, input TicketCreateInput) (*domain.Ticket, error) {
	resolutionDate, err := validateCreateInput(input)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:                  strings.TrimSpace(input.Title),
		Description:            strings.TrimSpace(input.Description),
		Priority:               input.Priority,
		Status:                 domain.TicketStatusNew,
		Category:               strings.TrimSpace(input.Category),
		DepartmentAffected:     strings.TrimSpace(input.DepartmentAffected),
		ContactEmail:           strings.TrimSpace(input.ContactEmail),
		ContactPhone:           strings.TrimSpace(input.ContactPhone),
		PreferredContact:       input.PreferredContact,
		ExpectedResolutionDate: resolutionDate,
		Attachment:             input.Attachment,
		CreatedBy:              principal.ID,
		CreatedByEmail:         principal.Email,
		UpdatedBy:              principal.ID,
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorFrom(principal),
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Priority: ticket.Priority,
			Category: ticket.Category,
		},
	})
	return ticket, nil
}

// Update applies a field map to a ticket. Every field is checked before any
// write: an unknown field, a field outside the caller's permitted set, an
// illegal status transition or a mutation of a closed ticket each abort the
// whole request with no partial write. Same-value writes are idempotent and
// pass the closed check.
func (s *TicketService) Update(ctx context.Context, principal domain.Principal, id string, fields map[string]any) (*domain.Ticket, error) {
	ticket, err := s.loadVisible(ctx, principal, id)
	if err != nil {
		return nil, err
	}

	next := *ticket
	oldStatus := ticket.Status
	changed := make([]string, 0, len(fields))

	for _, name := range sortedFieldNames(fields) {
		wasNoop, err := s.applyField(principal, ticket, &next, name, fields[name])
		if err != nil {
			return nil, err
		}
		if !wasNoop {
			changed = append(changed, name)
		}
	}

	next.UpdatedBy = principal.ID
	next.UpdatedAt = time.Now()
	if err := s.tickets.Update(ctx, &next); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, err
	}

	if len(changed) > 0 {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketUpdated,
			TicketID: next.ID,
			Actor:    actorFrom(principal),
			Payload:  events.TicketUpdatedPayload{Fields: changed},
		})
	}
	if next.Status != oldStatus {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: next.ID,
			Actor:    actorFrom(principal),
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: next.Status,
			},
		})
	}
	return &next, nil
}

// applyField validates a single field write and applies it to next. It
// reports whether the write was a same-value no-op.
func (s *TicketService) applyField(principal domain.Principal, ticket, next *domain.Ticket, name string, raw any) (bool, error) {
	if !isKnownField(name) {
		return false, apperrors.NewUnknownField(name)
	}
	if !canEditField(principal, ticket, name) {
		return false, apperrors.NewPermissionDenied(name)
	}

	switch name {
	case FieldStatus:
		value, err := stringField(name, raw)
		if err != nil {
			return false, err
		}
		status := domain.TicketStatus(value)
		if !status.IsValid() {
			return false, apperrors.NewValidationError(name, "unknown status")
		}
		if status == ticket.Status {
			return true, nil
		}
		if !isValidTransition(ticket.Status, status) {
			return false, apperrors.NewInvalidTransition(string(ticket.Status), string(status))
		}
		next.Status = status
		return false, nil

	case FieldTitle:
		value, err := stringField(name, raw)
		if err != nil {
			return false, err
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return false, apperrors.NewValidationError(name, "required")
		}
		if value == ticket.Title {
			return true, nil
		}
		if err := s.rejectClosedWrite(ticket); err != nil {
			return false, err
		}
		next.Title = value
		return false, nil

	case FieldDescription:
		value, err := stringField(name, raw)
		if err != nil {
			return false, err
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return false, apperrors.NewValidationError(name, "required")
		}
		if value == ticket.Description {
			return true, nil
		}
		if err := s.rejectClosedWrite(ticket); err != nil {
			return false, err
		}
		next.Description = value
		return false, nil

	case FieldPriority:
		value, err := stringField(name, raw)
		if err != nil {
			return false, err
		}
		priority := domain.TicketPriority(value)
		if !priority.IsValid() {
			return false, apperrors.NewValidationError(name, "must be one of low, medium, high")
		}
		if priority == ticket.Priority {
			return true, nil
		}
		if err := s.rejectClosedWrite(ticket); err != nil {
			return false, err
		}
		next.Priority = priority
		return false, nil

	case FieldContactEmail:
		value, err := stringField(name, raw)
		if err != nil {
			return false, err
		}
		value = strings.TrimSpace(value)
		if !validEmail(value) {
			return false, apperrors.NewValidationError(name, "invalid email address")
		}
		if value == ticket.ContactEmail {
			return true, nil
		}
		if err := s.rejectClosedWrite(ticket); err != nil {
			return false, err
		}
		next.ContactEmail = value
		return false, nil

	case FieldContactPhone:
		value, err := stringField(name, raw)
		if err != nil {
			return false, err
		}
		value = strings.TrimSpace(value)
		if value == "" {
			return false, apperrors.NewValidationError(name, "required")
		}
		if value == ticket.ContactPhone {
			return true, nil
		}
		if err := s.rejectClosedWrite(ticket); err != nil {
			return false, err
		}
		next.ContactPhone = value
		return false, nil

	case FieldPreferredContact:
		value, err := stringField(name, raw)
		if err != nil {
			return false, err
		}
		contact := domain.PreferredContact(value)
		if !contact.IsValid() {
			return false, apperrors.NewValidationError(name, "must be email or phone")
		}
		if contact == ticket.PreferredContact {
			return true, nil
		}
		if err := s.rejectClosedWrite(ticket); err != nil {
			return false, err
		}
		next.PreferredContact = contact
		return false, nil

	case FieldExpectedResolutionDate:
		value, err := stringField(name, raw)
		if err != nil {
			return false, err
		}
		date, err := parseResolutionDate(value)
		if err != nil {
			return false, err
		}
		if date.Equal(ticket.ExpectedResolutionDate) {
			return true, nil
		}
		if err := s.rejectClosedWrite(ticket); err != nil {
			return false, err
		}
		next.ExpectedResolutionDate = date
		return false, nil

	case FieldAttachment:
		ref, err := decodeAttachment(raw)
		if err != nil {
			return false, err
		}
		if attachmentEqual(ref, ticket.Attachment) {
			return true, nil
		}
		if err := s.rejectClosedWrite(ticket); err != nil {
			return false, err
		}
		next.Attachment = ref
		return false, nil

	case FieldAssignedToEmail:
		assignee, err := decodeAssignee(raw)
		if err != nil {
			return false, err
		}
		if optionalEqual(assignee, ticket.AssignedToEmail) {
			return true, nil
		}
		if err := s.rejectClosedWrite(ticket); err != nil {
			return false, err
		}
		next.AssignedToEmail = assignee
		return false, nil
	}

	// Known but immutable fields never reach here; canEditField refuses them.
	return false, apperrors.NewPermissionDenied(name)
}

// Delete removes a ticket. Deletion is a customer self-service action: only
// the owner may delete, agents never.
func (s *TicketService) Delete(ctx context.Context, principal domain.Principal, id string) error {
	ticket, err := s.loadVisible(ctx, principal, id)
	if err != nil {
		return err
	}
	if principal.IsAgent() || ticket.CreatedBy != principal.ID {
		return apperrors.NewPermissionDenied("delete")
	}
	if err := s.tickets.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Actor:    actorFrom(principal),
		Payload:  events.TicketDeletedPayload{Title: ticket.Title},
	})
	return nil
}

// Get fetches a single ticket subject to the visibility rule.
func (s *TicketService) Get(ctx context.Context, principal domain.Principal, id string) (*domain.Ticket, error) {
	return s.loadVisible(ctx, principal, id)
}

// List returns the caller's visible ticket set: everything for agents, own
// tickets for customers, newest first with id as tiebreak.
func (s *TicketService) List(ctx context.Context, principal domain.Principal) ([]domain.Ticket, error) {
	filter := repository.TicketFilter{}
	if !principal.IsAgent() {
		createdBy := principal.ID
		filter.CreatedBy = &createdBy
	}
	return s.tickets.List(ctx, filter)
}

// loadVisible fetches a ticket and applies the viewer visibility rule: a
// customer cannot observe that someone else's ticket exists.
func (s *TicketService) loadVisible(ctx context.Context, principal domain.Principal, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
		}
		return nil, err
	}
	if !principal.IsAgent() && ticket.CreatedBy != principal.ID {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return ticket, nil
}

func (s *TicketService) rejectClosedWrite(ticket *domain.Ticket) error {
	if ticket.Status == domain.TicketStatusClosed {
		return apperrors.NewTicketClosed(ticket.ID)
	}
	return nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func actorFrom(principal domain.Principal) events.Actor {
	return events.Actor{
		ID:    principal.ID,
		Email: principal.Email,
		Role:  principal.Role,
	}
}

func sortedFieldNames(fields map[string]any) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func decodeAssignee(raw any) (*string, error) {
	if raw == nil {
		return nil, nil
	}
	value, ok := raw.(string)
	if !ok {
		return nil, apperrors.NewValidationError(FieldAssignedToEmail, "must be a string or null")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if !validEmail(value) {
		return nil, apperrors.NewValidationError(FieldAssignedToEmail, "invalid email address")
	}
	return &value, nil
}

func optionalEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func attachmentEqual(a, b *domain.AttachmentReference) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
