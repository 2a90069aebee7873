package service

import (
	"net/mail"
	"strings"
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util"
)

const resolutionDateLayout = "2006-01-02"

// TicketCreateInput describes ticket creation payload. Status, creator
// identity and timestamps are server-assigned regardless of what the client
// sent alongside these fields.
type TicketCreateInput struct {
	Title                  string
	Description            string
	Priority               domain.TicketPriority
	Category               string
	DepartmentAffected     string
	ContactEmail           string
	ContactPhone           string
	PreferredContact       domain.PreferredContact
	ExpectedResolutionDate string
	Attachment             *domain.AttachmentReference
}

// validateCreateInput checks every required field and returns the parsed
// resolution date. The first failing field aborts with a ValidationError
// naming it.
func validateCreateInput(input TicketCreateInput) (time.Time, error) {
	if strings.TrimSpace(input.Title) == "" {
		return time.Time{}, apperrors.NewValidationError(FieldTitle, "required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return time.Time{}, apperrors.NewValidationError(FieldDescription, "required")
	}
	if input.Priority == "" {
		return time.Time{}, apperrors.NewValidationError(FieldPriority, "required")
	}
	if !input.Priority.IsValid() {
		return time.Time{}, apperrors.NewValidationError(FieldPriority, "must be one of low, medium, high")
	}
	if strings.TrimSpace(input.Category) == "" {
		return time.Time{}, apperrors.NewValidationError(FieldCategory, "required")
	}
	if strings.TrimSpace(input.ContactEmail) == "" {
		return time.Time{}, apperrors.NewValidationError(FieldContactEmail, "required")
	}
	if !validEmail(input.ContactEmail) {
		return time.Time{}, apperrors.NewValidationError(FieldContactEmail, "invalid email address")
	}
	if strings.TrimSpace(input.ContactPhone) == "" {
		return time.Time{}, apperrors.NewValidationError(FieldContactPhone, "required")
	}
	if input.PreferredContact == "" {
		return time.Time{}, apperrors.NewValidationError(FieldPreferredContact, "required")
	}
	if !input.PreferredContact.IsValid() {
		return time.Time{}, apperrors.NewValidationError(FieldPreferredContact, "must be email or phone")
	}
	if strings.TrimSpace(input.DepartmentAffected) == "" {
		return time.Time{}, apperrors.NewValidationError(FieldDepartmentAffected, "required")
	}
	if strings.TrimSpace(input.ExpectedResolutionDate) == "" {
		return time.Time{}, apperrors.NewValidationError(FieldExpectedResolutionDate, "required")
	}
	date, err := parseResolutionDate(input.ExpectedResolutionDate)
	if err != nil {
		return time.Time{}, err
	}
	return date, nil
}

func validEmail(addr string) bool {
	parsed, err := mail.ParseAddress(strings.TrimSpace(addr))
	return err == nil && parsed.Address == strings.TrimSpace(addr)
}

// parseResolutionDate accepts a YYYY-MM-DD calendar date that is today or
// later, compared by UTC day.
func parseResolutionDate(value string) (time.Time, error) {
	date, err := time.Parse(resolutionDateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(FieldExpectedResolutionDate, "must be a valid YYYY-MM-DD date")
	}
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if date.Before(today) {
		return time.Time{}, apperrors.NewValidationError(FieldExpectedResolutionDate, "must not be in the past")
	}
	return date, nil
}

func stringField(name string, raw any) (string, error) {
	value, ok := raw.(string)
	if !ok {
		return "", apperrors.NewValidationError(name, "must be a string")
	}
	return value, nil
}

func decodeAttachment(raw any) (*domain.AttachmentReference, error) {
	if raw == nil {
		return nil, nil
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return nil, apperrors.NewValidationError(FieldAttachment, "must be an attachment reference object")
	}
	ref := &domain.AttachmentReference{}
	if url, ok := fields["url"].(string); ok {
		ref.URL = url
	}
	if name, ok := fields["originalName"].(string); ok {
		ref.OriginalName = name
	}
	if mime, ok := fields["mimeType"].(string); ok {
		ref.MimeType = mime
	}
	switch size := fields["sizeBytes"].(type) {
	case float64:
		ref.SizeBytes = int64(size)
	case int64:
		ref.SizeBytes = size
	}
	if ref.URL == "" {
		return nil, apperrors.NewValidationError(FieldAttachment, "url required")
	}
	return ref, nil
}
