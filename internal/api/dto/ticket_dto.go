package dto

import (
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title                  string                      `json:"title"`
	Description            string                      `json:"description"`
	Priority               domain.TicketPriority       `json:"priority"`
	Category               string                      `json:"category"`
	DepartmentAffected     string                      `json:"departmentAffected"`
	ContactEmail           string                      `json:"contactEmail"`
	ContactPhone           string                      `json:"contactPhone"`
	PreferredContact       domain.PreferredContact     `json:"preferredContact"`
	ExpectedResolutionDate string                      `json:"expectedResolutionDate"`
	Attachment             *domain.AttachmentReference `json:"attachment,omitempty"`
}

// AttachmentResponse carries the reference plus its display classification.
type AttachmentResponse struct {
	URL          string `json:"url"`
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	SizeBytes    int64  `json:"sizeBytes"`
	IsImage      bool   `json:"isImage"`
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	ID                     string                  `json:"id"`
	Title                  string                  `json:"title"`
	Description            string                  `json:"description"`
	Priority               domain.TicketPriority   `json:"priority"`
	Status                 domain.TicketStatus     `json:"status"`
	Category               string                  `json:"category"`
	DepartmentAffected     string                  `json:"departmentAffected"`
	ContactEmail           string                  `json:"contactEmail"`
	ContactPhone           string                  `json:"contactPhone"`
	PreferredContact       domain.PreferredContact `json:"preferredContact"`
	ExpectedResolutionDate string                  `json:"expectedResolutionDate"`
	Attachment             *AttachmentResponse     `json:"attachment,omitempty"`
	CreatedBy              string                  `json:"createdBy"`
	CreatedByEmail         string                  `json:"createdByEmail"`
	AssignedToEmail        *string                 `json:"assignedToEmail,omitempty"`
	CreatedAt              time.Time               `json:"createdAt"`
	UpdatedAt              time.Time               `json:"updatedAt"`
	UpdatedBy              string                  `json:"updatedBy"`
}
