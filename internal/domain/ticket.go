package domain

import (
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "new"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusPending    TicketStatus = "pending"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// IsValid reports whether the status is a known state.
func (s TicketStatus) IsValid() bool {
	switch s {
	case TicketStatusNew, TicketStatusInProgress, TicketStatusPending, TicketStatusResolved, TicketStatusClosed:
		return true
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// IsValid reports whether the priority is a known level.
func (p TicketPriority) IsValid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// PreferredContact enumerates how the requester wants to be reached.
type PreferredContact string

const (
	PreferredContactEmail PreferredContact = "email"
	PreferredContactPhone PreferredContact = "phone"
)

// IsValid reports whether the contact channel is known.
func (c PreferredContact) IsValid() bool {
	return c == PreferredContactEmail || c == PreferredContactPhone
}

// AttachmentReference points at an uploaded file without carrying its bytes.
type AttachmentReference struct {
	URL          string `json:"url"`
	OriginalName string `json:"originalName"`
	MimeType     string `json:"mimeType"`
	SizeBytes    int64  `json:"sizeBytes"`
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                     string
	Title                  string
	Description            string
	Priority               TicketPriority
	Status                 TicketStatus
	Category               string
	DepartmentAffected     string
	ContactEmail           string
	ContactPhone           string
	PreferredContact       PreferredContact
	ExpectedResolutionDate time.Time
	Attachment             *AttachmentReference
	CreatedBy              string
	CreatedByEmail         string
	AssignedToEmail        *string
	CreatedAt              time.Time
	UpdatedAt              time.Time
	UpdatedBy              string
}

// IsImageMime classifies a mime type as displayable image content.
func IsImageMime(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}
