package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-tracker/internal/api/dto"
	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/service"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/util"
)

// TicketsHandler manages ticket endpoints for both roles.
type TicketsHandler struct {
	tickets     *service.TicketService
	attachments *service.AttachmentService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, attachmentService *service.AttachmentService) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, attachments: attachmentService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("body", "invalid payload")
	}

	input := service.TicketCreateInput{
		Title:                  req.Title,
		Description:            req.Description,
		Priority:               req.Priority,
		Category:               req.Category,
		DepartmentAffected:     req.DepartmentAffected,
		ContactEmail:           req.ContactEmail,
		ContactPhone:           req.ContactPhone,
		PreferredContact:       req.PreferredContact,
		ExpectedResolutionDate: req.ExpectedResolutionDate,
		Attachment:             req.Attachment,
	}
	ticket, err := h.tickets.Create(c.UserContext(), principal, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	tickets, err := h.tickets.List(c.UserContext(), principal)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.tickets.Get(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// UpdateTicket PATCH /tickets/:id. The body is a raw field map so the engine
// sees exactly the fields the caller sent, including explicit nulls.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var fields map[string]any
	if err := json.Unmarshal(c.Body(), &fields); err != nil {
		return apperrors.NewValidationError("body", "invalid payload")
	}
	if len(fields) == 0 {
		return apperrors.NewValidationError("body", "no fields to update")
	}
	ticket, err := h.tickets.Update(c.UserContext(), principal, c.Params("id"), fields)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.tickets.Delete(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UploadAttachment POST /tickets/attachments. Accepts a multipart file and
// returns the stored reference for the client to place on a ticket.
func (h *TicketsHandler) UploadAttachment(c *fiber.Ctx) error {
	if _, ok := auth.PrincipalFromContext(c); !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file", "multipart file required")
	}
	if fileHeader.Size > h.attachments.MaxSizeBytes() {
		return apperrors.NewFileTooLarge(h.attachments.MaxSizeBytes())
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewValidationError("file", "unreadable upload")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return apperrors.NewValidationError("file", "unreadable upload")
	}

	ref, err := h.attachments.Store(c.UserContext(), data, fileHeader.Filename, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachmentResponse(ref)})
}

func ticketResponse(ticket *domain.Ticket) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:                     ticket.ID,
		Title:                  ticket.Title,
		Description:            ticket.Description,
		Priority:               ticket.Priority,
		Status:                 ticket.Status,
		Category:               ticket.Category,
		DepartmentAffected:     ticket.DepartmentAffected,
		ContactEmail:           ticket.ContactEmail,
		ContactPhone:           ticket.ContactPhone,
		PreferredContact:       ticket.PreferredContact,
		ExpectedResolutionDate: ticket.ExpectedResolutionDate.Format("2006-01-02"),
		CreatedBy:              ticket.CreatedBy,
		CreatedByEmail:         ticket.CreatedByEmail,
		AssignedToEmail:        ticket.AssignedToEmail,
		CreatedAt:              ticket.CreatedAt,
		UpdatedAt:              ticket.UpdatedAt,
		UpdatedBy:              ticket.UpdatedBy,
	}
	if ticket.Attachment != nil {
		att := attachmentResponse(ticket.Attachment)
		resp.Attachment = &att
	}
	return resp
}

func attachmentResponse(ref *domain.AttachmentReference) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		URL:          ref.URL,
		OriginalName: ref.OriginalName,
		MimeType:     ref.MimeType,
		SizeBytes:    ref.SizeBytes,
		IsImage:      domain.IsImageMime(ref.MimeType),
	}
}
