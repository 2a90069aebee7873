package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// TicketFilter scopes a ticket scan to a single owner when set.
type TicketFilter struct {
	CreatedBy *string
}

// TicketRepository encapsulates ticket persistence. The store applies each
// Update atomically for a ticket id; the engine writes the whole validated
// record in one call.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, priority, status, category, department_affected,
               contact_email, contact_phone, preferred_contact, expected_resolution_date,
               attachment, created_by, created_by_email, assigned_to_email,
               created_at, updated_at, updated_by`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, priority, status, category, department_affected,
            contact_email, contact_phone, preferred_contact, expected_resolution_date,
            attachment, created_by, created_by_email, assigned_to_email, updated_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
        RETURNING id, created_at, updated_at`
	attachment, err := marshalAttachment(ticket.Attachment)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.Category,
		ticket.DepartmentAffected,
		ticket.ContactEmail,
		ticket.ContactPhone,
		ticket.PreferredContact,
		ticket.ExpectedResolutionDate,
		attachment,
		ticket.CreatedBy,
		ticket.CreatedByEmail,
		ticket.AssignedToEmail,
		ticket.UpdatedBy,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, priority=$3, status=$4,
            contact_email=$5, contact_phone=$6, preferred_contact=$7, expected_resolution_date=$8,
            attachment=$9, assigned_to_email=$10, updated_by=$11, updated_at=NOW()
        WHERE id=$12`
	attachment, err := marshalAttachment(ticket.Attachment)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.ContactEmail,
		ticket.ContactPhone,
		ticket.PreferredContact,
		ticket.ExpectedResolutionDate,
		attachment,
		ticket.AssignedToEmail,
		ticket.UpdatedBy,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	var attachment []byte
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Category,
		&ticket.DepartmentAffected,
		&ticket.ContactEmail,
		&ticket.ContactPhone,
		&ticket.PreferredContact,
		&ticket.ExpectedResolutionDate,
		&attachment,
		&ticket.CreatedBy,
		&ticket.CreatedByEmail,
		&ticket.AssignedToEmail,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.UpdatedBy,
	); err != nil {
		return nil, err
	}
	ref, err := unmarshalAttachment(attachment)
	if err != nil {
		return nil, err
	}
	ticket.Attachment = ref
	return &ticket, nil
}

// List returns tickets newest first; identical timestamps are ordered by id
// ascending so the scan order is deterministic.
func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	args := []any{}
	if filter.CreatedBy != nil {
		query += ` WHERE created_by=$1`
		args = append(args, *filter.CreatedBy)
	}
	query += ` ORDER BY created_at DESC, id ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		var attachment []byte
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Priority,
			&ticket.Status,
			&ticket.Category,
			&ticket.DepartmentAffected,
			&ticket.ContactEmail,
			&ticket.ContactPhone,
			&ticket.PreferredContact,
			&ticket.ExpectedResolutionDate,
			&attachment,
			&ticket.CreatedBy,
			&ticket.CreatedByEmail,
			&ticket.AssignedToEmail,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.UpdatedBy,
		); err != nil {
			return nil, err
		}
		ref, err := unmarshalAttachment(attachment)
		if err != nil {
			return nil, err
		}
		ticket.Attachment = ref
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func marshalAttachment(ref *domain.AttachmentReference) ([]byte, error) {
	if ref == nil {
		return nil, nil
	}
	return json.Marshal(ref)
}

func unmarshalAttachment(raw []byte) (*domain.AttachmentReference, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ref domain.AttachmentReference
	if err := json.Unmarshal(raw, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}
