package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ticket statuses and priorities.
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusResolved   = "resolved"
	TicketStatusClosed     = "closed"
)

// SupportTicket is a customer issue awaiting human follow-up.
// ResolvedAt is set exactly when status becomes "resolved".
type SupportTicket struct {
	ID               int        `json:"ticket_id"`
	CustomerName     string     `json:"customer_name"`
	CustomerEmail    string     `json:"customer_email"`
	IssueDescription string     `json:"issue_description"`
	Priority         string     `json:"priority"` // low, medium, high, urgent
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	ResolvedAt       *time.Time `json:"resolved_at,omitempty"`
}

// TicketService manages support tickets.
type TicketService interface {
	CreateTicket(ctx context.Context, customerName, customerEmail, issue, priority string) (int, error)
	GetTicket(ctx context.Context, ticketID int) (*SupportTicket, error)
	ListTickets(ctx context.Context, status *string) ([]SupportTicket, error)
	UpdateTicketStatus(ctx context.Context, ticketID int, status string) error
}

type ticketService struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewTicketService(pool *pgxpool.Pool, log *slog.Logger) TicketService {
	return &ticketService{pool: pool, log: log}
}

const ticketColumns = `id, customer_name, customer_email, issue_description,
	priority, status, created_at, updated_at, resolved_at`

func (s *ticketService) CreateTicket(ctx context.Context, customerName, customerEmail, issue, priority string) (int, error) {
	if priority == "" {
		priority = "medium"
	}
	var ticketID int
	err := s.pool.QueryRow(ctx, `
		INSERT INTO support_tickets (customer_name, customer_email, issue_description, priority, status)
		VALUES ($1, $2, $3, $4, 'open')
		RETURNING id
	`, customerName, customerEmail, issue, priority).Scan(&ticketID)
	if err != nil {
		return 0, fmt.Errorf("failed to create support ticket: %w", err)
	}
	s.log.Info("support ticket created", "ticket_id", ticketID, "priority", priority)
	return ticketID, nil
}

func (s *ticketService) GetTicket(ctx context.Context, ticketID int) (*SupportTicket, error) {
	var t SupportTicket
	err := s.pool.QueryRow(ctx,
		"SELECT "+ticketColumns+" FROM support_tickets WHERE id = $1", ticketID,
	).Scan(&t.ID, &t.CustomerName, &t.CustomerEmail, &t.IssueDescription,
		&t.Priority, &t.Status, &t.CreatedAt, &t.UpdatedAt, &t.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ticket %d: %w", ticketID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch ticket %d: %w", ticketID, err)
	}
	return &t, nil
}

func (s *ticketService) ListTickets(ctx context.Context, status *string) ([]SupportTicket, error) {
	query := "SELECT " + ticketColumns + " FROM support_tickets"
	var args []any
	if status != nil {
		query += " WHERE status = $1"
		args = append(args, *status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickets: %w", err)
	}
	defer rows.Close()

	var tickets []SupportTicket
	for rows.Next() {
		var t SupportTicket
		if err := rows.Scan(&t.ID, &t.CustomerName, &t.CustomerEmail, &t.IssueDescription,
			&t.Priority, &t.Status, &t.CreatedAt, &t.UpdatedAt, &t.ResolvedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (s *ticketService) UpdateTicketStatus(ctx context.Context, ticketID int, status string) error {
	query := "UPDATE support_tickets SET status = $1, updated_at = NOW() WHERE id = $2"
	if status == TicketStatusResolved {
		query = "UPDATE support_tickets SET status = $1, updated_at = NOW(), resolved_at = NOW() WHERE id = $2"
	}
	tag, err := s.pool.Exec(ctx, query, status, ticketID)
	if err != nil {
		return fmt.Errorf("failed to update ticket %d status: %w", ticketID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ticket %d: %w", ticketID, ErrNotFound)
	}
	s.log.Info("ticket status updated", "ticket_id", ticketID, "status", status)
	return nil
}
