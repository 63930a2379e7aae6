package dashboard

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/lib/pq"
)

// Stats aggregates portal-wide activity counters for a client.
type Stats struct {
	ClientID       string  `json:"client_id"`
	TotalMessages  int64   `json:"total_messages"`
	TotalTickets   int64   `json:"total_tickets"`
	OpenTickets    int64   `json:"open_tickets"`
	ClosedTickets  int64   `json:"closed_tickets"`
	ResolutionRate float64 `json:"resolution_rate"`
	TotalCustomers int64   `json:"total_customers"`
}

var openTicketStatuses = []string{"open"}

// StatsRepository queries activity counters from the database.
type StatsRepository struct {
	db *sql.DB
}

// NewStatsRepository creates a stats repository over a database/sql handle.
func NewStatsRepository(db *sql.DB) *StatsRepository {
	if db == nil {
		panic("dashboard: sql.DB required for stats")
	}
	return &StatsRepository{db: db}
}

// GetStats retrieves aggregated counters for a client.
func (r *StatsRepository) GetStats(ctx context.Context, clientID string) (*Stats, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("dashboard stats: client id is required")
	}
	stats := &Stats{ClientID: clientID}

	messagesQuery := `SELECT COUNT(*) FROM messages WHERE client_id = $1`
	if err := r.db.QueryRowContext(ctx, messagesQuery, clientID).Scan(&stats.TotalMessages); err != nil {
		return nil, fmt.Errorf("dashboard stats: count messages: %w", err)
	}

	ticketsQuery := `SELECT COUNT(*) FROM tickets WHERE client_id = $1`
	if err := r.db.QueryRowContext(ctx, ticketsQuery, clientID).Scan(&stats.TotalTickets); err != nil {
		return nil, fmt.Errorf("dashboard stats: count tickets: %w", err)
	}

	openQuery := `SELECT COUNT(*) FROM tickets WHERE client_id = $1 AND status = ANY($2)`
	if err := r.db.QueryRowContext(ctx, openQuery, clientID, pq.Array(openTicketStatuses)).Scan(&stats.OpenTickets); err != nil {
		return nil, fmt.Errorf("dashboard stats: count open tickets: %w", err)
	}

	closedQuery := `SELECT COUNT(*) FROM tickets WHERE client_id = $1 AND status = 'closed'`
	if err := r.db.QueryRowContext(ctx, closedQuery, clientID).Scan(&stats.ClosedTickets); err != nil {
		return nil, fmt.Errorf("dashboard stats: count closed tickets: %w", err)
	}

	// Resolution rate is closed over all tickets, whatever their status.
	if stats.TotalTickets > 0 {
		stats.ResolutionRate = math.Round(float64(stats.ClosedTickets) / float64(stats.TotalTickets) * 100)
	}

	// TODO: count distinct customers once messages carry a customer_id column.
	stats.TotalCustomers = 0

	return stats, nil
}
