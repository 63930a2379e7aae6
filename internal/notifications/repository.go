package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type notificationsDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists notifications in Postgres.
type Repository struct {
	db notificationsDB
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("notifications: nil pool")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB injects a narrow DB interface, used by tests.
func NewRepositoryWithDB(db notificationsDB) *Repository {
	return &Repository{db: db}
}

const notificationColumns = "id, client_id, type, title, body, read, created_at"

// ListByClient returns a client's notifications, newest first.
func (r *Repository) ListByClient(ctx context.Context, clientID string) ([]Notification, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, fmt.Errorf("notifications: client id is required")
	}
	rows, err := r.db.Query(ctx,
		"SELECT "+notificationColumns+" FROM notifications WHERE client_id = $1 ORDER BY created_at DESC",
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("notifications: list: %w", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.ClientID, &n.Type, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("notifications: scan: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("notifications: rows: %w", err)
	}
	return out, nil
}

// Create stores a new notification, filling in ID and CreatedAt when absent.
func (r *Repository) Create(ctx context.Context, n Notification) (*Notification, error) {
	if strings.TrimSpace(n.ClientID) == "" {
		return nil, fmt.Errorf("notifications: client id is required")
	}
	if strings.TrimSpace(n.Title) == "" {
		return nil, fmt.Errorf("notifications: title is required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	row := r.db.QueryRow(ctx,
		"INSERT INTO notifications (id, client_id, type, title, body, read, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING "+notificationColumns,
		n.ID, n.ClientID, n.Type, n.Title, n.Body, n.Read, n.CreatedAt,
	)
	var created Notification
	if err := row.Scan(&created.ID, &created.ClientID, &created.Type, &created.Title, &created.Body, &created.Read, &created.CreatedAt); err != nil {
		return nil, fmt.Errorf("notifications: create: %w", err)
	}
	return &created, nil
}

// MarkRead flags a single notification as read.
func (r *Repository) MarkRead(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, "UPDATE notifications SET read = TRUE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("notifications: mark read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notifications: %s not found", id)
	}
	return nil
}

// UnreadCount returns the number of unread notifications for a client.
func (r *Repository) UnreadCount(ctx context.Context, clientID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM notifications WHERE client_id = $1 AND read = FALSE",
		clientID,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("notifications: unread count: %w", err)
	}
	return count, nil
}
