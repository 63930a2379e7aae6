package appointments

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

// appointmentsDB defines the database interface needed by Repository.
type appointmentsDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository provides Postgres persistence for appointments.
type Repository struct {
	db appointmentsDB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db appointmentsDB) *Repository {
	return &Repository{db: db}
}

const appointmentColumns = `id, client_id, name, email, type, origin, date, time, status, created_at`

// ListByClient returns all appointments for a client, soonest first.
func (r *Repository) ListByClient(ctx context.Context, clientID string) ([]Appointment, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, fmt.Errorf("appointments: client_id required")
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE client_id = $1 ORDER BY date, time`
	rows, err := r.db.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate: %w", err)
	}
	return out, nil
}

// ListClientIDs returns the distinct client ids that have appointments. The
// preview scheduler uses it to decide which dashboards to refresh.
func (r *Repository) ListClientIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT client_id FROM appointments ORDER BY client_id`)
	if err != nil {
		return nil, fmt.Errorf("appointments: list clients: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("appointments: scan client: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate clients: %w", err)
	}
	return out, nil
}

// Create inserts a new appointment. Missing id and status are defaulted.
func (r *Repository) Create(ctx context.Context, a Appointment) (*Appointment, error) {
	if strings.TrimSpace(a.ClientID) == "" {
		return nil, fmt.Errorf("appointments: client_id required")
	}
	if _, err := a.StartsAt(); err != nil {
		return nil, err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + appointmentColumns
	row := r.db.QueryRow(ctx, query,
		a.ID, a.ClientID, a.Name, a.Email, a.Type, a.Origin, a.Date, a.Time, a.Status, a.CreatedAt)
	created, err := scanAppointment(row)
	if err != nil {
		return nil, fmt.Errorf("appointments: insert: %w", err)
	}
	return &created, nil
}

// UpdateParams carries optional field updates; nil fields are left unchanged.
type UpdateParams struct {
	Name   *string
	Email  *string
	Type   *string
	Origin *string
	Date   *string
	Time   *string
	Status *Status
}

// Update applies the non-nil fields to an appointment and returns the
// updated row.
func (r *Repository) Update(ctx context.Context, id string, params UpdateParams) (*Appointment, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("appointments: id required")
	}

	var sets []string
	args := []any{id}
	argNum := 2

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argNum))
		args = append(args, value)
		argNum++
	}
	if params.Name != nil {
		add("name", *params.Name)
	}
	if params.Email != nil {
		add("email", *params.Email)
	}
	if params.Type != nil {
		add("type", *params.Type)
	}
	if params.Origin != nil {
		add("origin", *params.Origin)
	}
	if params.Date != nil {
		add("date", *params.Date)
	}
	if params.Time != nil {
		add("time", *params.Time)
	}
	if params.Status != nil {
		add("status", *params.Status)
	}
	if len(sets) == 0 {
		return nil, fmt.Errorf("appointments: no fields to update")
	}

	query := `UPDATE appointments SET ` + strings.Join(sets, ", ") +
		` WHERE id = $1 RETURNING ` + appointmentColumns
	row := r.db.QueryRow(ctx, query, args...)
	updated, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("appointments: %s not found", id)
		}
		return nil, fmt.Errorf("appointments: update: %w", err)
	}
	return &updated, nil
}

// Delete removes an appointment by id.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("appointments: id required")
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointments: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointments: %s not found", id)
	}
	return nil
}

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ClientID, &a.Name, &a.Email, &a.Type, &a.Origin,
		&a.Date, &a.Time, &a.Status, &a.CreatedAt)
	return a, err
}
