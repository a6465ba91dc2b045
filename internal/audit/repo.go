// Package audit records administrative actions taken through the dashboard.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the dashboard.
const (
	ActionUserCreated        = "user.created"
	ActionUserStatus         = "user.status"
	ActionDeviceCreated      = "device.created"
	ActionDeviceStatus       = "device.status"
	ActionClassroomSaved     = "classroom.saved"
	ActionNotificationQueued = "notification.queued"
	ActionNotificationSent   = "notification.sent"
	ActionNotificationFailed = "notification.failed"
	ActionReportExported     = "report.exported"
)

// Event is one recorded action.
type Event struct {
	ID        string
	ActorID   int
	Action    string
	Subject   string
	Detail    string
	CreatedAt time.Time
}

// Repository persists audit events in Postgres or sqlite.
type Repository struct {
	db     *sql.DB
	driver string
}

// NewRepository creates a repo. driver is the database/sql driver name the
// connection was opened with.
func NewRepository(db *sql.DB, driver string) *Repository {
	return &Repository{db: db, driver: driver}
}

// Migrate creates the audit table when missing.
func (r *Repository) Migrate(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			id         TEXT PRIMARY KEY,
			actor_id   INTEGER NOT NULL,
			action     TEXT NOT NULL,
			subject    TEXT NOT NULL DEFAULT '',
			detail     TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS audit_events_created_at ON audit_events (created_at)`)
	return err
}

// Record writes a new event.
func (r *Repository) Record(ctx context.Context, evt Event) (Event, error) {
	if evt.Action == "" {
		return Event{}, errors.New("action required")
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (id, actor_id, action, subject, detail, created_at)
		VALUES (`+r.placeholders(1, 6)+`)
	`, evt.ID, evt.ActorID, evt.Action, evt.Subject, evt.Detail, evt.CreatedAt)
	if err != nil {
		return Event{}, err
	}
	return evt, nil
}

// List returns events newest first, optionally narrowed to one action.
func (r *Repository) List(ctx context.Context, action string, limit, offset int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT id, actor_id, action, subject, detail, created_at FROM audit_events`
	args := []any{}
	if action != "" {
		query += " WHERE action = " + r.placeholder(len(args)+1)
		args = append(args, action)
	}
	query += " ORDER BY created_at DESC, id LIMIT " + r.placeholder(len(args)+1) + " OFFSET " + r.placeholder(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.ActorID, &evt.Action, &evt.Subject, &evt.Detail, &evt.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, evt)
	}
	return res, rows.Err()
}

// Count returns how many events match action (all when empty).
func (r *Repository) Count(ctx context.Context, action string) (int, error) {
	query := `SELECT COUNT(*) FROM audit_events`
	args := []any{}
	if action != "" {
		query += " WHERE action = " + r.placeholder(1)
		args = append(args, action)
	}
	var n int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func (r *Repository) placeholder(i int) string {
	if r.driver == "pgx" {
		return "$" + strconv.Itoa(i)
	}
	return "?"
}

func (r *Repository) placeholders(from, to int) string {
	parts := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		parts = append(parts, r.placeholder(i))
	}
	return strings.Join(parts, ", ")
}
