package audit

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/google/uuid"

	"credreg/pkg/domain"
)

const eventColumns = `id, timestamp, actor, subject, credential_id, action, decision, reason, request_id`

// PostgresStore persists audit events in the audit_events table. Events are
// returned in insertion order, tracked by the seq column.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts an event. Re-appending an event ID is a no-op so retried
// deliveries do not duplicate the trail.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (`+eventColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		event.ID,
		event.Timestamp,
		event.Actor.String(),
		event.Subject.String(),
		int64(event.CredentialID),
		string(event.Action),
		event.Decision,
		event.Reason,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByCredential(ctx context.Context, id uint64) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM audit_events WHERE credential_id = $1 ORDER BY seq`,
		int64(id),
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns up to limit events, newest first. A non-positive limit
// returns every event.
func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 || limit > math.MaxInt32 {
		limit = math.MaxInt32
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM audit_events ORDER BY seq DESC LIMIT $1`,
		int32(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	events := []Event{}
	for rows.Next() {
		var (
			event        Event
			actor        string
			subject      string
			credentialID int64
			action       string
		)
		if err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&actor,
			&subject,
			&credentialID,
			&action,
			&event.Decision,
			&event.Reason,
			&event.RequestID,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Actor = domain.Identity(actor)
		event.Subject = domain.Identity(subject)
		event.CredentialID = domain.CredentialID(credentialID)
		event.Action = Action(action)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
