package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/techmatters/terraso-go/pkg/model"
)

// Store handles audit log persistence to database
type Store struct {
	db *sql.DB
}

// Querier reads back persisted events. The time window applies to the
// timestamp the client reported.
type Querier interface {
	Logs(ctx context.Context, start, end time.Time) ([]Entry, error)
	LogsByUser(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]Entry, error)
	LogsByResource(ctx context.Context, resourceID uuid.UUID, start, end time.Time) ([]Entry, error)
	LogsByAction(ctx context.Context, action model.AuditEvent, start, end time.Time) ([]Entry, error)
}

var (
	_ Querier = (*Store)(nil)
	_ Sink    = (*Store)(nil)
)

// NewStore creates a new audit store from AUDIT_DATABASE_URL
// Returns nil if AUDIT_DATABASE_URL is not set (audit DB disabled)
func NewStore() (*Store, error) {
	dbURL := os.Getenv("AUDIT_DATABASE_URL")
	if dbURL == "" {
		return nil, nil
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

// NewStoreWithDB creates a store with an existing database connection
// Useful for testing with sqlmock
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func nullableUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
}

func jsonOrEmpty(v interface{}) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

// Write makes the store a recorder sink.
func (s *Store) Write(event Event) error {
	return s.Save(event)
}

// Save persists an audit event to the database
func (s *Store) Save(event Event) error {
	if s.db == nil {
		return nil
	}

	e := event.Entry()
	metadata, err := jsonOrEmpty(e.Metadata)
	if err != nil {
		return err
	}
	repr := []byte(e.ResourceJSON)
	if len(repr) == 0 {
		repr = []byte("{}")
	}

	_, err = s.db.Exec(`
		INSERT INTO audit_logs (timestamp, client_timestamp, user_id, user_human_readable, event,
			resource_id, resource_content_type, resource_json_repr, resource_human_readable, metadata, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		time.Now().UTC(),
		e.ClientTime,
		nullableUUID(e.UserID),
		e.UserName,
		string(e.Event),
		nullableUUID(e.ResourceID),
		e.ResourceType,
		repr,
		e.ResourceName,
		metadata,
		e.Message,
	)

	return err
}

const selectEntries = `
	SELECT id, timestamp, client_timestamp, user_id, user_human_readable, event, resource_id,
		resource_content_type, resource_json_repr, resource_human_readable, metadata, message
	FROM audit_logs
	WHERE client_timestamp BETWEEN $1 AND $2`

func (s *Store) query(ctx context.Context, where string, start, end time.Time, args ...interface{}) ([]Entry, error) {
	q := selectEntries
	if where != "" {
		q += " AND " + where
	}
	q += " ORDER BY client_timestamp"
	rows, err := s.db.QueryContext(ctx, q, append([]interface{}{start, end}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                  Entry
			userID, resourceID sql.NullString
			event              string
			repr, metadata     []byte
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.ClientTime, &userID, &e.UserName, &event, &resourceID,
			&e.ResourceType, &repr, &e.ResourceName, &metadata, &e.Message); err != nil {
			return nil, err
		}
		e.Event = model.AuditEvent(event)
		if userID.Valid {
			if id, err := uuid.Parse(userID.String); err == nil {
				e.UserID = &id
			}
		}
		if resourceID.Valid {
			if id, err := uuid.Parse(resourceID.String); err == nil {
				e.ResourceID = &id
			}
		}
		e.ResourceJSON = repr
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("invalid audit metadata: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Logs(ctx context.Context, start, end time.Time) ([]Entry, error) {
	return s.query(ctx, "", start, end)
}

func (s *Store) LogsByUser(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]Entry, error) {
	return s.query(ctx, "user_id = $3", start, end, userID.String())
}

func (s *Store) LogsByResource(ctx context.Context, resourceID uuid.UUID, start, end time.Time) ([]Entry, error) {
	return s.query(ctx, "resource_id = $3", start, end, resourceID.String())
}

func (s *Store) LogsByAction(ctx context.Context, action model.AuditEvent, start, end time.Time) ([]Entry, error) {
	return s.query(ctx, "event = $3", start, end, string(action))
}

// DB returns the underlying database connection (for testing)
func (s *Store) DB() *sql.DB {
	return s.db
}
