package journal

import (
	"context"
	"database/sql"
	"time"

	"github.com/petrijr/recall/pkg/api"
)

// SQLiteStore stores call events in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements the interface.
var _ EventStore = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS call_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			call_id INTEGER NOT NULL,
			at INTEGER NOT NULL,
			type TEXT NOT NULL,
			call_type TEXT NOT NULL DEFAULT '',
			family TEXT NOT NULL DEFAULT '',
			attempt INTEGER NOT NULL DEFAULT 0,
			detail TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_call_events_call_id ON call_events(call_id, id);
	`)
	return err
}

func (s *SQLiteStore) AppendEvent(ctx context.Context, ev api.CallEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO call_events (call_id, at, type, call_type, family, attempt, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.CallID,
		at.UnixNano(),
		string(ev.Type),
		ev.CallType,
		ev.Family,
		ev.Attempt,
		ev.Detail,
	)
	return err
}

func (s *SQLiteStore) ListEvents(ctx context.Context, callID uint64) ([]api.CallEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT call_id, at, type, call_type, family, attempt, detail
		FROM call_events
		WHERE call_id = ?
		ORDER BY id ASC`, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *SQLiteStore) ListAll(ctx context.Context) ([]api.CallEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT call_id, at, type, call_type, family, attempt, detail
		FROM call_events
		ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]api.CallEvent, error) {
	var out []api.CallEvent
	for rows.Next() {
		var (
			callID   uint64
			atN      int64
			typ      string
			callType string
			family   string
			attempt  int
			detail   string
		)
		if err := rows.Scan(&callID, &atN, &typ, &callType, &family, &attempt, &detail); err != nil {
			return nil, err
		}
		out = append(out, api.CallEvent{
			CallID:   callID,
			At:       time.Unix(0, atN),
			Type:     api.EventType(typ),
			CallType: callType,
			Family:   family,
			Attempt:  attempt,
			Detail:   detail,
		})
	}
	return out, rows.Err()
}
