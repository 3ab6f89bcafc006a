package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/agentloop/core"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT NOT NULL,
	item_index INTEGER NOT NULL,
	item_data TEXT NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (session_id, item_index)
)`

// SQLite is a durable Session implementation backed by a SQLite database.
// Multiple sessions share one database file, keyed by session id. Items are
// stored as JSON rows with a monotonically increasing per-session index.
type SQLite struct {
	sessionID string
	db        *sql.DB
	ownsDB    bool
}

var _ Session = (*SQLite)(nil)

// NewSQLite opens (or creates) the database at path and prepares the schema.
// The returned session should be closed when no longer needed.
func NewSQLite(sessionID, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, core.NewSessionError(err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, core.NewSessionError(err)
		}
	}

	s := &SQLite{sessionID: sessionID, db: db, ownsDB: true}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// NewSQLiteFromDB reuses an already opened database handle. The caller keeps
// ownership of the handle; Close becomes a no-op.
func NewSQLiteFromDB(sessionID string, db *sql.DB) (*SQLite, error) {
	s := &SQLite{sessionID: sessionID, db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *SQLite) migrate() error {
	if _, err := s.db.Exec(sqliteSchema); err != nil {
		return core.NewSessionError(err)
	}
	return nil
}

// Close releases the database handle if this session opened it.
func (s *SQLite) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

// GetItems implements Session.
func (s *SQLite) GetItems(ctx context.Context, limit int) ([]core.Message, error) {
	var (
		rows *sql.Rows
		err  error
	)

	if limit > 0 {
		rows, err = s.db.QueryContext(ctx,
			"SELECT item_data FROM sessions WHERE session_id = ? ORDER BY item_index DESC LIMIT ?",
			s.sessionID, limit,
		)
	} else {
		rows, err = s.db.QueryContext(ctx,
			"SELECT item_data FROM sessions WHERE session_id = ? ORDER BY item_index ASC",
			s.sessionID,
		)
	}
	if err != nil {
		return nil, core.NewSessionError(err)
	}
	defer rows.Close()

	var items []core.Message

	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, core.NewSessionError(err)
		}

		var msg core.Message
		if err := json.Unmarshal([]byte(data), &msg); err != nil {
			return nil, core.NewSerializationError(err)
		}

		items = append(items, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, core.NewSessionError(err)
	}

	// Limited queries read newest first; flip back to chronological order.
	if limit > 0 {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}

	return items, nil
}

// AddItems implements Session. All items are inserted in one transaction so
// concurrent writers never interleave indexes.
func (s *SQLite) AddItems(ctx context.Context, items []core.Message) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return core.NewSessionError(err)
	}
	defer tx.Rollback()

	var next int64
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(item_index), -1) + 1 FROM sessions WHERE session_id = ?",
		s.sessionID,
	).Scan(&next); err != nil {
		return core.NewSessionError(err)
	}

	for i, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return core.NewSerializationError(err)
		}

		if _, err := tx.ExecContext(ctx,
			"INSERT INTO sessions (session_id, item_index, item_data) VALUES (?, ?, ?)",
			s.sessionID, next+int64(i), string(data),
		); err != nil {
			return core.NewSessionError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.NewSessionError(err)
	}

	return nil
}

// PopItem implements Session.
func (s *SQLite) PopItem(ctx context.Context) (*core.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, core.NewSessionError(err)
	}
	defer tx.Rollback()

	var (
		index int64
		data  string
	)

	err = tx.QueryRowContext(ctx,
		"SELECT item_index, item_data FROM sessions WHERE session_id = ? ORDER BY item_index DESC LIMIT 1",
		s.sessionID,
	).Scan(&index, &data)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, core.NewSessionError(err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM sessions WHERE session_id = ? AND item_index = ?",
		s.sessionID, index,
	); err != nil {
		return nil, core.NewSessionError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, core.NewSessionError(err)
	}

	var msg core.Message
	if err := json.Unmarshal([]byte(data), &msg); err != nil {
		return nil, core.NewSerializationError(err)
	}

	return &msg, nil
}

// Clear implements Session.
func (s *SQLite) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE session_id = ?", s.sessionID,
	); err != nil {
		return core.NewSessionError(err)
	}

	return nil
}
