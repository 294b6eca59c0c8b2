package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/bayan/internal/entity"
	"github.com/roach88/bayan/internal/logic"
)

// Session statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Session is a saved run. Seq is assigned by the store on first save.
type Session struct {
	ID         string
	Seq        int64
	SourceFile string
	Status     string
	Error      string
}

// Snapshot is everything saved for one session.
type Snapshot struct {
	Session Session
	Facts   []*logic.Predicate
	Events  []entity.Event
}

// SaveSession writes a snapshot in one transaction. Saving the same
// session id again replaces its facts and events but keeps its seq, so
// a session resumed and saved later stays in its original place.
func (s *Store) SaveSession(ctx context.Context, snap Snapshot) error {
	sess := snap.Session
	if sess.ID == "" {
		return fmt.Errorf("save session: empty session id")
	}
	if sess.Status == "" {
		sess.Status = StatusOK
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save session: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, seq, source_file, status, error)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM sessions), ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_file = excluded.source_file,
			status = excluded.status,
			error = excluded.error
	`, sess.ID, sess.SourceFile, sess.Status, sess.Error)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	for _, table := range []string{"facts", "events"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE session_id = ?", sess.ID); err != nil {
			return fmt.Errorf("save session: clear %s: %w", table, err)
		}
	}

	if err := writeFacts(ctx, tx, sess.ID, snap.Facts); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	if err := writeEvents(ctx, tx, sess.ID, snap.Events); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save session: commit: %w", err)
	}
	return nil
}

func writeFacts(ctx context.Context, tx *sql.Tx, sessionID string, facts []*logic.Predicate) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO facts (session_id, pos, name, args, text)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write facts: prepare: %w", err)
	}
	defer stmt.Close()

	for i, f := range facts {
		args, err := marshalArgs(f)
		if err != nil {
			return fmt.Errorf("write facts: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, sessionID, i, f.Name, args, f.String()); err != nil {
			return fmt.Errorf("write facts: %s: %w", f, err)
		}
	}
	return nil
}

func writeEvents(ctx context.Context, tx *sql.Tx, sessionID string, events []entity.Event) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events (session_id, seq, actor, action, target, value, sensitivity, changes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		changes, err := marshalChanges(ev.Changes)
		if err != nil {
			return fmt.Errorf("write events: %w", err)
		}
		_, err = stmt.ExecContext(ctx, sessionID, ev.Seq, ev.Actor, ev.Action, ev.Target,
			ev.Value, ev.Sensitivity, changes)
		if err != nil {
			return fmt.Errorf("write events: seq %d: %w", ev.Seq, err)
		}
	}
	return nil
}

// DeleteSession removes a session with its facts and events. Deleting
// an unknown id is not an error.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
