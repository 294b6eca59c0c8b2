package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/bayan/internal/entity"
	"github.com/roach88/bayan/internal/logic"
)

// ReadSession retrieves a single session by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, seq, source_file, status, error
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &sess.Seq, &sess.SourceFile, &sess.Status, &sess.Error)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// LatestSession returns the most recently created session.
// Returns sql.ErrNoRows if the store is empty.
func (s *Store) LatestSession(ctx context.Context) (Session, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM sessions ORDER BY seq DESC LIMIT 1
	`).Scan(&id)
	if err != nil {
		return Session{}, err
	}
	return s.ReadSession(ctx, id)
}

// ListSessions returns every session in creation order.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, source_file, status, error
		FROM sessions
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Seq, &sess.SourceFile, &sess.Status, &sess.Error); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadFacts returns a session's facts in their saved resolution order.
// An empty name returns every fact.
func (s *Store) ReadFacts(ctx context.Context, sessionID, name string) ([]*logic.Predicate, error) {
	query, args, err := factsQuery(sessionID, name).compile()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	facts := []*logic.Predicate{}
	for rows.Next() {
		var pname, data string
		if err := rows.Scan(&pname, &data); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		p, err := unmarshalArgs(pname, data)
		if err != nil {
			return nil, err
		}
		facts = append(facts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return facts, nil
}

// ReadEvents returns a session's events matching filter, ordered by seq.
func (s *Store) ReadEvents(ctx context.Context, sessionID string, filter entity.EventFilter) ([]entity.Event, error) {
	query, args, err := eventsQuery(sessionID, filter).compile()
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []entity.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (entity.Event, error) {
	var ev entity.Event
	var changes string
	if err := rows.Scan(&ev.Seq, &ev.Actor, &ev.Action, &ev.Target, &ev.Value, &ev.Sensitivity, &changes); err != nil {
		return entity.Event{}, fmt.Errorf("scan event: %w", err)
	}
	c, err := unmarshalChanges(changes)
	if err != nil {
		return entity.Event{}, err
	}
	ev.Changes = c
	return ev, nil
}
