package store

import (
	"fmt"
	"strings"

	"github.com/roach88/bayan/internal/entity"
)

// predicate is a WHERE condition. Values are always bound as parameters.
type predicate interface {
	compile() (string, []any)
}

// equals matches column = value.
type equals struct {
	Column string
	Value  any
}

func (e equals) compile() (string, []any) {
	return e.Column + " = ?", []any{e.Value}
}

// and matches when every predicate does. An empty and matches all rows.
type and []predicate

func (a and) compile() (string, []any) {
	if len(a) == 0 {
		return "1 = 1", nil
	}
	parts := make([]string, 0, len(a))
	var params []any
	for _, p := range a {
		sql, ps := p.compile()
		parts = append(parts, sql)
		params = append(params, ps...)
	}
	return strings.Join(parts, " AND "), params
}

// selectQuery is SELECT columns FROM table WHERE filter ORDER BY order.
// Every query carries an ORDER BY so reads are deterministic.
type selectQuery struct {
	Columns []string
	From    string
	Where   and
	OrderBy string
}

func (q selectQuery) compile() (string, []any, error) {
	if q.From == "" {
		return "", nil, fmt.Errorf("compile query: empty table")
	}
	if q.OrderBy == "" {
		return "", nil, fmt.Errorf("compile query: %s: missing order", q.From)
	}
	cols := "*"
	if len(q.Columns) > 0 {
		cols = strings.Join(q.Columns, ", ")
	}
	where, params := q.Where.compile()
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY %s", cols, q.From, where, q.OrderBy), params, nil
}

// eventsQuery selects a session's events matching filter, in seq order.
func eventsQuery(sessionID string, filter entity.EventFilter) selectQuery {
	where := and{equals{"session_id", sessionID}}
	for _, f := range []struct{ col, val string }{
		{"actor", filter.Actor},
		{"action", filter.Action},
		{"target", filter.Target},
	} {
		if f.val != "" {
			where = append(where, equals{f.col, f.val})
		}
	}
	return selectQuery{
		Columns: []string{"seq", "actor", "action", "target", "value", "sensitivity", "changes"},
		From:    "events",
		Where:   where,
		OrderBy: "seq ASC",
	}
}

// factsQuery selects a session's facts, optionally only those named name,
// in their saved resolution order.
func factsQuery(sessionID, name string) selectQuery {
	where := and{equals{"session_id", sessionID}}
	if name != "" {
		where = append(where, equals{"name", name})
	}
	return selectQuery{
		Columns: []string{"name", "args"},
		From:    "facts",
		Where:   where,
		OrderBy: "pos ASC",
	}
}
