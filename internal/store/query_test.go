package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bayan/internal/entity"
)

func TestEventsQuery(t *testing.T) {
	tests := []struct {
		name       string
		filter     entity.EventFilter
		wantWhere  string
		wantParams []any
	}{
		{
			name:       "session only",
			wantWhere:  "WHERE session_id = ? ORDER BY",
			wantParams: []any{"s1"},
		},
		{
			name:       "actor",
			filter:     entity.EventFilter{Actor: "أحمد"},
			wantWhere:  "WHERE session_id = ? AND actor = ? ORDER BY",
			wantParams: []any{"s1", "أحمد"},
		},
		{
			name:       "all fields in column order",
			filter:     entity.EventFilter{Target: "t", Actor: "a", Action: "x"},
			wantWhere:  "WHERE session_id = ? AND actor = ? AND action = ? AND target = ? ORDER BY",
			wantParams: []any{"s1", "a", "x", "t"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, params, err := eventsQuery("s1", tt.filter).compile()
			require.NoError(t, err)
			assert.Contains(t, sql, "SELECT seq, actor, action, target, value, sensitivity, changes FROM events ")
			assert.Contains(t, sql, tt.wantWhere)
			assert.Contains(t, sql, "ORDER BY seq ASC")
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestFactsQuery(t *testing.T) {
	sql, params, err := factsQuery("s1", "").compile()
	require.NoError(t, err)
	assert.Equal(t, "SELECT name, args FROM facts WHERE session_id = ? ORDER BY pos ASC", sql)
	assert.Equal(t, []any{"s1"}, params)

	sql, params, err = factsQuery("s1", "state").compile()
	require.NoError(t, err)
	assert.Equal(t, "SELECT name, args FROM facts WHERE session_id = ? AND name = ? ORDER BY pos ASC", sql)
	assert.Equal(t, []any{"s1", "state"}, params)
}

func TestSelectQuery_NeverInterpolates(t *testing.T) {
	hostile := "x' OR '1'='1"
	sql, params, err := eventsQuery(hostile, entity.EventFilter{Actor: hostile}).compile()
	require.NoError(t, err)
	assert.NotContains(t, sql, hostile)
	assert.Equal(t, []any{hostile, hostile}, params)
}

func TestSelectQuery_Errors(t *testing.T) {
	_, _, err := selectQuery{OrderBy: "id"}.compile()
	assert.ErrorContains(t, err, "empty table")

	_, _, err = selectQuery{From: "events"}.compile()
	assert.ErrorContains(t, err, "missing order")
}

func TestAnd_Empty(t *testing.T) {
	sql, params := and{}.compile()
	assert.Equal(t, "1 = 1", sql)
	assert.Nil(t, params)

	sql, _, err := selectQuery{From: "sessions", OrderBy: "seq ASC"}.compile()
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM sessions WHERE 1 = 1 ORDER BY seq ASC", sql)
}
