package store

import (
	"context"
	"fmt"

	"github.com/roach88/bayan/internal/logic"
)

// Restore asserts a session's saved facts into kb in their saved order
// and returns how many were asserted. Entity state is part of the
// mirrored facts, so a restored KB answers state/3 and property/3 queries
// the way the saved session did.
func (s *Store) Restore(ctx context.Context, sessionID string, kb *logic.KB) (int, error) {
	if _, err := s.ReadSession(ctx, sessionID); err != nil {
		return 0, fmt.Errorf("restore %s: %w", sessionID, err)
	}
	facts, err := s.ReadFacts(ctx, sessionID, "")
	if err != nil {
		return 0, fmt.Errorf("restore %s: %w", sessionID, err)
	}
	for _, f := range facts {
		kb.Assertz(f)
	}
	return len(facts), nil
}
