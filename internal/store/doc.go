// Package store provides SQLite-backed persistence for Bayan sessions.
//
// A saved session is a snapshot taken after a program ran:
//   - Sessions: id (UUIDv7), source file, outcome
//   - Facts: every fact in the knowledge base, in resolution order
//   - Events: the entity engine's event log
//
// # Ordering
//
// Sessions are ordered by a store-assigned seq, facts by their position in
// the knowledge base and events by the engine's logical clock. Every read
// orders by these columns, never by timestamps, so listings are identical
// across runs.
//
// # Typed constants
//
// Fact arguments are stored as a JSON array of {"t": type, "v": value}
// pairs so int64, float64, string, bool and none survive a round trip and
// restored facts unify exactly as the originals did.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
