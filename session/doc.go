// Package session provides conversation history storage. A Session holds the
// ordered message log of one conversation; the runner seeds each run from it
// and persists the turn's outcome back. Three implementations are included:
// InMemory for tests and ephemeral use, SQLite for durable single-node
// storage, and Redis for shared storage across processes.
//
// Implementations must be safe for concurrent use; the runner may read and
// write from multiple runs that share one session id.
package session
