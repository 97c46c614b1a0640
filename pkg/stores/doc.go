// Package stores provides the run-history persistence layer. It
// includes SQLite-based storage with WAL mode, connection pooling, and
// CRUD operations for reconciliation runs and their action records.
package stores
