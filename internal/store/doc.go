// Package store provides the gateway's credential store: a durable key/value
// map with optional per-key expiry.
//
// # Architecture
//
// Every backend implements the Store interface:
//
//   - MemoryStore: in-process map with a background expiry sweep (tests, dev)
//   - SQLStore over SQLite: modernc.org/sqlite ("sqlite") or mattn/go-sqlite3 ("sqlite3")
//   - SQLStore over PostgreSQL: pgx stdlib driver, schema managed by goose
//
// Namespaced wraps any Store and prefixes every key, so several deployments
// can share one database.
//
// # Keys
//
// The gateway stores three kinds of records:
//
//	agent:{fingerprint}          agent record (JSON)
//	name:{lower(name)}           name reservation -> fingerprint
//	reg-ip:{addr}:{YYYY-MM-DD}   registration counter (24h TTL)
//	rate:{fingerprint}:{date}    submission counter (24h TTL)
//
// # Atomic operations
//
// PutIfAbsent and Incr are single statements in the SQL backends and run
// under the store mutex in MemoryStore. Expired keys count as absent.
//
// # Error Handling
//
//   - ErrNotFound: key does not exist or has expired
//   - ErrNotCounter: Incr called on a key holding a non-integer value
//
// # Testing
//
// Use NewMemoryStore() for unit tests and NewSQLiteStore(path, "sqlite")
// under t.TempDir() for integration tests.
package store
