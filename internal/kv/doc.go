// Package kv provides the small key-value capability used for state that must
// outlive a single request: the pending PKCE verifier of a redirect login and
// the opaque refresh secret.
//
// Two implementations exist. Memory suits tests and single-process CLI runs.
// SQLite persists to a local database file (modernc.org/sqlite, schema
// managed by goose migrations) so a server-side redirect flow can complete in
// a different process from the one that started it.
//
// Values are stored as given. Encrypting them is the caller's concern.
package kv
