// Package session assembles the credential store, login flows, refresh
// coordinator, request executor, resource adapters and reconciliation
// engine behind one handle.
//
// A Session is created by Initialize and holds no global state, so several
// sessions with different client identities can coexist in one process.
package session
