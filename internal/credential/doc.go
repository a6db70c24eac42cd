// Package credential holds the single OAuth credential a session works with.
//
// The access token and its expiry live in memory behind one lock. The
// long-lived refresh secret is written through an injected kv.Store and only
// its presence is visible on a Credential snapshot. The store performs no
// network calls.
package credential
