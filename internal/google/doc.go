// Package google manages the single OAuth2 identity lexsync uses for Gmail,
// Calendar and Drive.
//
// An Authenticator drives the two login protocols Google offers to a client:
//
//   - the implicit (popup) grant, modelled as an ImplicitFlow that resolves
//     exactly once, and
//   - the redirect grant with PKCE, where the code verifier is written to an
//     injected kv.Store so that the callback can be handled by a different
//     process from the one that started the flow.
//
// Both flows write into a credential.Store. A Refresher keeps that store
// fresh before outbound calls by exchanging the stored refresh secret, and
// reports AuthError with CodeReauthenticationRequired when it cannot. It
// never starts an interactive flow on its own.
package google
