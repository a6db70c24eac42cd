// Package api executes authenticated calls against the Google REST APIs.
//
// Every outbound request goes through an Executor, which:
//   - asks the token refresher to make sure the access token is fresh,
//     propagating its error unchanged
//   - attaches the bearer credential, the user agent and, when configured,
//     the API key header
//   - performs exactly one round trip; retries are left to the caller
//   - normalizes provider error bodies into a single RequestError type
//
// The Executor's HTTPClient is what the Gmail, Calendar and Drive services
// are built on, so the same pre-flight check guards the typed adapters and
// the raw Do/Execute helpers.
package api
