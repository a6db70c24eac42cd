package google

// DefaultScopes are requested when the caller does not configure scopes.
//
// The scopes provide access to:
//   - OpenID Connect user info (email, for status output)
//   - Gmail: read and send
//   - Google Calendar: full access
//   - Google Drive: full access
var DefaultScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",

	"https://www.googleapis.com/auth/gmail.readonly",
	"https://www.googleapis.com/auth/gmail.send",

	"https://www.googleapis.com/auth/calendar",

	"https://www.googleapis.com/auth/drive",
}
