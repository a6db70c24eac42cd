// Package gmail_tools exposes the signed-in user's mailbox as MCP tools:
//
//   - mail_list: list message IDs matching a Gmail search query
//   - mail_get: read one message with decoded bodies and attachment metadata
//   - mail_get_attachment: fetch one attachment as base64 or text
//   - mail_send: send a message with optional attachments (not in read-only mode)
package gmail_tools
