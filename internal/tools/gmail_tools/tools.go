package gmail_tools

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/lexsync/internal/gmail"
	"github.com/teemow/lexsync/internal/server"
	"github.com/teemow/lexsync/internal/tools/common"
)

// maxListResults caps mail_list pages.
const maxListResults = 500

// messageView is a message as tools return it, with bodies as text.
type messageView struct {
	ID          string                 `json:"id"`
	ThreadID    string                 `json:"threadId"`
	LabelIDs    []string               `json:"labelIds,omitempty"`
	From        string                 `json:"from,omitempty"`
	To          string                 `json:"to,omitempty"`
	Cc          string                 `json:"cc,omitempty"`
	Subject     string                 `json:"subject,omitempty"`
	Date        *time.Time             `json:"date,omitempty"`
	Snippet     string                 `json:"snippet,omitempty"`
	Body        string                 `json:"body,omitempty"`
	HTMLBody    string                 `json:"htmlBody,omitempty"`
	Attachments []gmail.AttachmentInfo `json:"attachments,omitempty"`
}

func newMessageView(m *gmail.Message, includeHTML bool) messageView {
	v := messageView{
		ID:          m.ID,
		ThreadID:    m.ThreadID,
		LabelIDs:    m.LabelIDs,
		From:        m.From,
		To:          m.To,
		Cc:          m.Cc,
		Subject:     m.Subject,
		Snippet:     m.Snippet,
		Body:        string(m.Body),
		Attachments: m.Attachments,
	}
	if !m.Date.IsZero() {
		v.Date = &m.Date
	}
	if includeHTML || len(m.Body) == 0 {
		v.HTMLBody = string(m.HTMLBody)
	}
	return v
}

// RegisterGmailTools registers the mail tools. mail_send is left out when
// readOnly is set.
func RegisterGmailTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	listTool := mcp.NewTool("mail_list",
		mcp.WithDescription("List messages in the mailbox matching a Gmail search query"),
		mcp.WithString("query",
			mcp.Description("Gmail search query (e.g., 'from:clerk@court.example is:unread')"),
		),
		mcp.WithNumber("maxResults",
			mcp.Description("Maximum number of messages to return (default: 20, max: 500)"),
		),
		mcp.WithString("pageToken",
			mcp.Description("Page token from a previous mail_list call"),
		),
		mcp.WithString("labelIds",
			mcp.Description("Comma-separated label IDs the messages must carry (e.g., 'INBOX,UNREAD')"),
		),
	)
	s.AddTool(listTool, common.InstrumentedToolHandler("mail_list", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleList(ctx, request, sc)
	}))

	getTool := mcp.NewTool("mail_get",
		mcp.WithDescription("Read a message: headers, decoded body and attachment metadata"),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The message ID"),
		),
		mcp.WithBoolean("includeHtml",
			mcp.Description("Include the HTML body even when a plain text body exists (default: false)"),
		),
	)
	s.AddTool(getTool, common.InstrumentedToolHandler("mail_get", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGet(ctx, request, sc)
	}))

	attachmentTool := mcp.NewTool("mail_get_attachment",
		mcp.WithDescription("Fetch the content of a message attachment"),
		mcp.WithString("messageId",
			mcp.Required(),
			mcp.Description("The message ID"),
		),
		mcp.WithString("attachmentId",
			mcp.Required(),
			mcp.Description("The attachment ID from mail_get"),
		),
		mcp.WithString("encoding",
			mcp.Description("'base64' (default) or 'text' for text attachments such as .ics or .txt"),
		),
	)
	s.AddTool(attachmentTool, common.InstrumentedToolHandler("mail_get_attachment", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleGetAttachment(ctx, request, sc)
	}))

	if readOnly {
		return nil
	}

	sendTool := mcp.NewTool("mail_send",
		mcp.WithDescription("Send an email"),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Comma-separated recipient addresses"),
		),
		mcp.WithString("cc",
			mcp.Description("Comma-separated CC addresses"),
		),
		mcp.WithString("bcc",
			mcp.Description("Comma-separated BCC addresses"),
		),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("The subject line"),
		),
		mcp.WithString("body",
			mcp.Required(),
			mcp.Description("The message body"),
		),
		mcp.WithBoolean("isHtml",
			mcp.Description("Send the body as HTML (default: false)"),
		),
		mcp.WithString("attachmentName",
			mcp.Description("Filename of a single attachment"),
		),
		mcp.WithString("attachmentContent",
			mcp.Description("Base64-encoded attachment content"),
		),
		mcp.WithString("attachmentMimeType",
			mcp.Description("MIME type of the attachment (default: application/octet-stream)"),
		),
	)
	s.AddTool(sendTool, common.InstrumentedToolHandler("mail_send", sc, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return handleSend(ctx, request, sc)
	}))

	return nil
}

func handleList(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	maxResults := common.IntArg(args, "maxResults", 20)
	if maxResults < 1 || maxResults > maxListResults {
		return mcp.NewToolResultError(fmt.Sprintf("maxResults must be between 1 and %d", maxListResults)), nil
	}

	messages, next, err := sc.Session().Messages().List(ctx, gmail.ListOptions{
		Query:      common.StringArg(args, "query"),
		MaxResults: maxResults,
		PageToken:  common.StringArg(args, "pageToken"),
		LabelIDs:   common.ParseCommaList(common.StringArg(args, "labelIds")),
	})
	if err != nil {
		return common.ErrorResult("Failed to list messages", err), nil
	}

	return common.JSONResult(fmt.Sprintf("Found %d message(s):", len(messages)), map[string]any{
		"messages":      messages,
		"nextPageToken": next,
	})
}

func handleGet(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	id, err := common.RequiredString(args, "messageId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	msg, err := sc.Session().Messages().Get(ctx, id)
	if err != nil {
		return common.ErrorResult("Failed to get message", err), nil
	}
	return common.JSONResult("", newMessageView(msg, common.BoolArg(args, "includeHtml", false)))
}

func handleGetAttachment(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	messageID, err := common.RequiredString(args, "messageId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	attachmentID, err := common.RequiredString(args, "attachmentId")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	encoding := common.StringArg(args, "encoding")
	if encoding == "" {
		encoding = "base64"
	}
	if encoding != "base64" && encoding != "text" {
		return mcp.NewToolResultError("encoding must be 'base64' or 'text'"), nil
	}

	data, err := sc.Session().Messages().GetAttachment(ctx, messageID, attachmentID)
	if err != nil {
		return common.ErrorResult("Failed to get attachment", err), nil
	}

	if encoding == "text" {
		return mcp.NewToolResultText(string(data)), nil
	}
	return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(data)), nil
}

func handleSend(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	to := common.ParseCommaList(common.StringArg(args, "to"))
	if len(to) == 0 {
		return mcp.NewToolResultError("to is required"), nil
	}
	subject, err := common.RequiredString(args, "subject")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, _ := args["body"].(string)
	if body == "" {
		return mcp.NewToolResultError("body is required"), nil
	}

	msg := gmail.OutgoingMessage{
		To:      to,
		Cc:      common.ParseCommaList(common.StringArg(args, "cc")),
		Bcc:     common.ParseCommaList(common.StringArg(args, "bcc")),
		Subject: subject,
		Body:    body,
		HTML:    common.BoolArg(args, "isHtml", false),
	}

	if name := common.StringArg(args, "attachmentName"); name != "" {
		data, err := base64.StdEncoding.DecodeString(common.StringArg(args, "attachmentContent"))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to decode attachment content: %v", err)), nil
		}
		mimeType := common.StringArg(args, "attachmentMimeType")
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		msg.Attachments = []gmail.Attachment{{Filename: name, MimeType: mimeType, Data: data}}
	}

	sent, err := sc.Session().Messages().Send(ctx, msg)
	if err != nil {
		return common.ErrorResult("Failed to send message", err), nil
	}
	return common.JSONResult("Message sent:", sent)
}
