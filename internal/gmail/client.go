package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/mail"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/lexsync/internal/api"
	"github.com/teemow/lexsync/internal/instrumentation"
	"github.com/teemow/lexsync/internal/logging"
)

const user = "me"

// metadataHeaders are the headers requested by the metadata fetch in Get.
var metadataHeaders = []string{"From", "To", "Cc", "Subject", "Date"}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint points the client at a different API root, e.g. a test server.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client is the messages adapter.
type Client struct {
	users *gmail.UsersService

	endpoint string
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// New creates a Client on top of hc, which must attach the credential.
func New(ctx context.Context, hc *http.Client, opts ...Option) (*Client, error) {
	c := &Client{logger: logging.Discard()}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.WithService(c.logger, instrumentation.ServiceMessages)

	svcOpts := []option.ClientOption{option.WithHTTPClient(hc)}
	if c.endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(c.endpoint))
	}

	svc, err := gmail.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	c.users = svc.Users
	return c, nil
}

func (c *Client) track(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error) error) {
	return api.Track(ctx, c.metrics, instrumentation.ServiceMessages, op, attrs...)
}

// List returns one page of message summaries and the token for the next
// page, which is empty on the last page.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]MessageSummary, string, error) {
	ctx, done := c.track(ctx, instrumentation.OperationList)

	call := c.users.Messages.List(user).Context(ctx)
	if opts.Query != "" {
		call = call.Q(opts.Query)
	}
	if opts.MaxResults > 0 {
		call = call.MaxResults(opts.MaxResults)
	}
	if opts.PageToken != "" {
		call = call.PageToken(opts.PageToken)
	}
	if len(opts.LabelIDs) > 0 {
		call = call.LabelIds(opts.LabelIDs...)
	}

	res, err := call.Do()
	if err != nil {
		return nil, "", done(err)
	}
	done(nil)

	out := make([]MessageSummary, 0, len(res.Messages))
	for _, m := range res.Messages {
		out = append(out, MessageSummary{ID: m.Id, ThreadID: m.ThreadId})
	}
	return out, res.NextPageToken, nil
}

// Get assembles the message id from a metadata fetch (headers) and a full
// fetch (body parts).
func (c *Client) Get(ctx context.Context, id string) (*Message, error) {
	if id == "" {
		return nil, fmt.Errorf("message id is required")
	}

	ctx, done := c.track(ctx, instrumentation.OperationGet, attribute.String(instrumentation.SpanAttrResourceID, id))

	meta, err := c.users.Messages.Get(user, id).
		Format("metadata").
		MetadataHeaders(metadataHeaders...).
		Context(ctx).
		Do()
	if err != nil {
		return nil, done(err)
	}

	full, err := c.users.Messages.Get(user, id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, done(err)
	}

	msg := &Message{
		ID:       meta.Id,
		ThreadID: meta.ThreadId,
		LabelIDs: meta.LabelIds,
		Snippet:  meta.Snippet,
	}
	if meta.Payload != nil {
		applyHeaders(msg, meta.Payload.Headers)
	}
	if err := applyBody(msg, full.Payload); err != nil {
		return nil, done(&api.RequestError{Kind: api.KindDecode, Status: http.StatusOK, Message: err.Error(), Err: err})
	}

	done(nil)
	return msg, nil
}

// GetAttachment fetches and decodes one attachment's content.
func (c *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if messageID == "" || attachmentID == "" {
		return nil, fmt.Errorf("message id and attachment id are required")
	}

	ctx, done := c.track(ctx, instrumentation.OperationDownload, attribute.String(instrumentation.SpanAttrResourceID, messageID))

	body, err := c.users.Messages.Attachments.Get(user, messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, done(err)
	}

	data, err := DecodeBody(body.Data)
	if err != nil {
		return nil, done(&api.RequestError{Kind: api.KindDecode, Status: http.StatusOK, Message: err.Error(), Err: err})
	}
	done(nil)
	return data, nil
}

// Send sends msg as a multipart/mixed envelope.
func (c *Client) Send(ctx context.Context, msg OutgoingMessage) (*SentMessage, error) {
	if len(msg.To) == 0 {
		return nil, fmt.Errorf("at least one recipient is required")
	}
	if msg.Subject == "" {
		return nil, fmt.Errorf("subject is required")
	}

	raw, err := buildMIME(msg)
	if err != nil {
		return nil, err
	}

	ctx, done := c.track(ctx, instrumentation.OperationSend)

	sent, err := c.users.Messages.Send(user, &gmail.Message{Raw: EncodeBody(raw)}).Context(ctx).Do()
	if err != nil {
		return nil, done(err)
	}
	done(nil)

	c.logger.Info("message sent",
		slog.Int("recipients", len(msg.To)+len(msg.Cc)+len(msg.Bcc)),
		slog.Int("attachments", len(msg.Attachments)))
	return &SentMessage{ID: sent.Id, ThreadID: sent.ThreadId}, nil
}

func applyHeaders(msg *Message, headers []*gmail.MessagePartHeader) {
	for _, h := range headers {
		switch strings.ToLower(h.Name) {
		case "from":
			msg.From = h.Value
		case "to":
			msg.To = h.Value
		case "cc":
			msg.Cc = h.Value
		case "subject":
			msg.Subject = decodeHeader(h.Value)
		case "date":
			if t, err := mail.ParseDate(h.Value); err == nil {
				msg.Date = t
			}
		}
	}
}

// applyBody decodes the first text/plain and text/html parts and collects
// attachment metadata.
func applyBody(msg *Message, payload *gmail.MessagePart) error {
	var firstErr error
	walkParts(payload, func(part *gmail.MessagePart) {
		if part.Body == nil {
			return
		}
		if part.Filename != "" {
			msg.Attachments = append(msg.Attachments, AttachmentInfo{
				PartID:       part.PartId,
				AttachmentID: part.Body.AttachmentId,
				Filename:     part.Filename,
				MimeType:     part.MimeType,
				Size:         part.Body.Size,
			})
			return
		}
		if part.Body.Data == "" {
			return
		}

		var target *[]byte
		switch part.MimeType {
		case "text/plain":
			target = &msg.Body
		case "text/html":
			target = &msg.HTMLBody
		default:
			return
		}
		if *target != nil {
			return
		}

		data, err := DecodeBody(part.Body.Data)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return
		}
		*target = data
	})
	return firstErr
}

// walkParts visits part and all nested parts depth first.
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, sub := range part.Parts {
		walkParts(sub, fn)
	}
}

func decodeHeader(v string) string {
	dec := new(mime.WordDecoder)
	if s, err := dec.DecodeHeader(v); err == nil {
		return s
	}
	return v
}
