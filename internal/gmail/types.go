package gmail

import "time"

// ListOptions filters a message listing.
type ListOptions struct {
	// Query uses Gmail search syntax, e.g. "from:someone@example.com is:unread".
	Query string

	// MaxResults caps the page size. Zero uses the provider default.
	MaxResults int64

	// PageToken continues a previous listing.
	PageToken string

	// LabelIDs restricts the listing to messages carrying all of these labels.
	LabelIDs []string
}

// MessageSummary is one entry of a listing.
type MessageSummary struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// Message is a fully assembled message.
type Message struct {
	ID       string    `json:"id"`
	ThreadID string    `json:"threadId"`
	LabelIDs []string  `json:"labelIds,omitempty"`
	Snippet  string    `json:"snippet,omitempty"`
	From     string    `json:"from,omitempty"`
	To       string    `json:"to,omitempty"`
	Cc       string    `json:"cc,omitempty"`
	Subject  string    `json:"subject,omitempty"`
	Date     time.Time `json:"date,omitempty"`

	// Body is the decoded text/plain part, HTMLBody the decoded text/html part.
	Body     []byte `json:"body,omitempty"`
	HTMLBody []byte `json:"htmlBody,omitempty"`

	Attachments []AttachmentInfo `json:"attachments,omitempty"`
}

// AttachmentInfo describes an attachment without its content.
type AttachmentInfo struct {
	PartID       string `json:"partId"`
	AttachmentID string `json:"attachmentId"`
	Filename     string `json:"filename"`
	MimeType     string `json:"mimeType"`
	Size         int64  `json:"size"`
}

// OutgoingMessage is a message to send.
type OutgoingMessage struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string

	// HTML sends Body as text/html instead of text/plain.
	HTML bool

	Attachments []Attachment
}

// Attachment is a file attached to an outgoing message.
type Attachment struct {
	Filename string
	MimeType string
	Data     []byte
}

// SentMessage identifies a sent message.
type SentMessage struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}
