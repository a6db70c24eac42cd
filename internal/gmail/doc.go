// Package gmail is the messages adapter: typed list, get and send
// operations over the Gmail API.
//
// The client is built on the executor's HTTP client, so every call is
// preceded by the token freshness check and every failure is returned as
// an *api.RequestError (or the *google.AuthError from the pre-flight check)
// without further interpretation.
//
// Get assembles a message from two fetches, one for the header metadata and
// one for the full payload, and decodes base64url bodies to bytes. Send
// builds a multipart/mixed MIME envelope with a base64 body part and
// optional base64 attachments, then base64url-encodes the whole envelope.
//
// Example usage:
//
//	client, err := gmail.New(ctx, executor.HTTPClient())
//	if err != nil {
//	    return err
//	}
//
//	page, next, err := client.List(ctx, gmail.ListOptions{Query: "in:inbox", MaxResults: 20})
//	msg, err := client.Get(ctx, page[0].ID)
//
//	sent, err := client.Send(ctx, gmail.OutgoingMessage{
//	    To:      []string{"client@example.com"},
//	    Subject: "Engagement letter",
//	    Body:    "Please find the letter attached.",
//	    Attachments: []gmail.Attachment{{Filename: "letter.pdf", MimeType: "application/pdf", Data: pdf}},
//	})
package gmail
