package gmail

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/textproto"
	"strings"
)

// lineLength is the maximum encoded line length for base64 parts.
const lineLength = 76

// buildMIME renders msg as a multipart/mixed RFC 2822 envelope.
func buildMIME(msg OutgoingMessage) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if strings.ContainsAny(msg.Subject, "\r\n") {
		return nil, fmt.Errorf("gmail: subject must be a single line")
	}

	var hdr strings.Builder
	for _, h := range []struct {
		name  string
		addrs []string
	}{{"To", msg.To}, {"Cc", msg.Cc}, {"Bcc", msg.Bcc}} {
		if err := writeAddressHeader(&hdr, h.name, h.addrs); err != nil {
			return nil, err
		}
	}
	hdr.WriteString("Subject: " + encodeRFC2047(msg.Subject) + "\r\n")
	hdr.WriteString("MIME-Version: 1.0\r\n")
	hdr.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=%q\r\n", mw.Boundary()))
	hdr.WriteString("\r\n")

	bodyType := "text/plain"
	if msg.HTML {
		bodyType = "text/html"
	}
	if err := writeBase64Part(mw, textproto.MIMEHeader{
		"Content-Type": {mime.FormatMediaType(bodyType, map[string]string{"charset": "UTF-8"})},
	}, []byte(msg.Body)); err != nil {
		return nil, err
	}

	for _, a := range msg.Attachments {
		if a.Filename == "" {
			return nil, fmt.Errorf("gmail: attachment without filename")
		}
		mimeType := a.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		h := textproto.MIMEHeader{
			"Content-Type":        {mime.FormatMediaType(mimeType, map[string]string{"name": a.Filename})},
			"Content-Disposition": {mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})},
		}
		if err := writeBase64Part(mw, h, a.Data); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("gmail: closing envelope: %w", err)
	}

	return append([]byte(hdr.String()), buf.Bytes()...), nil
}

// writeAddressHeader renders each recipient from its parsed form, so header
// values never carry raw caller text.
func writeAddressHeader(b *strings.Builder, name string, addrs []string) error {
	if len(addrs) == 0 {
		return nil
	}
	rendered := make([]string, 0, len(addrs))
	for _, raw := range addrs {
		if strings.ContainsAny(raw, "\r\n") {
			return fmt.Errorf("gmail: %s address %q spans lines", name, raw)
		}
		addr, err := mail.ParseAddress(raw)
		if err != nil {
			return fmt.Errorf("gmail: invalid %s address %q: %w", name, raw, err)
		}
		if addr.Name == "" {
			rendered = append(rendered, addr.Address)
		} else {
			rendered = append(rendered, addr.String())
		}
	}
	b.WriteString(name + ": " + strings.Join(rendered, ", ") + "\r\n")
	return nil
}

func writeBase64Part(mw *multipart.Writer, h textproto.MIMEHeader, data []byte) error {
	h.Set("Content-Transfer-Encoding", "base64")
	w, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("gmail: creating part: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > lineLength {
		if _, err := w.Write([]byte(encoded[:lineLength] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[lineLength:]
	}
	_, err = w.Write([]byte(encoded + "\r\n"))
	return err
}

// encodeRFC2047 encodes non-ASCII header values, e.g. umlauts in subjects.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}
