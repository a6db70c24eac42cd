package gmail

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// EncodeBody encodes b the way the Gmail API transports message bodies and
// raw envelopes: URL-safe base64.
func EncodeBody(b []byte) string {
	return base64.URLEncoding.EncodeToString(b)
}

// DecodeBody reverses EncodeBody. Padding is optional, since Gmail omits it
// in some payloads.
func DecodeBody(s string) ([]byte, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("gmail: decoding body: %w", err)
	}
	return b, nil
}
