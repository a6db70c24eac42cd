package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/lexsync/internal/api"
)

type fakeGmail struct {
	mu      sync.Mutex
	formats []string
	sentRaw string
	queries []string
}

func (f *fakeGmail) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := r.URL.Path

		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(path, "/users/me/messages/send"):
			var body struct {
				Raw string `json:"raw"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			f.mu.Lock()
			f.sentRaw = body.Raw
			f.mu.Unlock()
			_, _ = io.WriteString(w, `{"id":"sent-1","threadId":"thread-9"}`)

		case strings.HasSuffix(path, "/users/me/messages"):
			f.mu.Lock()
			f.queries = append(f.queries, r.URL.RawQuery)
			f.mu.Unlock()
			if r.URL.Query().Get("pageToken") == "" {
				_, _ = io.WriteString(w, `{"messages":[{"id":"m1","threadId":"t1"},{"id":"m2","threadId":"t1"}],"nextPageToken":"p2"}`)
				return
			}
			_, _ = io.WriteString(w, `{"messages":[{"id":"m3","threadId":"t2"}]}`)

		case strings.HasSuffix(path, "/users/me/messages/m1/attachments/att-1"):
			_, _ = io.WriteString(w, `{"size":3,"data":"`+EncodeBody([]byte("PDF"))+`"}`)

		case strings.HasSuffix(path, "/users/me/messages/m1"):
			format := r.URL.Query().Get("format")
			f.mu.Lock()
			f.formats = append(f.formats, format)
			f.mu.Unlock()

			if format == "metadata" {
				assert.ElementsMatch(t, metadataHeaders, r.URL.Query()["metadataHeaders"])
				_, _ = io.WriteString(w, `{
					"id":"m1","threadId":"t1","labelIds":["INBOX"],"snippet":"Please review",
					"payload":{"headers":[
						{"name":"From","value":"Client <client@example.com>"},
						{"name":"To","value":"counsel@example.com"},
						{"name":"Subject","value":"=?UTF-8?B?VmVydHJhZyBmw7xyIE3DvGxsZXI=?="},
						{"name":"Date","value":"Mon, 02 Mar 2026 10:15:00 +0100"}
					]}}`)
				return
			}
			_, _ = io.WriteString(w, `{
				"id":"m1","threadId":"t1",
				"payload":{"mimeType":"multipart/mixed","parts":[
					{"mimeType":"multipart/alternative","parts":[
						{"partId":"0.0","mimeType":"text/plain","body":{"size":12,"data":"`+EncodeBody([]byte("Grüße, Anna"))+`"}},
						{"partId":"0.1","mimeType":"text/html","body":{"size":20,"data":"`+base64.RawURLEncoding.EncodeToString([]byte("<p>Grüße, Anna</p>"))+`"}}
					]},
					{"partId":"1","mimeType":"application/pdf","filename":"contract.pdf","body":{"attachmentId":"att-1","size":2048}}
				]}}`)

		case strings.HasSuffix(path, "/users/me/messages/broken"):
			_, _ = io.WriteString(w, `{"id":"broken","payload":{"mimeType":"text/plain","body":{"data":"@@@"}}}`)

		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND","errors":[{"reason":"notFound","message":"Requested entity was not found."}]}}`)
		}
	}
}

func newTestClient(t *testing.T) (*Client, *fakeGmail) {
	t.Helper()

	fake := &fakeGmail{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)

	c, err := New(context.Background(), srv.Client(), WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return c, fake
}

func TestList_Paginates(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	page, next, err := c.List(ctx, ListOptions{Query: "from:client@example.com", MaxResults: 2})
	require.NoError(t, err)
	assert.Equal(t, []MessageSummary{{ID: "m1", ThreadID: "t1"}, {ID: "m2", ThreadID: "t1"}}, page)
	assert.Equal(t, "p2", next)

	page, next, err = c.List(ctx, ListOptions{PageToken: next})
	require.NoError(t, err)
	assert.Len(t, page, 1)
	assert.Empty(t, next)

	assert.Contains(t, fake.queries[0], "q=from%3Aclient%40example.com")
	assert.Contains(t, fake.queries[0], "maxResults=2")
}

func TestGet_AssemblesFromTwoFetches(t *testing.T) {
	c, fake := newTestClient(t)

	msg, err := c.Get(context.Background(), "m1")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"metadata", "full"}, fake.formats)

	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "t1", msg.ThreadID)
	assert.Equal(t, "Client <client@example.com>", msg.From)
	assert.Equal(t, "counsel@example.com", msg.To)
	assert.Equal(t, "Vertrag für Müller", msg.Subject)
	assert.Equal(t, 2026, msg.Date.Year())
	assert.Equal(t, []byte("Grüße, Anna"), msg.Body)
	assert.Equal(t, []byte("<p>Grüße, Anna</p>"), msg.HTMLBody)

	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "contract.pdf", msg.Attachments[0].Filename)
	assert.Equal(t, "att-1", msg.Attachments[0].AttachmentID)
}

func TestGet_DecodeFailure(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Get(context.Background(), "broken")

	var re *api.RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, api.KindDecode, re.Kind)
}

func TestGet_NotFound(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Get(context.Background(), "missing")

	var re *api.RequestError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusNotFound, re.Status)
	assert.Equal(t, "notFound", re.Code)
	assert.True(t, api.IsNotFound(err))
}

func TestGet_RequiresID(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.Get(context.Background(), "")
	assert.Error(t, err)
}

func TestGetAttachment(t *testing.T) {
	c, _ := newTestClient(t)

	data, err := c.GetAttachment(context.Background(), "m1", "att-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("PDF"), data)
}

func TestSend_BuildsMultipartEnvelope(t *testing.T) {
	c, fake := newTestClient(t)

	pdf := []byte("%PDF-1.7 \x00\x01\x02 binary")
	sent, err := c.Send(context.Background(), OutgoingMessage{
		To:      []string{"client@example.com"},
		Cc:      []string{"partner@example.com"},
		Subject: "Vollmacht für Herrn Müller",
		Body:    "Sehr geehrter Herr Müller,\nanbei die Vollmacht.",
		Attachments: []Attachment{
			{Filename: "vollmacht.pdf", MimeType: "application/pdf", Data: pdf},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, &SentMessage{ID: "sent-1", ThreadID: "thread-9"}, sent)

	raw, err := DecodeBody(fake.sentRaw)
	require.NoError(t, err)

	m, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "client@example.com", m.Header.Get("To"))
	assert.Equal(t, "partner@example.com", m.Header.Get("Cc"))

	subject, err := new(mime.WordDecoder).DecodeHeader(m.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "Vollmacht für Herrn Müller", subject)

	mediaType, params, err := mime.ParseMediaType(m.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(m.Body, params["boundary"])

	body, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "base64", body.Header.Get("Content-Transfer-Encoding"))
	assert.Contains(t, body.Header.Get("Content-Type"), "text/plain")
	assert.Equal(t, "Sehr geehrter Herr Müller,\nanbei die Vollmacht.", string(readBase64(t, body)))

	att, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "vollmacht.pdf", att.FileName())
	assert.Contains(t, att.Header.Get("Content-Type"), "application/pdf")
	assert.Equal(t, pdf, readBase64(t, att))

	_, err = mr.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestSend_HTMLBody(t *testing.T) {
	c, fake := newTestClient(t)

	_, err := c.Send(context.Background(), OutgoingMessage{
		To:      []string{"client@example.com"},
		Subject: "Hello",
		Body:    "<p>Hello</p>",
		HTML:    true,
	})
	require.NoError(t, err)

	raw, err := DecodeBody(fake.sentRaw)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "text/html")
	assert.NotContains(t, string(raw), "Content-Disposition")
}

func TestSend_Validation(t *testing.T) {
	c, fake := newTestClient(t)

	_, err := c.Send(context.Background(), OutgoingMessage{Subject: "no recipients"})
	assert.Error(t, err)

	_, err = c.Send(context.Background(), OutgoingMessage{To: []string{"a@example.com"}})
	assert.Error(t, err)

	_, err = c.Send(context.Background(), OutgoingMessage{
		To:          []string{"a@example.com"},
		Subject:     "x",
		Attachments: []Attachment{{Data: []byte("x")}},
	})
	assert.Error(t, err)

	assert.Empty(t, fake.sentRaw)
}

func TestSend_RejectsHeaderInjection(t *testing.T) {
	tests := []struct {
		name string
		msg  OutgoingMessage
	}{
		{
			name: "subject with CRLF",
			msg: OutgoingMessage{
				To:      []string{"client@example.com"},
				Subject: "Invoice\r\nBcc: attacker@evil.example",
			},
		},
		{
			name: "subject with bare LF",
			msg: OutgoingMessage{
				To:      []string{"client@example.com"},
				Subject: "Invoice\nBcc: attacker@evil.example",
			},
		},
		{
			name: "recipient with CRLF",
			msg: OutgoingMessage{
				To:      []string{"client@example.com\r\nBcc: attacker@evil.example"},
				Subject: "Invoice",
			},
		},
		{
			name: "cc with CRLF",
			msg: OutgoingMessage{
				To:      []string{"client@example.com"},
				Cc:      []string{"partner@example.com\nX-Injected: yes"},
				Subject: "Invoice",
			},
		},
		{
			name: "malformed recipient",
			msg: OutgoingMessage{
				To:      []string{"not an address"},
				Subject: "Invoice",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, fake := newTestClient(t)
			_, err := c.Send(context.Background(), tt.msg)
			require.Error(t, err)
			assert.Empty(t, fake.sentRaw)
		})
	}
}

func TestBuildMIME_NamedRecipients(t *testing.T) {
	raw, err := buildMIME(OutgoingMessage{
		To:      []string{"Jörg Meyer <joerg@example.com>", "client@example.com"},
		Subject: "Invoice",
	})
	require.NoError(t, err)

	m, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Empty(t, m.Header.Get("Bcc"))

	to, err := m.Header.AddressList("To")
	require.NoError(t, err)
	require.Len(t, to, 2)
	assert.Equal(t, &mail.Address{Name: "Jörg Meyer", Address: "joerg@example.com"}, to[0])
	assert.Equal(t, "client@example.com", to[1].Address)
}

func readBase64(t *testing.T, r io.Reader) []byte {
	t.Helper()
	encoded, err := io.ReadAll(r)
	require.NoError(t, err)
	clean := strings.NewReplacer("\r", "", "\n", "").Replace(string(encoded))
	data, err := base64.StdEncoding.DecodeString(clean)
	require.NoError(t, err)
	return data
}
