package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/lexsync/internal/instrumentation"
	"github.com/teemow/lexsync/internal/logging"
)

const (
	// DefaultTimeout bounds a single round trip including the body read.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent when no other agent is configured.
	DefaultUserAgent = "lexsync"

	apiKeyHeader = "X-Goog-Api-Key"
)

// TokenEnsurer makes sure a usable access token exists before a call.
type TokenEnsurer interface {
	EnsureValid(ctx context.Context) error
}

// TokenReader exposes the current access token.
type TokenReader interface {
	AccessToken() (token, tokenType string)
}

// Option configures an Executor.
type Option func(*Executor)

// WithAPIKey sends key in the X-Goog-Api-Key header on every request.
func WithAPIKey(key string) Option {
	return func(e *Executor) {
		e.apiKey = key
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(e *Executor) {
		if ua != "" {
			e.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.timeout = d
	}
}

// WithBaseTransport sets the transport that performs the actual round trip.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(e *Executor) {
		if rt != nil {
			e.base = rt
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithUserInfoURL overrides the OpenID userinfo endpoint.
func WithUserInfoURL(u string) Option {
	return func(e *Executor) {
		if u != "" {
			e.userInfoURL = u
		}
	}
}

// Executor performs authenticated provider calls.
type Executor struct {
	ensurer TokenEnsurer
	tokens  TokenReader

	apiKey      string
	userAgent   string
	timeout     time.Duration
	userInfoURL string

	base    http.RoundTripper
	client  *http.Client
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// Response is a successful raw response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte

	// NoContent is set for 204 responses, which carry no body by definition.
	NoContent bool
}

// NewExecutor creates an Executor. ensurer runs before every request and
// tokens supplies the credential attached to it.
func NewExecutor(ensurer TokenEnsurer, tokens TokenReader, opts ...Option) *Executor {
	e := &Executor{
		ensurer:     ensurer,
		tokens:      tokens,
		userAgent:   DefaultUserAgent,
		timeout:     DefaultTimeout,
		userInfoURL: DefaultUserInfoURL,
		base:        http.DefaultTransport,
		logger:      logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.client = &http.Client{Transport: &transport{e: e}}
	return e
}

// HTTPClient returns a client whose transport performs the pre-flight token
// check and attaches the credential. Errors surface wrapped in *url.Error;
// pass them through Normalize.
func (e *Executor) HTTPClient() *http.Client {
	return e.client
}

// Do performs one raw request. Non-2xx responses become a *RequestError
// carrying the provider's normalized message and code.
func (e *Executor) Do(ctx context.Context, method, url string, body io.Reader, contentType string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("api: building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, Normalize(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Normalize(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		re := parseErrorBody(resp.StatusCode, data)
		e.logger.Debug("provider returned error",
			slog.String("method", method),
			slog.Int("status", resp.StatusCode),
			slog.String("code", re.Code))
		return nil, re
	}

	return &Response{
		Status:    resp.StatusCode,
		Header:    resp.Header,
		Body:      data,
		NoContent: resp.StatusCode == http.StatusNoContent,
	}, nil
}

// Validator is implemented by response types that can reject a body which
// decoded but lacks required fields.
type Validator interface {
	Validate() error
}

// Execute sends in as JSON (when non-nil) and decodes the response into out
// (when non-nil). A 204 response is a success with nothing decoded. An
// empty or malformed body when out is set is a KindDecode error.
func (e *Executor) Execute(ctx context.Context, method, url string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encoding request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	resp, err := e.Do(ctx, method, url, body, contentType)
	if err != nil {
		return err
	}
	if resp.NoContent || out == nil {
		return nil
	}

	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return &RequestError{Kind: KindDecode, Status: resp.Status, Message: "empty response body"}
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return &RequestError{Kind: KindDecode, Status: resp.Status, Message: err.Error(), Err: err}
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return &RequestError{Kind: KindDecode, Status: resp.Status, Message: err.Error(), Err: err}
		}
	}
	return nil
}

// transport is the executor's http.RoundTripper.
type transport struct {
	e *Executor
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	e := t.e
	ctx := req.Context()

	if err := e.ensurer.EnsureValid(ctx); err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}

	cancel := context.CancelFunc(func() {})
	if e.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
	}

	r := req.Clone(ctx)
	token, tokenType := e.tokens.AccessToken()
	(&oauth2.Token{AccessToken: token, TokenType: tokenType}).SetAuthHeader(r)
	r.Header.Set("User-Agent", e.userAgent)
	if e.apiKey != "" {
		r.Header.Set(apiKeyHeader, e.apiKey)
	}

	start := time.Now()
	resp, err := e.base.RoundTrip(r)
	elapsed := time.Since(start)

	if err != nil {
		e.metrics.RecordAPIRequest(ctx, req.Method, 0, elapsed)
		re := transportError(err)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			re.Timeout = true
		}
		e.logger.Debug("provider request failed",
			slog.String("method", req.Method),
			slog.Bool("timeout", re.Timeout),
			logging.Duration(elapsed),
			logging.Err(err))
		cancel()
		return nil, re
	}

	e.metrics.RecordAPIRequest(ctx, req.Method, resp.StatusCode, elapsed)
	e.logger.Debug("provider request",
		slog.String("method", req.Method),
		slog.String("host", req.URL.Host),
		slog.Int("status", resp.StatusCode),
		logging.Duration(elapsed))

	// the deadline has to cover the body read, so it ends with Close
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
