package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/api/googleapi"

	"github.com/teemow/lexsync/internal/google"
)

// Kind classifies a RequestError.
type Kind string

const (
	// KindTransport means no usable response was received.
	KindTransport Kind = "transport"

	// KindStatus means the provider answered with a non-2xx status.
	KindStatus Kind = "status"

	// KindDecode means a response body did not have the expected shape.
	KindDecode Kind = "decode"
)

// RequestError is the normalized form of every failed provider call.
type RequestError struct {
	Kind Kind

	// Status is the HTTP status code, or 0 for transport failures.
	Status int

	// Code is the provider's machine error code when one was reported,
	// e.g. "invalid_grant" or "insufficientPermissions".
	Code string

	// Message is a human-readable reason.
	Message string

	// Timeout reports whether the call ran out of time.
	Timeout bool

	Err error
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case KindStatus:
		if e.Code != "" {
			return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
		}
		return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
	case KindDecode:
		return "api: decoding response: " + e.Message
	default:
		if e.Timeout {
			return "api: request timed out: " + e.Message
		}
		return "api: transport error: " + e.Message
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 from the provider.
func IsNotFound(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Kind == KindStatus && re.Status == http.StatusNotFound
}

// Normalize maps any error returned by a provider call to a *RequestError.
// Authentication errors from the pre-flight token check and errors that are
// already normalized are returned unchanged.
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	var ae *google.AuthError
	if errors.As(err, &ae) {
		return ae
	}

	var re *RequestError
	if errors.As(err, &re) {
		return re
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return fromGoogleAPI(gerr)
	}

	return transportError(err)
}

func transportError(err error) *RequestError {
	re := &RequestError{Kind: KindTransport, Message: err.Error(), Err: err}

	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		re.Timeout = true
	}

	// the url.Error prefix only repeats the method and URL
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		re.Message = ue.Err.Error()
	}
	return re
}

func fromGoogleAPI(gerr *googleapi.Error) *RequestError {
	re := &RequestError{
		Kind:    KindStatus,
		Status:  gerr.Code,
		Message: gerr.Message,
		Err:     gerr,
	}
	if len(gerr.Errors) > 0 {
		re.Code = gerr.Errors[0].Reason
		if re.Message == "" {
			re.Message = gerr.Errors[0].Message
		}
	}
	if re.Message == "" || re.Code == "" {
		parsed := parseErrorBody(gerr.Code, []byte(gerr.Body))
		if re.Code == "" {
			re.Code = parsed.Code
		}
		if re.Message == "" {
			re.Message = parsed.Message
		}
	}
	return re
}

// errorEnvelope covers both error shapes Google returns: the OAuth style
// {"error":"invalid_grant","error_description":"..."} and the API style
// {"error":{"code":403,"message":"...","status":"...","errors":[...]}}.
type errorEnvelope struct {
	Error            json.RawMessage `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

type apiErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
	Errors  []struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
	} `json:"errors"`
}

// parseErrorBody builds a status error from a non-2xx response body.
func parseErrorBody(status int, body []byte) *RequestError {
	re := &RequestError{Kind: KindStatus, Status: status}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.Error) > 0 {
		var code string
		if json.Unmarshal(env.Error, &code) == nil {
			re.Code = code
			re.Message = env.ErrorDescription
			if re.Message == "" {
				re.Message = code
			}
			return re
		}

		var detail apiErrorBody
		if json.Unmarshal(env.Error, &detail) == nil {
			re.Message = detail.Message
			re.Code = detail.Status
			if len(detail.Errors) > 0 && detail.Errors[0].Reason != "" {
				re.Code = detail.Errors[0].Reason
			}
		}
	}

	if re.Message == "" {
		text := strings.TrimSpace(string(body))
		if text == "" || len(text) > 512 || strings.HasPrefix(text, "<") {
			text = http.StatusText(status)
		}
		re.Message = text
	}
	return re
}
