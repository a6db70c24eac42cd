package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestWithOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	WithOperation(logger, "drive.list").Info("listing")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to decode log record: %v", err)
	}
	if record[KeyOperation] != "drive.list" {
		t.Errorf("operation = %v, want drive.list", record[KeyOperation])
	}
}

func TestWithService(t *testing.T) {
	result := WithService(slog.Default(), "gmail")
	if result == nil {
		t.Error("WithService returned nil")
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("test_op"), KeyOperation, "test_op"},
		{"service", Service("calendar"), KeyService, "calendar"},
		{"tool", Tool("files_upload"), KeyTool, "files_upload"},
		{"status", Status(StatusSuccess), KeyStatus, StatusSuccess},
		{"file", File("a.pdf"), KeyFile, "a.pdf"},
		{"expires in", ExpiresIn(90*time.Second + 300*time.Millisecond), KeyExpiresIn, "1m30s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestDuration(t *testing.T) {
	attr := Duration(1500 * time.Millisecond)
	if attr.Key != KeyDuration {
		t.Errorf("Duration key = %q, want %q", attr.Key, KeyDuration)
	}
	if attr.Value.Int64() != 1500 {
		t.Errorf("Duration value = %d, want 1500", attr.Value.Int64())
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("test error"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	// nil yields an empty group which slog omits
	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantLen int
	}{
		{"jane@example.com", 21}, // "user:" + 16 hex chars
		{"user@gmail.com", 21},
		{"", 0},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			result := AnonymizeEmail(tt.email)
			if len(result) != tt.wantLen {
				t.Errorf("AnonymizeEmail(%q) length = %d, want %d", tt.email, len(result), tt.wantLen)
			}
			if tt.email != "" && !strings.HasPrefix(result, "user:") {
				t.Errorf("AnonymizeEmail(%q) = %q, want prefix user:", tt.email, result)
			}
			if tt.email != "" && strings.Contains(result, tt.email) {
				t.Errorf("AnonymizeEmail(%q) leaks the address", tt.email)
			}
		})
	}

	if AnonymizeEmail("a@b.c") != AnonymizeEmail("a@b.c") {
		t.Error("AnonymizeEmail is not deterministic")
	}
}

func TestUserHash(t *testing.T) {
	attr := UserHash("jane@example.com")
	if attr.Key != KeyUserHash {
		t.Errorf("UserHash key = %q, want %q", attr.Key, KeyUserHash)
	}
	if attr.Value.String() != AnonymizeEmail("jane@example.com") {
		t.Errorf("UserHash value = %q", attr.Value.String())
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"", "<empty>"},
		{"ya29.a0AfH6SMBx", "[token:15 chars]"},
	}

	for _, tt := range tests {
		got := SanitizeToken(tt.token)
		if got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}

	attr := Token("refresh_token", "1//secret")
	if strings.Contains(attr.Value.String(), "secret") {
		t.Errorf("Token attr leaks content: %q", attr.Value.String())
	}
}
