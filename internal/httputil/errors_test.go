package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, "req_123", http.StatusBadRequest, "invalid_request_error", "bad_request", "test message")

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	if rid := w.Header().Get("X-Request-ID"); rid != "req_123" {
		t.Errorf("expected X-Request-ID req_123, got %s", rid)
	}

	var resp APIError
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if resp.Error.Message != "test message" {
		t.Errorf("expected message 'test message', got %q", resp.Error.Message)
	}
	if resp.Error.Type != "invalid_request_error" {
		t.Errorf("expected type 'invalid_request_error', got %q", resp.Error.Type)
	}
	if resp.Error.RequestID != "req_123" {
		t.Errorf("expected request_id 'req_123', got %q", resp.Error.RequestID)
	}
}

func TestWriteUpstreamError(t *testing.T) {
	tests := []struct {
		code     string
		wantCode string
	}{
		{"invalid_api_key", "invalid_api_key"},
		{"", "upstream_error"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		WriteUpstreamError(w, "req_456", tt.code, "rejected", nil)

		if w.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", w.Code)
		}
		var resp APIError
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Error.Code != tt.wantCode {
			t.Errorf("expected code %q, got %q", tt.wantCode, resp.Error.Code)
		}
	}
}

func TestWriteContentBlockedError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteContentBlockedError(w, "req_789", "Rejected by content policy", nil)

	if w.Code != 451 {
		t.Errorf("expected status 451, got %d", w.Code)
	}
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusAccepted, map[string]int{"count": 3})

	if w.Code != http.StatusAccepted {
		t.Errorf("expected status 202, got %d", w.Code)
	}
	var got map[string]int
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got["count"] != 3 {
		t.Errorf("expected count 3, got %v", got)
	}
}

func TestWriteExhaustedError_Metadata(t *testing.T) {
	w := httptest.NewRecorder()
	WriteExhaustedError(w, "req_1", "all tiers failed", map[string]any{"model": "gpt-4o-mini"})

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", w.Code)
	}
	var raw map[string]map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if raw["metadata"]["model"] != "gpt-4o-mini" {
		t.Errorf("metadata = %v", raw["metadata"])
	}
}

func TestWriteError_OmitsMetadata(t *testing.T) {
	w := httptest.NewRecorder()
	WriteBadRequestError(w, "req_1", "bad")

	var raw map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if _, ok := raw["metadata"]; ok {
		t.Errorf("expected no metadata, got %v", raw["metadata"])
	}
}
