package httputil

import (
	"encoding/json"
	"net/http"
)

// APIError matches the OpenAI error response format. Metadata describes what executed
// before a generation failed and is omitted for other errors.
type APIError struct {
	Error    APIErrorBody `json:"error"`
	Metadata any          `json:"metadata,omitempty"`
}

type APIErrorBody struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

func WriteError(w http.ResponseWriter, requestID string, statusCode int, errType, code, message string) {
	WriteErrorWithMetadata(w, requestID, statusCode, errType, code, message, nil)
}

// WriteErrorWithMetadata writes an error body carrying generation metadata.
// A nil metadata is left out of the body.
func WriteErrorWithMetadata(w http.ResponseWriter, requestID string, statusCode int, errType, code, message string, metadata any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIError{
		Error: APIErrorBody{
			Message:   message,
			Type:      errType,
			Code:      code,
			RequestID: requestID,
		},
		Metadata: metadata,
	})
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func WriteRateLimitError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusTooManyRequests, "rate_limit_error", "rate_limit_exceeded", message)
}

func WriteBadRequestError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusBadRequest, "invalid_request_error", "invalid_request", message)
}

func WriteInternalError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusInternalServerError, "server_error", "internal_error", message)
}

// WriteServiceUnavailableError reports a dependency that cannot serve the request.
func WriteServiceUnavailableError(w http.ResponseWriter, requestID, message string) {
	WriteError(w, requestID, http.StatusServiceUnavailable, "server_error", "service_unavailable", message)
}

// WriteExhaustedError is used when every model tier failed retryably.
func WriteExhaustedError(w http.ResponseWriter, requestID, message string, metadata any) {
	WriteErrorWithMetadata(w, requestID, http.StatusServiceUnavailable, "server_error", "service_unavailable", message, metadata)
}

// WriteUpstreamError reports a terminal rejection from a model backend.
func WriteUpstreamError(w http.ResponseWriter, requestID, code, message string, metadata any) {
	if code == "" {
		code = "upstream_error"
	}
	WriteErrorWithMetadata(w, requestID, http.StatusBadGateway, "upstream_error", code, message, metadata)
}

func WriteContentBlockedError(w http.ResponseWriter, requestID, message string, metadata any) {
	WriteErrorWithMetadata(w, requestID, http.StatusUnavailableForLegalReasons, "content_filter_error", "content_blocked", message, metadata)
}
