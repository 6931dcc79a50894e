package api

import (
	"encoding/json"
	"net/http"
	"time"
)

// Error codes returned by authenticated endpoints.
const (
	CodeMissingAPIKey = "MISSING_API_KEY"
	CodeInvalidAPIKey = "INVALID_API_KEY"
	CodeMissingBody   = "MISSING_BODY"
	CodeValidation    = "VALIDATION_ERROR"
	CodeRateLimited   = "RATE_LIMIT_EXCEEDED"
	CodeAnalysis      = "ANALYSIS_ERROR"
	CodeInternal      = "INTERNAL_ERROR"
)

type failure struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error"`
	ErrorCode string    `json:"error_code"`
	Timestamp time.Time `json:"timestamp"`
}

type success struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data"`
	Metadata  any       `json:"metadata,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type statusBody struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// An encode error here means the client went away.
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, data, metadata any, at time.Time) {
	writeJSON(w, http.StatusOK, success{Success: true, Data: data, Metadata: metadata, Timestamp: at})
}

func writeFailure(w http.ResponseWriter, status int, code, msg string, at time.Time) {
	writeJSON(w, status, failure{Success: false, Error: msg, ErrorCode: code, Timestamp: at})
}

func writeStatus(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, statusBody{Status: "success", Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, statusBody{Status: "error", Error: msg})
}
