package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/chequetally/backend/src/logger"
	"github.com/shopspring/decimal"
)

// ErrorResponse is the body of every error the API returns.
type ErrorResponse struct {
	Status    string `json:"status"`
	Detail    any    `json:"detail"`
	Timestamp string `json:"timestamp"`
}

// SendJSONError writes {"status":"error","detail":...,"timestamp":...} with the given status code.
func SendJSONError(w http.ResponseWriter, detail any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	logger.L.Warn("Sending JSON error to client", "detail", detail, "statusCode", statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Status:    "error",
		Detail:    detail,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		logger.L.Error("Failed to encode error response", "error", err)
	}
}

// SendJSON writes v as JSON with the given status code.
func SendJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Error("Failed to encode JSON response", "error", err)
	}
}

// GenerateETag returns a strong ETag for any JSON-serializable value.
func GenerateETag(v any) (string, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("etag: %w", err)
	}
	sum := sha256.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`, nil
}

// Amount renders a decimal as a JSON number with exactly two decimals.
func Amount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}
