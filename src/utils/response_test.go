package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	SendJSONError(rec, "Session not found", http.StatusNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Session not found", body["detail"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestGenerateETag(t *testing.T) {
	a, err := GenerateETag(map[string]int{"x": 1})
	require.NoError(t, err)
	b, err := GenerateETag(map[string]int{"x": 1})
	require.NoError(t, err)
	c, err := GenerateETag(map[string]int{"x": 2})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, byte('"'), a[0])
}

func TestAmount(t *testing.T) {
	out, err := json.Marshal(struct {
		V json.Number `json:"v"`
	}{Amount(decimal.RequireFromString("75500.5"))})
	require.NoError(t, err)
	assert.JSONEq(t, `{"v": 75500.50}`, string(out))
	assert.Equal(t, json.Number("0.00"), Amount(decimal.Zero))
}
