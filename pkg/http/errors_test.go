package http

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteError(rec, 401, "INVALID_CREDENTIALS", "Invalid email or password")

	assert.Equal(t, 401, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_CREDENTIALS", resp.Error)
	assert.Equal(t, "Invalid email or password", resp.Message)
	assert.Zero(t, resp.RetryAfter)
}

func TestWriteErrorWithRetry(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteErrorWithRetry(rec, 429, "IP_RATE_LIMIT", "Too many attempts", 42*time.Second)

	assert.Equal(t, 429, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "IP_RATE_LIMIT", resp.Error)
	assert.Equal(t, 42, resp.RetryAfter)
}

func TestWriteErrorWithRetry_RoundsUpSubSecond(t *testing.T) {
	rec := httptest.NewRecorder()

	WriteErrorWithRetry(rec, 429, "IP_RATE_LIMIT", "Too many attempts", 300*time.Millisecond)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.RetryAfter, "retry hint must never be zero for a live cooldown")
}
