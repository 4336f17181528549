// Package testutil provides common test utilities and helpers for ordersweep tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/restockops/ordersweep/internal/api"
	"github.com/restockops/ordersweep/internal/discord"
	"github.com/restockops/ordersweep/internal/models"
)

// NewTestServer creates a test API server backed by a mock gateway seeded with
// the given messages (newest first).
func NewTestServer(messages ...models.CandidateMessage) (*api.Server, *discord.MockGateway) {
	gw := discord.NewMockGateway(messages...)
	return api.NewServer(gw), gw
}

// WebhookMessage builds a webhook-authored candidate message for tests.
func WebhookMessage(id, content string) models.CandidateMessage {
	return models.CandidateMessage{
		ID:        id,
		Content:   content,
		Author:    "restock-feed#0000",
		Webhook:   true,
		Timestamp: time.Now().UTC(),
	}
}

// UserMessage builds a regular-user candidate message for tests.
func UserMessage(id, content string) models.CandidateMessage {
	return models.CandidateMessage{
		ID:        id,
		Content:   content,
		Author:    "someone#1234",
		Webhook:   false,
		Timestamp: time.Now().UTC(),
	}
}

// PostJSON performs a request against the server's handler and returns the recorder.
func PostJSON(t *testing.T, srv *api.Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request body: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)
	return rr
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// DecodeReport decodes the response body into a DeleteReport.
func DecodeReport(t *testing.T, rr *httptest.ResponseRecorder) models.DeleteReport {
	t.Helper()
	var report models.DeleteReport
	if err := json.NewDecoder(rr.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	return report
}
