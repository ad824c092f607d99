package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/use-agent/jobharvest/models"
)

var testSchema = json.RawMessage(`{"type":"object"}`)

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

func TestExtract(t *testing.T) {
	srv := newTestServer(t, http.StatusOK,
		`{"choices":[{"message":{"content":"{\"jobs\":[]}"}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`)
	defer srv.Close()

	c := NewClient(srv.Client(), "test-key", "gpt-4o-mini", srv.URL+"/v1")
	data, err := c.Extract(context.Background(), "some content", testSchema)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if string(data) != `{"jobs":[]}` {
		t.Errorf("data = %s", data)
	}
}

func TestExtractErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode string
	}{
		{"auth failure", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, models.ErrCodeLLMAuthFailure},
		{"forbidden", http.StatusForbidden, `{}`, models.ErrCodeLLMAuthFailure},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, models.ErrCodeLLMRateLimited},
		{"server error", http.StatusInternalServerError, `{}`, models.ErrCodeLLMFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, tt.body)
			defer srv.Close()

			c := NewClient(srv.Client(), "test-key", "gpt-4o-mini", srv.URL+"/v1")
			_, err := c.Extract(context.Background(), "content", testSchema)

			var ce *models.CrawlError
			if !errors.As(err, &ce) || ce.Code != tt.wantCode {
				t.Errorf("err = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestExtractInvalidJSONFromModel(t *testing.T) {
	srv := newTestServer(t, http.StatusOK,
		`{"choices":[{"message":{"content":"not json at all"}}]}`)
	defer srv.Close()

	c := NewClient(srv.Client(), "test-key", "gpt-4o-mini", srv.URL+"/v1")
	_, err := c.Extract(context.Background(), "content", testSchema)

	var ce *models.CrawlError
	if !errors.As(err, &ce) || ce.Code != models.ErrCodeLLMFailure {
		t.Errorf("err = %v, want LLM_FAILURE", err)
	}
}
