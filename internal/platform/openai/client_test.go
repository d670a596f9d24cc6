package openai

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

const okBody = `{"output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"{\"weekly_plan\":[]}"}]}]}`

func TestGenerateTextRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	c := NewClientWithConfig(logger.Nop(), Config{BaseURL: srv.URL, APIKey: "k", Model: "m", MaxRetries: 2, JSONMode: true})
	out, err := c.GenerateText(t.Context(), "sys", "user")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if out != `{"weekly_plan":[]}` {
		t.Fatalf("unexpected text %q", out)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestGenerateTextDropsRejectedTemperature(t *testing.T) {
	var withTemp, withoutTemp int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if _, ok := body["temperature"]; ok {
			atomic.AddInt32(&withTemp, 1)
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"Unsupported parameter: 'temperature'"}}`)
			return
		}
		atomic.AddInt32(&withoutTemp, 1)
		_, _ = io.WriteString(w, okBody)
	}))
	defer srv.Close()

	temp := 0.7
	c := NewClientWithConfig(logger.Nop(), Config{BaseURL: srv.URL, APIKey: "k", Model: "o3", Temperature: &temp})
	for i := 0; i < 2; i++ {
		if _, err := c.GenerateText(t.Context(), "sys", "user"); err != nil {
			t.Fatalf("GenerateText: %v", err)
		}
	}
	if withTemp != 1 || withoutTemp != 2 {
		t.Fatalf("expected one rejected temperature call then none, got with=%d without=%d", withTemp, withoutTemp)
	}
}

func TestGenerateTextReportsRefusal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"output":[],"refusal":"no"}`)
	}))
	defer srv.Close()

	c := NewClientWithConfig(logger.Nop(), Config{BaseURL: srv.URL, APIKey: "k", Model: "m"})
	if _, err := c.GenerateText(t.Context(), "sys", "user"); err == nil {
		t.Fatalf("expected refusal error")
	}
}
