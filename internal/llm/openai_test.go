package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"med-assistant/internal/inference"
)

const completionBody = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "llama3-8b-8192",
	"choices": [
		{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Rest and drink fluids."}}
	]
}`

func chatSpec(endpoint string) inference.Capability {
	return inference.Capability{Model: "llama3-8b-8192", Endpoint: endpoint, Temperature: 0.7}
}

func TestOpenAIClientComplete(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completionBody))
	}))
	defer srv.Close()

	client, err := NewOpenAIClient("groq-key", chatSpec(srv.URL+"/openai/v1"), time.Second, srv.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reply, err := client.Complete(context.Background(), "be safe", "I have a headache")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Rest and drink fluids." {
		t.Errorf("unexpected reply %q", reply)
	}
	if gotAuth != "Bearer groq-key" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if got.Model != "llama3-8b-8192" || got.Temperature != 0.7 {
		t.Errorf("unexpected model/temperature: %s %v", got.Model, got.Temperature)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if got.Messages[0].Content != "be safe" || got.Messages[1].Content != "I have a headache" {
		t.Errorf("unexpected message contents: %+v", got.Messages)
	}
}

func TestOpenAIClientFailures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind inference.Kind
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`, inference.Transient},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow"}}`, inference.Transient},
		{"bad key", http.StatusUnauthorized, `{"error":{"message":"invalid api key"}}`, inference.Permanent},
		{"no choices", http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`, inference.Permanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client, err := NewOpenAIClient("k", chatSpec(srv.URL), time.Second, srv.Client())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			_, err = client.Complete(context.Background(), "sys", "user")
			var ie *inference.Error
			if !errors.As(err, &ie) {
				t.Fatalf("expected *inference.Error, got %v", err)
			}
			if ie.Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, ie.Kind)
			}
			if calls != 1 {
				t.Errorf("expected exactly one request (no retries), got %d", calls)
			}
		})
	}
}

func TestNewOpenAIClientValidation(t *testing.T) {
	if _, err := NewOpenAIClient("", chatSpec(""), 0, nil); err == nil {
		t.Error("expected error for missing api key")
	}
	if _, err := NewOpenAIClient("k", inference.Capability{}, 0, nil); err == nil {
		t.Error("expected error for missing model")
	}
}
