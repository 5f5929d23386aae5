package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	goopenai "github.com/sashabaranov/go-openai"
)

func chatServer(t *testing.T, body string, got *goopenai.ChatCompletionRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("failed to decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error without API key")
	}
}

func TestDefaultConfig(t *testing.T) {
	if DefaultConfig().Model != "gpt-4o-mini" {
		t.Errorf("expected default model 'gpt-4o-mini', got %s", DefaultConfig().Model)
	}
}

func TestAdapter_Answer(t *testing.T) {
	var req goopenai.ChatCompletionRequest
	srv := chatServer(t, `{"choices":[{"index":0,"message":{"role":"assistant","content":" מחרוזת היא רצף של תווים. "}}]}`, &req)
	defer srv.Close()

	a, err := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	answer, err := a.Answer(context.Background(), "ענה בקצרה", "מה זה מחרוזת")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "מחרוזת היא רצף של תווים." {
		t.Errorf("expected trimmed answer, got %q", answer)
	}

	if req.Model != "gpt-4o-mini" {
		t.Errorf("expected model gpt-4o-mini, got %s", req.Model)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[0].Content != "ענה בקצרה" {
		t.Errorf("unexpected system message: %+v", req.Messages[0])
	}
	if req.Messages[1].Role != "user" || req.Messages[1].Content != "מה זה מחרוזת" {
		t.Errorf("unexpected user message: %+v", req.Messages[1])
	}
}

func TestAdapter_Answer_NoSystemPrompt(t *testing.T) {
	var req goopenai.ChatCompletionRequest
	srv := chatServer(t, `{"choices":[{"message":{"role":"assistant","content":"שלום"}}]}`, &req)
	defer srv.Close()

	a, _ := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	if _, err := a.Answer(context.Background(), "", "היי"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
		t.Errorf("expected a single user message, got %+v", req.Messages)
	}
}

func TestAdapter_Answer_EmptyChoices(t *testing.T) {
	srv := chatServer(t, `{"choices":[]}`, nil)
	defer srv.Close()

	a, _ := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	if _, err := a.Answer(context.Background(), "", "היי"); !errors.Is(err, ErrEmptyAnswer) {
		t.Errorf("expected ErrEmptyAnswer, got %v", err)
	}
}

func TestAdapter_Answer_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	}))
	defer srv.Close()

	a, _ := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	_, err := a.Answer(context.Background(), "", "היי")

	var apiErr *goopenai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.HTTPStatusCode != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", apiErr.HTTPStatusCode)
	}
}
