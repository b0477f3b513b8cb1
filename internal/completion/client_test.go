package completion

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

type capturedRequest struct {
	Model     string `json:"model"`
	MaxTokens int    `json:"max_tokens"`
	Messages  []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatResponse(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "cmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-3.5-turbo",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
	})
	return string(b)
}

func newServer(t *testing.T, status int, body string, seen *capturedRequest, auth *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if seen != nil {
			_ = json.NewDecoder(r.Body).Decode(seen)
		}
		if auth != nil {
			*auth = r.Header.Get("Authorization")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestComplete_BuildsRequestAndTrims(t *testing.T) {
	var seen capturedRequest
	var auth string
	srv := newServer(t, http.StatusOK, chatResponse("  React is great.  "), &seen, &auth)

	c := New(Options{APIKey: "sk-test", BaseURL: srv.URL + "/v1/", SystemPrompt: "persona"})
	hist := []Turn{{Role: "assistant", Content: "Welcome"}, {Role: "user", Content: "Hi"}, {Role: "bogus", Content: "x"}}

	res, err := c.Complete(context.Background(), hist, "tell me about react")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Text != "React is great." || res.IsOffTopic {
		t.Fatalf("unexpected result: %+v", res)
	}

	if auth != "Bearer sk-test" {
		t.Fatalf("Authorization = %q", auth)
	}
	if seen.Model != DefaultModel || seen.MaxTokens != DefaultMaxTokens {
		t.Fatalf("model/max_tokens = %q/%d", seen.Model, seen.MaxTokens)
	}
	wantRoles := []string{"system", "assistant", "user", "assistant", "user"}
	if len(seen.Messages) != len(wantRoles) {
		t.Fatalf("messages = %+v", seen.Messages)
	}
	for i, r := range wantRoles {
		if seen.Messages[i].Role != r {
			t.Fatalf("message %d role = %q; want %q", i, seen.Messages[i].Role, r)
		}
	}
	if seen.Messages[0].Content != "persona" || seen.Messages[4].Content != "tell me about react" {
		t.Fatalf("persona/latest content wrong: %+v", seen.Messages)
	}
}

func TestComplete_OffTopicDetection(t *testing.T) {
	for _, content := range []string{"I'm sorry, I can only talk about Emmanuella.", "   ", "Well, I'M SORRY but no."} {
		srv := newServer(t, http.StatusOK, chatResponse(content), nil, nil)
		c := New(Options{APIKey: "k", BaseURL: srv.URL})
		res, err := c.Complete(context.Background(), nil, "weather?")
		if err != nil {
			t.Fatalf("Complete: %v", err)
		}
		if !res.IsOffTopic {
			t.Fatalf("content %q should be off-topic", content)
		}
	}
}

func TestComplete_FailuresAreCompletionErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"server_error", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error"}}`},
		{"no_choices", http.StatusOK, `{"id":"x","object":"chat.completion","choices":[]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, tc.status, tc.body, nil, nil)
			c := New(Options{APIKey: "k", BaseURL: srv.URL})
			_, err := c.Complete(context.Background(), nil, "q")
			var ce *CompletionError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *CompletionError, got %T %v", err, err)
			}
			if ce.Unwrap() == nil || !strings.HasPrefix(ce.Error(), "completion failed: ") {
				t.Fatalf("bad error shape: %v", ce)
			}
		})
	}
}

func TestComplete_TransportFailureAndTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := New(Options{APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := c.Complete(context.Background(), nil, "q")
	var ce *CompletionError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CompletionError on timeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("timeout should unwrap to DeadlineExceeded, got %v", err)
	}

	dead := New(Options{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	if _, err := dead.Complete(context.Background(), nil, "q"); !errors.As(err, &ce) {
		t.Fatalf("expected *CompletionError on refused connection, got %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New(Options{})
	if c.Model() != DefaultModel || c.maxTokens != DefaultMaxTokens {
		t.Fatalf("defaults not applied: %q %d", c.Model(), c.maxTokens)
	}
	c = New(Options{Model: "m", MaxTokens: 10})
	if c.Model() != "m" || c.maxTokens != 10 {
		t.Fatalf("overrides not applied")
	}
}

func TestIsOffTopic(t *testing.T) {
	if !IsOffTopic("") || !IsOffTopic("i'm sorry") || IsOffTopic("All good") {
		t.Fatalf("IsOffTopic classification wrong")
	}
}
