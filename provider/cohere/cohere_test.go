package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/verdantiq/esgcopilot/provider"
)

func TestChatMapsRolesAndSettings(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(chatResponse{Text: "generated reply"})
	}))
	defer srv.Close()

	c := NewClient("test-key", srv.URL, "command-r", "embed-english-v3.0", 0.3, 5*time.Second)
	res, err := c.Chat(context.Background(), provider.ChatRequest{
		Message: "What is our Scope 1 policy?",
		History: []provider.Turn{
			{Role: provider.RoleUser, Message: "hi"},
			{Role: provider.RoleChatbot, Message: "hello"},
			{Role: provider.RoleSystem, Message: "policy excerpt"},
		},
		Preamble: "You are an ESG assistant.",
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Text != "generated reply" {
		t.Fatalf("unexpected text %q", res.Text)
	}
	if captured.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", captured.Temperature)
	}
	if captured.PromptTruncation != "AUTO" {
		t.Errorf("prompt_truncation = %q, want AUTO", captured.PromptTruncation)
	}
	wantRoles := []string{"USER", "CHATBOT", "SYSTEM"}
	if len(captured.ChatHistory) != len(wantRoles) {
		t.Fatalf("chat_history has %d entries", len(captured.ChatHistory))
	}
	for i, want := range wantRoles {
		if captured.ChatHistory[i].Role != want {
			t.Errorf("history[%d].role = %q, want %q", i, captured.ChatHistory[i].Role, want)
		}
	}
}

func TestChatNonSuccessStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"too many tokens"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "command-r", "", 0.3, 5*time.Second)
	if _, err := c.Chat(context.Background(), provider.ChatRequest{Message: "hi"}); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}

func TestChatMissingKeyFailsAtCallTime(t *testing.T) {
	c := NewClient("", "http://unused", "command-r", "", 0.3, time.Second)
	if _, err := c.Chat(context.Background(), provider.ChatRequest{Message: "hi"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestCreateEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.InputType != provider.InputSearchDocument {
			t.Errorf("input_type = %q", req.InputType)
		}
		vecs := make([][]float32, len(req.Texts))
		for i := range vecs {
			vecs[i] = []float32{float32(i), 0.5}
		}
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: vecs})
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "", "embed-english-v3.0", 0.3, 5*time.Second)
	vecs, err := c.CreateEmbedding(context.Background(), []string{"a", "b", "c"}, provider.InputSearchDocument)
	if err != nil {
		t.Fatalf("CreateEmbedding: %v", err)
	}
	if len(vecs) != 3 || vecs[2][0] != 2 {
		t.Fatalf("unexpected vectors %v", vecs)
	}
}

func TestCreateEmbeddingCountMismatchIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.1}}})
	}))
	defer srv.Close()

	c := NewClient("k", srv.URL, "", "m", 0.3, 5*time.Second)
	if _, err := c.CreateEmbedding(context.Background(), []string{"a", "b"}, provider.InputSearchQuery); err == nil {
		t.Fatal("expected error when embedding count does not match input count")
	}
}
