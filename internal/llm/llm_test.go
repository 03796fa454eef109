package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseProviderFlag(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantProv string
		wantMod  string
		wantErr  bool
	}{
		{"empty defaults to google", "", "google", "gemini-2.5-flash", false},
		{"google flash", "google/gemini-2.5-flash", "google", "gemini-2.5-flash", false},
		{"openrouter nested model", "openrouter/openai/gpt-4o-mini", "openrouter", "openai/gpt-4o-mini", false},
		{"unknown provider", "mistral/mistral-large", "", "", true},
		{"no slash", "gemini-2.5-flash", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseProviderFlag(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cfg.Provider != tt.wantProv {
				t.Errorf("provider: got %q, want %q", cfg.Provider, tt.wantProv)
			}
			if cfg.Model != tt.wantMod {
				t.Errorf("model: got %q, want %q", cfg.Model, tt.wantMod)
			}
		})
	}
}

func TestNewProviderErrors(t *testing.T) {
	_, err := NewProvider(Config{Provider: "unknown"})
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}

	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")
	_, err = NewProvider(Config{Provider: "google"})
	if err == nil {
		t.Fatal("expected error for google without API key")
	}

	t.Setenv("OPENROUTER_API_KEY", "")
	_, err = NewProvider(Config{Provider: "openrouter"})
	if err == nil {
		t.Fatal("expected error for openrouter without API key")
	}
}

func TestGoogleProviderComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req googleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Contents) == 0 || req.Contents[0].Parts[0].Text != "sammanfatta" {
			t.Errorf("unexpected request contents: %+v", req.Contents)
		}
		if req.SystemInstruction == nil {
			t.Error("expected system instruction")
		}

		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  Ärendet är klart.  "}]}}]}`))
	}))
	defer server.Close()

	p := &googleProvider{apiKey: "k", model: "gemini-2.5-flash", baseURL: server.URL}
	got, err := p.Complete(context.Background(), "sammanfatta", CompletionOpts{System: "du är handläggare"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Ärendet är klart." {
		t.Errorf("expected trimmed response, got %q", got)
	}
}

func TestGoogleProviderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := &googleProvider{apiKey: "k", model: "m", baseURL: server.URL}
	if _, err := p.Complete(context.Background(), "x", CompletionOpts{}); err == nil {
		t.Error("expected error for non-200 status")
	}
}

func TestOpenRouterProviderComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("missing bearer token, got %q", got)
		}
		var req orRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "hej" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.Write([]byte(`{"choices":[{"message":{"content":"svar"}}]}`))
	}))
	defer server.Close()

	p := &openrouterProvider{apiKey: "k", model: "m", baseURL: server.URL}
	got, err := p.Complete(context.Background(), "hej", CompletionOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "svar" {
		t.Errorf("expected svar, got %q", got)
	}
}

func TestOpenRouterProviderAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(orResponse{Error: &orError{Message: "bad model"}})
	}))
	defer server.Close()

	p := &openrouterProvider{apiKey: "k", model: "m", baseURL: server.URL}
	if _, err := p.Complete(context.Background(), "x", CompletionOpts{}); err == nil {
		t.Error("expected error for API error payload")
	}
}
