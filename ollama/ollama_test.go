package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew_EmptyEndpointIsNoop(t *testing.T) {
	gen := New(Config{Model: "test"})

	out, err := gen.Generate(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != `{"test_cases": []}` {
		t.Errorf("Generate = %q, want empty envelope", out)
	}

	models, err := gen.Models(context.Background())
	if err != nil {
		t.Fatalf("Models: %v", err)
	}
	if len(models) != 0 {
		t.Errorf("Models = %v, want none", models)
	}
	if gen.Model() != "test" {
		t.Errorf("Model = %q, want %q", gen.Model(), "test")
	}
}

func TestGenerate_RequestShape(t *testing.T) {
	var got generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			t.Errorf("path = %q, want /api/generate", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"model":    got.Model,
			"response": `{"test_cases": [{"summary_suffix": "Lock engages"}]}`,
			"done":     true,
		})
	}))
	defer srv.Close()

	gen := New(Config{
		Endpoint:    srv.URL,
		Model:       "llama3.1:8b",
		Temperature: 0,
		Format:      "json",
	})

	out, err := gen.Generate(context.Background(), "decompose this table")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(out, "Lock engages") {
		t.Errorf("Generate = %q, want model response passed through", out)
	}

	if got.Model != "llama3.1:8b" {
		t.Errorf("request model = %q", got.Model)
	}
	if got.Stream {
		t.Error("request stream = true, want false")
	}
	if got.Format != "json" {
		t.Errorf("request format = %q, want json", got.Format)
	}
	if got.Options.Temperature != 0 {
		t.Errorf("request temperature = %v, want 0", got.Options.Temperature)
	}
}

func TestGenerate_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	gen := New(Config{Endpoint: srv.URL, Model: "missing"})
	_, err := gen.Generate(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("error = %v, want HTTP 404 with body", err)
	}
	if !strings.Contains(err.Error(), "model not found") {
		t.Errorf("error = %v, want truncated body included", err)
	}
}

func TestModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("path = %q, want /api/tags", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"models": []map[string]any{
				{"name": "llama3.1:8b"},
				{"name": "deepseek-coder-v2:16b"},
			},
		})
	}))
	defer srv.Close()

	gen := New(Config{Endpoint: srv.URL, Model: "llama3.1:8b"})
	models, err := gen.Models(context.Background())
	if err != nil {
		t.Fatalf("Models: %v", err)
	}
	want := []string{"llama3.1:8b", "deepseek-coder-v2:16b"}
	if len(models) != len(want) {
		t.Fatalf("Models = %v, want %v", models, want)
	}
	for i := range want {
		if models[i] != want[i] {
			t.Errorf("Models[%d] = %q, want %q", i, models[i], want[i])
		}
	}
}

func TestGenerate_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	gen := New(Config{Endpoint: srv.URL, Model: "test"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := gen.Generate(ctx, "prompt"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
