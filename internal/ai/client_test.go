package ai

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai/jsonschema"
)

type fakeProvider struct {
	dims      int
	chatReply map[string]any
	lastChat  map[string]any
	status    int
}

func (f *fakeProvider) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`))
			return
		}
		vec := make([]float32, f.dims)
		for i := range vec {
			vec[i] = 0.5
		}
		writeJSON(t, w, map[string]any{
			"object": "list",
			"model":  "text-embedding-ada-002",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": vec},
			},
		})
	})
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode chat request: %v", err)
		}
		f.lastChat = body
		writeJSON(t, w, f.chatReply)
	})
	return mux
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("encode response: %v", err)
	}
}

func newTestClient(t *testing.T, f *fakeProvider, dims int) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{
		BaseURL:    srv.URL + "/v1",
		APIKey:     "test-key",
		Dimensions: dims,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(Config{}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestEmbed(t *testing.T) {
	c := newTestClient(t, &fakeProvider{dims: 4}, 4)

	vec, err := c.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 4 {
		t.Fatalf("expected 4 dimensions, got %d", len(vec))
	}
}

func TestEmbedRejectsWrongDimensions(t *testing.T) {
	c := newTestClient(t, &fakeProvider{dims: 3}, 4)

	_, err := c.Embed(context.Background(), "hello")
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestEmbedProviderError(t *testing.T) {
	c := newTestClient(t, &fakeProvider{dims: 4, status: http.StatusTooManyRequests}, 4)

	if _, err := c.Embed(context.Background(), "hello"); err == nil {
		t.Fatal("expected provider error")
	}
}

func TestEmbedEmptyInput(t *testing.T) {
	c := newTestClient(t, &fakeProvider{dims: 4}, 4)

	if _, err := c.Embed(context.Background(), "   "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
}

func TestCompleteFinalAnswer(t *testing.T) {
	f := &fakeProvider{chatReply: map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": "I don't know."},
		}},
	}}
	c := newTestClient(t, f, 4)

	reply, err := c.Complete(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleSystem, Content: "policy"}, {Role: RoleUser, Content: "q"}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	final, ok := reply.(FinalAnswer)
	if !ok {
		t.Fatalf("expected FinalAnswer, got %T", reply)
	}
	if final.Text != "I don't know." {
		t.Fatalf("unexpected text %q", final.Text)
	}
	if got := f.lastChat["temperature"]; got != 0.2 {
		t.Fatalf("expected default temperature 0.2, got %v", got)
	}
}

func TestCompleteToolRequest(t *testing.T) {
	f := &fakeProvider{chatReply: map[string]any{
		"id":     "chatcmpl-2",
		"object": "chat.completion",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "tool_calls",
			"message": map[string]any{
				"role":    "assistant",
				"content": "",
				"tool_calls": []map[string]any{{
					"id":   "call_1",
					"type": "function",
					"function": map[string]any{
						"name":      "get_product_info",
						"arguments": `{"productName":"Widget","searchType":"exact"}`,
					},
				}},
			},
		}},
	}}
	c := newTestClient(t, f, 4)

	reply, err := c.Complete(context.Background(), ChatRequest{
		Messages: []Message{{Role: RoleUser, Content: "price of Widget?"}},
		Tools: []Tool{{
			Name: "get_product_info",
			Parameters: jsonschema.Definition{
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"productName": {Type: jsonschema.String},
				},
			},
		}},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	req, ok := reply.(ToolRequest)
	if !ok {
		t.Fatalf("expected ToolRequest, got %T", reply)
	}
	if len(req.Calls) != 1 || req.Calls[0].Name != "get_product_info" || req.Calls[0].ID != "call_1" {
		t.Fatalf("unexpected calls %+v", req.Calls)
	}
	if _, ok := f.lastChat["tools"]; !ok {
		t.Fatal("expected tools in request body")
	}
}

func TestCompleteEmptyContent(t *testing.T) {
	f := &fakeProvider{chatReply: map[string]any{
		"id":     "chatcmpl-3",
		"object": "chat.completion",
		"choices": []map[string]any{{
			"index":   0,
			"message": map[string]any{"role": "assistant", "content": ""},
		}},
	}}
	c := newTestClient(t, f, 4)

	_, err := c.Complete(context.Background(), ChatRequest{Messages: []Message{{Role: RoleUser, Content: "q"}}})
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("expected ErrEmptyResponse, got %v", err)
	}
}

func TestCompleteSendsZeroTemperature(t *testing.T) {
	f := &fakeProvider{chatReply: map[string]any{
		"id":     "chatcmpl-4",
		"object": "chat.completion",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": "ok"},
		}},
	}}
	c := newTestClient(t, f, 4)
	msgs := []Message{{Role: RoleUser, Content: "q"}}

	if _, err := c.Complete(context.Background(), ChatRequest{Messages: msgs, Temperature: Float32(0)}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got, ok := f.lastChat["temperature"].(float64)
	if !ok || got <= 0 || got > 1e-30 {
		t.Fatalf("expected a near-zero temperature on the wire, got %v", f.lastChat["temperature"])
	}

	if _, err := c.Complete(context.Background(), ChatRequest{Messages: msgs, Temperature: Float32(0.7)}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got, _ := f.lastChat["temperature"].(float64); math.Abs(got-0.7) > 1e-6 {
		t.Fatalf("expected temperature 0.7, got %v", got)
	}
}
