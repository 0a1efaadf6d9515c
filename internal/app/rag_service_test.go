package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"gopherai-rag/internal/model"
	"gopherai-rag/internal/rag"
)

type stubIngestor struct {
	calls int
}

func (s *stubIngestor) IngestFile(context.Context, []byte) (*rag.IngestResult, error) {
	s.calls++
	return &rag.IngestResult{ChunksStored: 3}, nil
}

func (s *stubIngestor) EmbedText(context.Context, string) (rag.ChunkID, error) {
	s.calls++
	return "chunk-1", nil
}

func TestRAGServiceRequiresPrincipal(t *testing.T) {
	ing := &stubIngestor{}
	resp := &stubResponder{answer: "a"}
	svc := NewRAGService(ing, resp, nil)
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, 0, []byte("x")); !errors.Is(err, rag.ErrUnauthorized) {
		t.Errorf("Ingest: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.EmbedText(ctx, 0, "x"); !errors.Is(err, rag.ErrUnauthorized) {
		t.Errorf("EmbedText: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Answer(ctx, 0, "q", nil); !errors.Is(err, rag.ErrUnauthorized) {
		t.Errorf("Answer: expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.Welcome(ctx, 0); !errors.Is(err, rag.ErrUnauthorized) {
		t.Errorf("Welcome: expected ErrUnauthorized, got %v", err)
	}
	if ing.calls != 0 || len(resp.queries) != 0 || len(resp.welcomes) != 0 {
		t.Fatal("core must not be reached without a principal")
	}
}

func TestRAGServiceEmbedText(t *testing.T) {
	svc := NewRAGService(&stubIngestor{}, &stubResponder{}, nil)
	res, err := svc.EmbedText(context.Background(), 1, "note")
	if err != nil || res.DocumentID != "chunk-1" || !res.Stored {
		t.Fatalf("unexpected result %+v, %v", res, err)
	}
}

func TestRAGServiceWelcomeUsesProfileName(t *testing.T) {
	users := newMemUsers()
	_ = users.Create(context.Background(), &model.User{Username: "ada", FullName: "Ada Lovelace"})
	resp := &stubResponder{welcome: "Good evening, Ada Lovelace!"}
	svc := NewRAGService(&stubIngestor{}, resp, users)
	at := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	got, err := svc.Welcome(context.Background(), 1)
	if err != nil || got != "Good evening, Ada Lovelace!" {
		t.Fatalf("unexpected welcome %q, %v", got, err)
	}
	if resp.welcomes[0].Name != "Ada Lovelace" || !resp.welcomes[0].Now.Equal(at) {
		t.Fatalf("unexpected welcome request %+v", resp.welcomes[0])
	}
}
