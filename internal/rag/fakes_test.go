package rag

import (
	"context"
	"errors"
	"sync"

	"gopherai-rag/internal/ai"
)

var errProviderDown = errors.New("provider down")

// fakeEmbedder returns vectors[text] when present and fallback otherwise.
// Calls listed in failOn (1-based) fail.
type fakeEmbedder struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	failOn   map[int]bool
	calls    int
	texts    []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.texts = append(f.texts, text)
	if f.failOn[f.calls] {
		return nil, errProviderDown
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return f.fallback, nil
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(context.Context, []byte) (string, error) {
	return f.text, f.err
}

type failingStore struct {
	err error
}

func (s failingStore) Store(context.Context, string, []float32) (ChunkID, error) {
	return "", s.err
}

func (s failingStore) QueryTopK(context.Context, []float32, int) ([]Match, error) {
	return nil, s.err
}

// fakeModel replays replies in order and records every request.
type fakeModel struct {
	replies  []ai.Reply
	errs     []error
	requests []ai.ChatRequest
}

func (m *fakeModel) Complete(_ context.Context, req ai.ChatRequest) (ai.Reply, error) {
	i := len(m.requests)
	m.requests = append(m.requests, req)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.replies) {
		return nil, errors.New("no scripted reply")
	}
	return m.replies[i], nil
}

type finderCall struct {
	query string
	mode  MatchMode
}

type fakeFinder struct {
	products []ProductInfo
	err      error
	calls    []finderCall
}

func (f *fakeFinder) FindProducts(_ context.Context, query string, mode MatchMode) ([]ProductInfo, error) {
	f.calls = append(f.calls, finderCall{query: query, mode: mode})
	return f.products, f.err
}
