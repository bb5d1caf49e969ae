package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kortexhq/kortex/pkg/citation"
	"github.com/kortexhq/kortex/pkg/search"
	"github.com/kortexhq/kortex/pkg/server/dto"
	"github.com/kortexhq/kortex/pkg/types"
)

type fakeEmbedder struct{ vec []float32 }

func (f fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}
func (f fakeEmbedder) EmbedSingle(_ context.Context, _ string) ([]float32, error) { return f.vec, nil }
func (f fakeEmbedder) Dimensions() int                                           { return len(f.vec) }
func (f fakeEmbedder) Close() error                                              { return nil }

func TestSearchHandlerDispatchesByKind(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()

	alice := &types.Entity{UUID: "e1", GroupID: "g1", Name: "Alice", Label: "Person", Embedding: []float32{1, 0, 0}, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.UpsertEntity(ctx, alice); err != nil {
		t.Fatalf("upsert entity: %v", err)
	}
	ep := &types.Episode{UUID: "ep1", GroupID: "g1", Name: "note", Content: "talks about rockets", CreatedAt: time.Now(), ReferenceTime: time.Now()}
	if err := store.UpsertEpisode(ctx, ep); err != nil {
		t.Fatalf("upsert episode: %v", err)
	}

	engine := search.New(store, fakeEmbedder{vec: []float32{1, 0, 0}})
	citations := citation.New(store)
	h := NewSearchHandler(engine, citations, "g1")

	t.Run("nodes", func(t *testing.T) {
		body, _ := json.Marshal(dto.SearchRequest{Query: "Alice", Kind: "nodes"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
		w := httptest.NewRecorder()
		h.Search(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Result().StatusCode)
		}
		var resp dto.SearchResponse
		if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Count == 0 {
			t.Fatal("expected at least one node result")
		}
	})

	t.Run("episodes", func(t *testing.T) {
		body, _ := json.Marshal(dto.SearchRequest{Query: "rockets", Kind: "episodes"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
		w := httptest.NewRecorder()
		h.Search(w, req)

		if w.Result().StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Result().StatusCode)
		}
		var resp dto.SearchResponse
		if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Count != 1 {
			t.Fatalf("expected 1 episode result, got %d", resp.Count)
		}
	})
}

func TestSearchHandlerZeroMaxResultsReturnsEmpty(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()
	alice := &types.Entity{UUID: "e1", GroupID: "g1", Name: "Alice", Label: "Person", Embedding: []float32{1, 0, 0}, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.UpsertEntity(ctx, alice); err != nil {
		t.Fatalf("upsert entity: %v", err)
	}

	engine := search.New(store, fakeEmbedder{vec: []float32{1, 0, 0}})
	citations := citation.New(store)
	h := NewSearchHandler(engine, citations, "g1")

	zero := 0
	body, _ := json.Marshal(dto.SearchRequest{Query: "Alice", Kind: "nodes", MaxResults: &zero})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.Search(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Result().StatusCode)
	}
	var resp dto.SearchResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 0 || len(resp.Results) != 0 {
		t.Fatalf("expected empty results for max_results=0, got count=%d results=%d", resp.Count, len(resp.Results))
	}
}

func TestSearchHandlerRejectsInvalidKind(t *testing.T) {
	store := newTestBadgerStore(t)
	engine := search.New(store, fakeEmbedder{vec: []float32{1}})
	citations := citation.New(store)
	h := NewSearchHandler(engine, citations, "g1")

	body, _ := json.Marshal(dto.SearchRequest{Query: "x", Kind: "bogus"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/search", bytes.NewReader(body))
	w := httptest.NewRecorder()
	h.Search(w, req)

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Result().StatusCode)
	}
}
