package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kortexhq/kortex/pkg/citation"
	"github.com/kortexhq/kortex/pkg/config"
	"github.com/kortexhq/kortex/pkg/embedder"
	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/mutation"
	"github.com/kortexhq/kortex/pkg/queue"
	"github.com/kortexhq/kortex/pkg/search"
	"github.com/kortexhq/kortex/pkg/server"
	"github.com/kortexhq/kortex/pkg/server/dto"
	"github.com/kortexhq/kortex/pkg/types"
)

type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0}
	}
	return out, nil
}
func (noopEmbedder) EmbedSingle(_ context.Context, _ string) ([]float32, error) { return []float32{0}, nil }
func (noopEmbedder) Dimensions() int                                           { return 1 }
func (noopEmbedder) Close() error                                              { return nil }

var _ embedder.Client = noopEmbedder{}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := graphstore.NewBadgerStore(t.TempDir())
	if err != nil {
		t.Fatalf("new badger store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	q := queue.New(queue.Config{}, store, func(ctx context.Context, ep *types.Episode) error { return nil }, nil)
	engine := search.New(store, noopEmbedder{})
	citations := citation.New(store)
	mutationSvc := mutation.New(store, noopEmbedder{}, nil)

	cfg := &config.Config{}
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Queue.DefaultGroupID = "default"

	srv := server.New(cfg, store, q, engine, citations, mutationSvc)
	srv.Setup()

	return httptest.NewServer(srv.Handler())
}

func TestServerRoutesIngestAndHealth(t *testing.T) {
	ts := newTestServer(t)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body, _ := json.Marshal(dto.IngestRequest{Name: "n", Content: "c", GroupID: "default"})
	resp2, err := http.Post(ts.URL+"/api/v1/ingest", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/v1/ingest: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp2.StatusCode)
	}
}
