package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/mutation"
	"github.com/kortexhq/kortex/pkg/queue"
	"github.com/kortexhq/kortex/pkg/server/dto"
	"github.com/kortexhq/kortex/pkg/types"
)

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func seedTestEdge(t *testing.T, store *graphstore.BadgerStore) *types.RelationEdge {
	t.Helper()
	ctx := context.Background()
	a := &types.Entity{UUID: "a", GroupID: "g1", Name: "Alice", Label: "Person", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	b := &types.Entity{UUID: "b", GroupID: "g1", Name: "Bob", Label: "Person", CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if err := store.UpsertEntity(ctx, a); err != nil {
		t.Fatalf("upsert entity: %v", err)
	}
	if err := store.UpsertEntity(ctx, b); err != nil {
		t.Fatalf("upsert entity: %v", err)
	}
	edge := &types.RelationEdge{
		UUID: "ed1", GroupID: "g1", SourceUUID: "a", TargetUUID: "b",
		RelationType: "KNOWS", Fact: "Alice knows Bob",
		EpisodeUUIDs: []string{"ep1"}, CreatedAt: time.Now(),
	}
	if err := store.UpsertEdge(ctx, edge); err != nil {
		t.Fatalf("upsert edge: %v", err)
	}
	return edge
}

func TestUpdateEdgeHandlerExpiresOldAndReturnsNewID(t *testing.T) {
	store := newTestBadgerStore(t)
	edge := seedTestEdge(t, store)
	svc := mutation.New(store, nil, nil)
	q := newTestQueue(t, store)
	h := NewMutationHandler(svc, q, "g1")

	body, _ := json.Marshal(dto.EdgeUpdateRequest{Fact: "Alice no longer knows Bob", Reason: "correction"})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/edge/"+edge.UUID, bytes.NewReader(body))
	req = withURLParam(req, "edge_id", edge.UUID)
	w := httptest.NewRecorder()

	h.UpdateEdge(w, req)

	res := w.Result()
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}

	var resp dto.EdgeUpdateResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.OldID != edge.UUID || resp.NewID == edge.UUID {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestUpdateEdgeHandlerReturns404ForUnknownEdge(t *testing.T) {
	store := newTestBadgerStore(t)
	svc := mutation.New(store, nil, nil)
	q := newTestQueue(t, store)
	h := NewMutationHandler(svc, q, "g1")

	body, _ := json.Marshal(dto.EdgeUpdateRequest{Fact: "whatever"})
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/edge/missing", bytes.NewReader(body))
	req = withURLParam(req, "edge_id", "missing")
	w := httptest.NewRecorder()

	h.UpdateEdge(w, req)

	if w.Result().StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Result().StatusCode)
	}
}

func TestDeleteEpisodeHandlerCascades(t *testing.T) {
	store := newTestBadgerStore(t)
	ctx := context.Background()
	ep := &types.Episode{UUID: "ep1", GroupID: "g1", Content: "c", CreatedAt: time.Now(), ReferenceTime: time.Now()}
	if err := store.UpsertEpisode(ctx, ep); err != nil {
		t.Fatalf("upsert episode: %v", err)
	}

	svc := mutation.New(store, nil, nil)
	q := newTestQueue(t, store)
	h := NewMutationHandler(svc, q, "g1")

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/episode/ep1", nil)
	req = withURLParam(req, "episode_id", "ep1")
	w := httptest.NewRecorder()

	h.DeleteEpisode(w, req)

	if w.Result().StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Result().StatusCode)
	}

	if _, err := store.GetEpisode(ctx, "ep1", "g1"); err == nil {
		t.Fatal("expected episode to be deleted")
	}
}
