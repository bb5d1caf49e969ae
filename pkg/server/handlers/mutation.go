package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kortexhq/kortex/pkg/kerr"
	"github.com/kortexhq/kortex/pkg/mutation"
	"github.com/kortexhq/kortex/pkg/queue"
	"github.com/kortexhq/kortex/pkg/server/dto"
	"github.com/kortexhq/kortex/pkg/types"
)

// MutationHandler handles the edge update and episode delete endpoints
// (spec §4.8/§6). Both run through the episode queue's per-group
// exclusion so neither ever interleaves with an in-flight extraction for
// the affected group.
type MutationHandler struct {
	mutation       *mutation.Service
	queue          *queue.Queue
	defaultGroupID string
}

// NewMutationHandler constructs a MutationHandler.
func NewMutationHandler(svc *mutation.Service, q *queue.Queue, defaultGroupID string) *MutationHandler {
	if defaultGroupID == "" {
		defaultGroupID = "default"
	}
	return &MutationHandler{mutation: svc, queue: q, defaultGroupID: defaultGroupID}
}

// UpdateEdge handles the edge update endpoint.
func (h *MutationHandler) UpdateEdge(w http.ResponseWriter, r *http.Request) {
	edgeID := chi.URLParam(r, "edge_id")
	if edgeID == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "edge_id parameter is required")
		return
	}

	var req dto.EdgeUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	groupID := r.URL.Query().Get("group_id")
	if groupID == "" {
		groupID = h.defaultGroupID
	}

	var updated *types.RelationEdge
	err := h.queue.RunExclusive(r.Context(), groupID, func(ctx context.Context) error {
		var execErr error
		updated, execErr = h.mutation.UpdateEdge(ctx, mutation.UpdateEdgeInput{
			EdgeUUID:      edgeID,
			GroupID:       groupID,
			NewFact:       req.Fact,
			NewAttributes: req.Attributes,
			NewSourceUUID: req.SourceEntityID,
			NewTargetUUID: req.TargetEntityID,
			Reason:        req.Reason,
		})
		return execErr
	})
	if err != nil {
		if kerr.Is(err, kerr.KindNotFound) {
			writeErrorJSON(w, http.StatusNotFound, "edge_not_found", err.Error())
			return
		}
		writeErrorJSON(w, http.StatusInternalServerError, "update_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EdgeUpdateResponse{OldID: edgeID, NewID: updated.UUID})
}

// DeleteEpisode handles the episode delete endpoint.
func (h *MutationHandler) DeleteEpisode(w http.ResponseWriter, r *http.Request) {
	episodeID := chi.URLParam(r, "episode_id")
	if episodeID == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "episode_id parameter is required")
		return
	}

	groupID := r.URL.Query().Get("group_id")
	if groupID == "" {
		groupID = h.defaultGroupID
	}

	err := h.queue.RunExclusive(r.Context(), groupID, func(ctx context.Context) error {
		return h.mutation.DeleteEpisode(ctx, groupID, episodeID)
	})
	if err != nil {
		if kerr.Is(err, kerr.KindNotFound) {
			writeErrorJSON(w, http.StatusNotFound, "episode_not_found", err.Error())
			return
		}
		writeErrorJSON(w, http.StatusInternalServerError, "delete_failed", err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
