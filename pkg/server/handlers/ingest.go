package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/kerr"
	"github.com/kortexhq/kortex/pkg/queue"
	"github.com/kortexhq/kortex/pkg/server/dto"
	"github.com/kortexhq/kortex/pkg/types"
)

// IngestHandler handles the ingest endpoint (spec §6).
type IngestHandler struct {
	episodes       graphstore.EpisodeStore
	queue          *queue.Queue
	defaultGroupID string
}

// NewIngestHandler constructs an IngestHandler.
func NewIngestHandler(episodes graphstore.EpisodeStore, q *queue.Queue, defaultGroupID string) *IngestHandler {
	if defaultGroupID == "" {
		defaultGroupID = "default"
	}
	return &IngestHandler{episodes: episodes, queue: q, defaultGroupID: defaultGroupID}
}

var bodyKinds = map[string]types.EpisodeType{
	"text":         types.EpisodeTypeText,
	"structured":   types.EpisodeTypeStructured,
	"conversation": types.EpisodeTypeMessage,
}

// Ingest handles the ingest endpoint. Per spec §6, a supplied source_url
// is folded into source_description as "<desc>, source_url: <url>" rather
// than persisted as an independent field, and a supplied id makes the
// call idempotent: re-posting the same id returns the prior acceptance
// without re-queueing the episode.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req dto.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	groupID := req.GroupID
	if groupID == "" {
		groupID = h.defaultGroupID
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	ctx := r.Context()
	if req.ID != "" {
		if existing, err := h.episodes.GetEpisode(ctx, id, groupID); err == nil && existing != nil {
			writeJSON(w, http.StatusAccepted, dto.IngestResponse{
				Status: "accepted", Name: existing.Name, GroupID: groupID, ID: id,
			})
			return
		} else if err != nil && !kerr.Is(err, kerr.KindNotFound) {
			writeErrorJSON(w, http.StatusInternalServerError, "ingest_failed", err.Error())
			return
		}
	}

	bodyKind, ok := bodyKinds[req.BodyKind]
	if !ok {
		bodyKind = types.EpisodeTypeText
	}

	sourceDescription := req.SourceDescription
	if req.SourceURL != "" {
		sourceDescription = fmt.Sprintf("%s, source_url: %s", sourceDescription, req.SourceURL)
	}

	referenceTime := time.Now().UTC()
	if req.ReferenceTime != nil {
		referenceTime = *req.ReferenceTime
	}

	episode := &types.Episode{
		UUID:              id,
		GroupID:           groupID,
		Name:              req.Name,
		Content:           req.Content,
		Type:              bodyKind,
		SourceDescription: sourceDescription,
		ReferenceTime:     referenceTime,
		CreatedAt:         time.Now().UTC(),
		Status:            types.StatusQueued,
	}

	if err := h.queue.Enqueue(ctx, episode); err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "ingest_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, dto.IngestResponse{
		Status: "accepted", Name: episode.Name, GroupID: groupID, ID: id,
	})
}
