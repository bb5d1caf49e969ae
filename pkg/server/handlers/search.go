package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kortexhq/kortex/pkg/citation"
	"github.com/kortexhq/kortex/pkg/search"
	"github.com/kortexhq/kortex/pkg/server/dto"
	"github.com/kortexhq/kortex/pkg/types"
)

// SearchHandler handles the search endpoint (spec §4.6/§6).
type SearchHandler struct {
	engine         *search.Engine
	citations      *citation.Service
	defaultGroupID string
}

// NewSearchHandler constructs a SearchHandler.
func NewSearchHandler(engine *search.Engine, citations *citation.Service, defaultGroupID string) *SearchHandler {
	if defaultGroupID == "" {
		defaultGroupID = "default"
	}
	return &SearchHandler{engine: engine, citations: citations, defaultGroupID: defaultGroupID}
}

// Search handles POST /search. It fans out over every requested group_id
// (or the default group when none is given), runs the requested search
// surface, and merges the per-group results before truncating to
// max_results.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req dto.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	maxResults := req.ResolvedMaxResults()
	if maxResults == 0 {
		writeJSON(w, http.StatusOK, dto.SearchResponse{Kind: req.Kind, Count: 0, Results: []interface{}{}})
		return
	}

	groupIDs := req.GroupIDs
	if len(groupIDs) == 0 {
		groupIDs = []string{h.defaultGroupID}
	}

	ctx := r.Context()
	var results []interface{}

	for _, groupID := range groupIDs {
		cfg := &types.SearchConfig{
			GroupID:        groupID,
			Query:          req.Query,
			Limit:          maxResults,
			CenterNodeUUID: req.CenterNodeID,
			UseGraph:       req.CenterNodeID != "",
		}

		switch req.Kind {
		case "nodes":
			items, err := h.searchNodes(ctx, groupID, cfg, req.Labels)
			if err != nil {
				writeErrorJSON(w, http.StatusInternalServerError, "search_failed", err.Error())
				return
			}
			results = append(results, items...)
		case "edges":
			items, err := h.searchEdges(ctx, groupID, cfg)
			if err != nil {
				writeErrorJSON(w, http.StatusInternalServerError, "search_failed", err.Error())
				return
			}
			results = append(results, items...)
		case "episodes":
			items, err := h.searchEpisodes(ctx, cfg)
			if err != nil {
				writeErrorJSON(w, http.StatusInternalServerError, "search_failed", err.Error())
				return
			}
			results = append(results, items...)
		}
	}

	if len(results) > maxResults {
		results = results[:maxResults]
	}

	writeJSON(w, http.StatusOK, dto.SearchResponse{
		Kind:    req.Kind,
		Count:   len(results),
		Results: results,
	})
}

func (h *SearchHandler) searchNodes(ctx context.Context, groupID string, cfg *types.SearchConfig, labels []string) ([]interface{}, error) {
	res, err := h.engine.Search(ctx, cfg)
	if err != nil {
		return nil, err
	}

	wantLabel := make(map[string]bool, len(labels))
	for _, l := range labels {
		wantLabel[strings.ToLower(l)] = true
	}

	out := make([]interface{}, 0, len(res.Entities))
	for _, e := range res.Entities {
		if len(wantLabel) > 0 && !wantLabel[strings.ToLower(e.Label)] {
			continue
		}
		cites, err := h.citations.ForEntity(ctx, groupID, e)
		if err != nil {
			return nil, err
		}
		out = append(out, dto.NodeResult{
			ID: e.UUID, Name: e.Name, Label: e.Label, Summary: e.Summary,
			Attributes: e.Attributes, CreatedAt: e.CreatedAt, Citations: cites,
		})
	}
	return out, nil
}

func (h *SearchHandler) searchEdges(ctx context.Context, groupID string, cfg *types.SearchConfig) ([]interface{}, error) {
	res, err := h.engine.Search(ctx, cfg)
	if err != nil {
		return nil, err
	}

	out := make([]interface{}, 0, len(res.Edges))
	for _, e := range res.Edges {
		cites, err := h.citations.ForEdge(ctx, groupID, e)
		if err != nil {
			return nil, err
		}
		out = append(out, dto.EdgeResult{
			ID: e.UUID, SourceEntityID: e.SourceUUID, TargetEntityID: e.TargetUUID,
			RelationName: e.RelationType, Fact: e.Fact, CreatedAt: e.CreatedAt,
			ValidAt: e.ValidAt, InvalidAt: e.InvalidAt, ExpiredAt: e.ExpiredAt,
			OriginalFact: e.OriginalFact, UpdateReason: e.UpdateReason, Citations: cites,
		})
	}
	return out, nil
}

func (h *SearchHandler) searchEpisodes(ctx context.Context, cfg *types.SearchConfig) ([]interface{}, error) {
	episodes, err := h.engine.SearchEpisodes(ctx, cfg)
	if err != nil {
		return nil, err
	}

	out := make([]interface{}, 0, len(episodes))
	for _, ep := range episodes {
		out = append(out, dto.EpisodeResult{
			ID: ep.UUID, Name: ep.Name, GroupID: ep.GroupID, BodyKind: string(ep.Type),
			SourceDescription: ep.SourceDescription, ReferenceTime: ep.ReferenceTime, IngestedAt: ep.CreatedAt,
		})
	}
	return out, nil
}
