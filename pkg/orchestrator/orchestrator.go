// Package orchestrator implements the Ingestion Orchestrator (spec
// §4.4): the per-episode pipeline that chunks content, extracts
// entities and facts via the LLM Client, resolves them against the
// existing graph, and persists the result. An Orchestrator's Process
// method is the queue.Processor the Episode Queue dispatches into.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kortexhq/kortex/pkg/embedder"
	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/kerr"
	"github.com/kortexhq/kortex/pkg/llmclient"
	"github.com/kortexhq/kortex/pkg/ontology"
	"github.com/kortexhq/kortex/pkg/resolver"
	"github.com/kortexhq/kortex/pkg/types"
)

// DefaultMaxChunkChars mirrors the teacher's default chunk size for
// episode content split across multiple LLM extraction calls.
const DefaultMaxChunkChars = 4000

// Orchestrator runs the extraction -> resolution -> persistence
// pipeline for one episode at a time.
type Orchestrator struct {
	store         graphstore.Store
	llm           llmclient.Client
	embed         embedder.Client
	resolver      *resolver.Resolver
	ontology      *ontology.Registry
	log           *slog.Logger
	maxChunkChars int
}

// Config holds Orchestrator construction parameters.
type Config struct {
	Store         graphstore.Store
	LLM           llmclient.Client
	Embed         embedder.Client
	Resolver      *resolver.Resolver
	Ontology      *ontology.Registry
	Log           *slog.Logger
	MaxChunkChars int
}

// New constructs an Orchestrator.
func New(cfg Config) *Orchestrator {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	maxChunkChars := cfg.MaxChunkChars
	if maxChunkChars <= 0 {
		maxChunkChars = DefaultMaxChunkChars
	}
	return &Orchestrator{
		store:         cfg.Store,
		llm:           cfg.LLM,
		embed:         cfg.Embed,
		resolver:      cfg.Resolver,
		ontology:      cfg.Ontology,
		log:           log,
		maxChunkChars: maxChunkChars,
	}
}

type entityExtractionResponse struct {
	Entities []struct {
		Name         string         `json:"name"`
		EntityTypeID int            `json:"entity_type_id"`
		Summary      string         `json:"summary"`
		Attributes   map[string]any `json:"attributes"`
	} `json:"entities"`
}

type factExtractionResponse struct {
	Facts []struct {
		SourceUUID   string `json:"source_uuid"`
		TargetUUID   string `json:"target_uuid"`
		RelationType string `json:"relation_type"`
		Fact         string `json:"fact"`
		Summary      string `json:"summary"`
		ValidAt      string `json:"valid_at"`
		InvalidAt    string `json:"invalid_at"`
		Negates      bool   `json:"negates"`
	} `json:"facts"`
}

// Process runs the full pipeline for a single episode: chunk -> extract
// entities -> resolve entities -> extract facts -> resolve facts ->
// persist. It matches queue.Processor's signature.
func (o *Orchestrator) Process(ctx context.Context, episode *types.Episode) error {
	if err := episode.Validate(); err != nil {
		return kerr.Validation("orchestrator.Process", err.Error())
	}

	chunks := ChunkText(episode.Content, o.maxChunkChars)
	previousEpisodes, err := o.store.GetEpisodesInRange(ctx, episode.GroupID, episode.ReferenceTime.AddDate(0, 0, -30), episode.ReferenceTime, 10)
	if err != nil {
		return kerr.Transient("orchestrator.loadContext", err)
	}
	o.log.Debug("chunked episode", "episode_uuid", episode.UUID, "chunks", len(chunks))

	episode.Status = types.StatusExtracting
	_ = o.store.UpsertEpisode(ctx, episode)

	var extractedEntities []*types.Entity
	for i, chunk := range chunks {
		chunkEpisode := &types.Episode{UUID: episode.UUID, GroupID: episode.GroupID, Content: chunk, ReferenceTime: episode.ReferenceTime}
		entities, err := o.extractEntities(ctx, chunkEpisode, previousEpisodes)
		if err != nil {
			return fmt.Errorf("orchestrator: extract entities (chunk %d): %w", i, err)
		}
		extractedEntities = append(extractedEntities, entities...)
	}

	if err := o.embedEntities(ctx, extractedEntities); err != nil {
		return kerr.Transient("orchestrator.embedEntities", err)
	}

	episode.Status = types.StatusResolving
	_ = o.store.UpsertEpisode(ctx, episode)

	resolutions, err := o.resolver.ResolveEntities(ctx, episode.GroupID, extractedEntities)
	if err != nil {
		return fmt.Errorf("orchestrator: resolve entities: %w", err)
	}

	resolvedEntities := make([]*types.Entity, 0, len(resolutions))
	for i, r := range resolutions {
		resolvedEntities = append(resolvedEntities, r.Entity)
		if r.Matched && r.Updated && extractedEntities[i].Summary != "" {
			if err := o.refreshSummary(ctx, r.Entity, extractedEntities[i].Summary); err != nil {
				o.log.Warn("entity summary refresh failed", "entity_uuid", r.Entity.UUID, "error", err)
			}
		}
	}

	extractedEdges, err := o.extractFacts(ctx, episode, resolvedEntities)
	if err != nil {
		return fmt.Errorf("orchestrator: extract facts: %w", err)
	}
	if err := o.embedEdges(ctx, extractedEdges); err != nil {
		return kerr.Transient("orchestrator.embedEdges", err)
	}

	edgeResolutions, err := o.resolver.ResolveEdges(ctx, episode.GroupID, extractedEdges, episode.ReferenceTime)
	if err != nil {
		return fmt.Errorf("orchestrator: resolve edges: %w", err)
	}

	episode.Status = types.StatusPersisting
	_ = o.store.UpsertEpisode(ctx, episode)

	if err := o.persist(ctx, episode, resolvedEntities, edgeResolutions); err != nil {
		return fmt.Errorf("orchestrator: persist: %w", err)
	}

	o.log.Info("episode persisted to graph", "episode_uuid", episode.UUID, "entities", len(resolvedEntities), "edges", len(edgeResolutions))
	return nil
}

func (o *Orchestrator) extractEntities(ctx context.Context, episode *types.Episode, previousEpisodes []*types.Episode) ([]*types.Entity, error) {
	messages := llmclient.BuildEntityExtractionPrompt(o.ontology, episode, previousEpisodes)
	resp, err := o.llm.ChatJSON(ctx, messages, entityExtractionResponse{})
	if err != nil {
		return nil, err
	}

	var parsed entityExtractionResponse
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return nil, kerr.BadLLMOutput("orchestrator.extractEntities", "could not parse entity extraction response", err)
	}

	out := make([]*types.Entity, 0, len(parsed.Entities))
	for _, e := range parsed.Entities {
		label := "unclassified"
		if name, ok := o.ontology.ByIndex(e.EntityTypeID); ok {
			label = name
		}
		out = append(out, &types.Entity{
			UUID:         uuid.NewString(),
			GroupID:      episode.GroupID,
			Name:         e.Name,
			Label:        label,
			Summary:      e.Summary,
			Attributes:   e.Attributes,
			CreatedAt:    time.Now().UTC(),
			UpdatedAt:    time.Now().UTC(),
			EpisodeUUIDs: []string{episode.UUID},
		})
	}
	return out, nil
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// refreshSummary asks the LLM to fold newContext into entity's existing
// summary (spec §4.3's shallow-merge summary refresh), used whenever a
// duplicate mention actually added a new attribute rather than just
// re-citing the entity.
func (o *Orchestrator) refreshSummary(ctx context.Context, entity *types.Entity, newContext string) error {
	messages := llmclient.BuildSummaryPrompt(entity, newContext)
	resp, err := o.llm.ChatJSON(ctx, messages, summaryResponse{})
	if err != nil {
		return err
	}

	var parsed summaryResponse
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return kerr.BadLLMOutput("orchestrator.refreshSummary", "could not parse summary response", err)
	}
	if parsed.Summary != "" {
		entity.Summary = parsed.Summary
	}
	return nil
}

func (o *Orchestrator) extractFacts(ctx context.Context, episode *types.Episode, entities []*types.Entity) ([]*types.RelationEdge, error) {
	if len(entities) < 2 {
		return nil, nil
	}

	messages := llmclient.BuildFactExtractionPrompt(episode, entities)
	resp, err := o.llm.ChatJSON(ctx, messages, factExtractionResponse{})
	if err != nil {
		return nil, err
	}

	var parsed factExtractionResponse
	if err := json.Unmarshal([]byte(resp.Content), &parsed); err != nil {
		return nil, kerr.BadLLMOutput("orchestrator.extractFacts", "could not parse fact extraction response", err)
	}

	out := make([]*types.RelationEdge, 0, len(parsed.Facts))
	for _, f := range parsed.Facts {
		if f.SourceUUID == f.TargetUUID || f.SourceUUID == "" || f.TargetUUID == "" {
			continue
		}
		edge := &types.RelationEdge{
			UUID:         uuid.NewString(),
			GroupID:      episode.GroupID,
			SourceUUID:   f.SourceUUID,
			TargetUUID:   f.TargetUUID,
			RelationType: f.RelationType,
			Fact:         f.Fact,
			Summary:      f.Summary,
			CreatedAt:    time.Now().UTC(),
			EpisodeUUIDs: []string{episode.UUID},
		}
		if t, err := time.Parse(time.RFC3339, f.ValidAt); err == nil {
			edge.ValidAt = &t
		}
		if t, err := time.Parse(time.RFC3339, f.InvalidAt); err == nil {
			edge.InvalidAt = &t
		}
		edge.Negates = f.Negates
		out = append(out, edge)
	}
	return out, nil
}

func (o *Orchestrator) embedEntities(ctx context.Context, entities []*types.Entity) error {
	if o.embed == nil || len(entities) == 0 {
		return nil
	}
	texts := make([]string, len(entities))
	for i, e := range entities {
		texts[i] = e.Name + ": " + e.Summary
	}
	embeddings, err := o.embed.Embed(ctx, texts)
	if err != nil {
		return err
	}
	for i, e := range entities {
		if i < len(embeddings) {
			e.Embedding = embeddings[i]
		}
	}
	return nil
}

func (o *Orchestrator) embedEdges(ctx context.Context, edges []*types.RelationEdge) error {
	if o.embed == nil || len(edges) == 0 {
		return nil
	}
	texts := make([]string, len(edges))
	for i, e := range edges {
		texts[i] = e.Fact
	}
	embeddings, err := o.embed.Embed(ctx, texts)
	if err != nil {
		return err
	}
	for i, e := range edges {
		if i < len(embeddings) {
			e.Embedding = embeddings[i]
		}
	}
	return nil
}

func (o *Orchestrator) persist(ctx context.Context, episode *types.Episode, entities []*types.Entity, edgeResolutions []resolver.EdgeResolution) error {
	for _, e := range entities {
		if err := o.store.UpsertEntity(ctx, e); err != nil {
			return err
		}
	}

	edgeUUIDs := make([]string, 0, len(edgeResolutions))
	for _, res := range edgeResolutions {
		if res.Outcome == resolver.OutcomeContradiction && res.Superseded != nil {
			if err := o.store.UpsertEdge(ctx, res.Superseded); err != nil {
				return err
			}
		}
		if err := o.store.UpsertEdge(ctx, res.Edge); err != nil {
			return err
		}
		edgeUUIDs = append(edgeUUIDs, res.Edge.UUID)
	}

	episode.EntityEdgeUUIDs = edgeUUIDs
	return o.store.UpsertEpisode(ctx, episode)
}
