package kortex

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kortexhq/kortex/pkg/citation"
	"github.com/kortexhq/kortex/pkg/embedder"
	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/kerr"
	"github.com/kortexhq/kortex/pkg/llmclient"
	"github.com/kortexhq/kortex/pkg/mutation"
	"github.com/kortexhq/kortex/pkg/ontology"
	"github.com/kortexhq/kortex/pkg/orchestrator"
	"github.com/kortexhq/kortex/pkg/queue"
	"github.com/kortexhq/kortex/pkg/resolver"
	"github.com/kortexhq/kortex/pkg/search"
	"github.com/kortexhq/kortex/pkg/types"
)

// Config configures a Client. GroupID is the default tenant used when a
// caller leaves an operation's group unspecified.
type Config struct {
	GroupID string

	// MaxInflightEpisodes bounds cross-group ingestion parallelism (spec
	// §4.5). Zero selects queue.DefaultMaxInflightEpisodes.
	MaxInflightEpisodes int
	// LLMSemaphore bounds concurrent LLM calls across all groups. Zero
	// selects queue.DefaultLLMSemaphore.
	LLMSemaphore int
	// EpisodeSpacing adds a minimum delay between episodes dispatched
	// within the same group.
	EpisodeSpacing time.Duration
	// Retry bounds the per-episode retry policy (spec §4.5): LLM/embedding
	// rate_limited errors back off from Retry.BaseDelay, graph-store
	// transient errors from Retry.GraphStoreBaseDelay, both capped at
	// Retry.CapDelay. The zero value selects queue.WithRetry's defaults.
	Retry queue.RetryConfig

	ResolverOptions resolver.Options
	Ontology        *ontology.Registry
	Log             *slog.Logger
}

// Client is the programmatic equivalent of the pkg/server HTTP edge: it
// wires a graph store, an LLM client, and an embedder into the full
// ingestion and query pipeline (spec §4) for in-process callers that
// don't want to run the HTTP server.
type Client struct {
	store     graphstore.Store
	queue     *queue.Queue
	engine    *search.Engine
	citations *citation.Service
	mutation  *mutation.Service
	orch      *orchestrator.Orchestrator

	groupID string
	log     *slog.Logger
}

// NewClient builds a Client from a graph store, an LLM client, and an
// embedder. config and log may both be nil, in which case GroupID
// defaults to "default" and logging goes to slog.Default().
func NewClient(store graphstore.Store, llm llmclient.Client, embed embedder.Client, config *Config, log *slog.Logger) (*Client, error) {
	if store == nil {
		return nil, kerr.Validation("NewClient", "store is required")
	}
	if config == nil {
		config = &Config{}
	}
	if log == nil {
		if config.Log != nil {
			log = config.Log
		} else {
			log = slog.Default()
		}
	}
	groupID := config.GroupID
	if groupID == "" {
		groupID = "default"
	}

	reg := config.Ontology
	if reg == nil {
		reg = ontology.NewRegistry()
	}
	res := resolver.New(store, embed, config.ResolverOptions)
	orch := orchestrator.New(orchestrator.Config{
		Store:    store,
		LLM:      llm,
		Embed:    embed,
		Resolver: res,
		Ontology: reg,
		Log:      log,
	})

	processor := queue.WithRetry(orch.Process, config.Retry)

	q := queue.New(queue.Config{
		MaxInflightEpisodes: config.MaxInflightEpisodes,
		LLMSemaphore:        config.LLMSemaphore,
		EpisodeSpacing:      config.EpisodeSpacing,
	}, store, processor, log)

	return &Client{
		store:     store,
		queue:     q,
		engine:    search.New(store, embed),
		citations: citation.New(store),
		mutation:  mutation.New(store, embed, log),
		orch:      orch,
		groupID:   groupID,
		log:       log,
	}, nil
}

func (c *Client) resolveGroupID(groupID string) string {
	if groupID != "" {
		return groupID
	}
	return c.groupID
}

// Ingest enqueues an episode for asynchronous extraction (spec §4.4/§4.5).
// A zero UUID is assigned one; a zero GroupID falls back to the Client's
// default group; a zero ReferenceTime/CreatedAt is stamped with now.
func (c *Client) Ingest(ctx context.Context, episode *types.Episode) error {
	if episode.UUID == "" {
		episode.UUID = uuid.NewString()
	}
	episode.GroupID = c.resolveGroupID(episode.GroupID)
	now := time.Now().UTC()
	if episode.ReferenceTime.IsZero() {
		episode.ReferenceTime = now
	}
	if episode.CreatedAt.IsZero() {
		episode.CreatedAt = now
	}
	if episode.SourceURL != "" {
		episode.SourceDescription = fmt.Sprintf("%s, source_url: %s", episode.SourceDescription, episode.SourceURL)
		episode.SourceURL = ""
	}
	return c.queue.Enqueue(ctx, episode)
}

// Search performs hybrid search across entities and edges (spec §4.6).
func (c *Client) Search(ctx context.Context, cfg *types.SearchConfig) (*types.SearchResults, error) {
	cfg.GroupID = c.resolveGroupID(cfg.GroupID)
	return c.engine.Search(ctx, cfg)
}

// SearchEpisodes performs lexical search over raw episode content (spec
// §4.6), bypassing RRF fusion and MMR diversification.
func (c *Client) SearchEpisodes(ctx context.Context, cfg *types.SearchConfig) ([]*types.Episode, error) {
	cfg.GroupID = c.resolveGroupID(cfg.GroupID)
	return c.engine.SearchEpisodes(ctx, cfg)
}

// CitationsForEdge returns the episodes that support edge (spec §4.7).
func (c *Client) CitationsForEdge(ctx context.Context, groupID string, edge *types.RelationEdge) ([]citation.EdgeCitation, error) {
	return c.citations.ForEdge(ctx, c.resolveGroupID(groupID), edge)
}

// CitationsForEntity returns the episodes that mention entity (spec §4.7).
func (c *Client) CitationsForEntity(ctx context.Context, groupID string, entity *types.Entity) ([]citation.NodeCitation, error) {
	return c.citations.ForEntity(ctx, c.resolveGroupID(groupID), entity)
}

// UpdateEdge soft-updates an edge (spec §4.8): the old edge is expired and
// a new edge carrying the correction is persisted. The call runs under
// the queue's per-group exclusion so it never races an in-flight
// extraction for the same group.
func (c *Client) UpdateEdge(ctx context.Context, in mutation.UpdateEdgeInput) (*types.RelationEdge, error) {
	in.GroupID = c.resolveGroupID(in.GroupID)
	var updated *types.RelationEdge
	err := c.queue.RunExclusive(ctx, in.GroupID, func(ctx context.Context) error {
		var execErr error
		updated, execErr = c.mutation.UpdateEdge(ctx, in)
		return execErr
	})
	return updated, err
}

// DeleteEpisode cascades the deletion of an episode and any edges it
// solely supports (spec §4.8), serialized the same way as UpdateEdge.
func (c *Client) DeleteEpisode(ctx context.Context, groupID, episodeUUID string) error {
	groupID = c.resolveGroupID(groupID)
	return c.queue.RunExclusive(ctx, groupID, func(ctx context.Context) error {
		return c.mutation.DeleteEpisode(ctx, groupID, episodeUUID)
	})
}

// GetEntity looks up a single entity by UUID.
func (c *Client) GetEntity(ctx context.Context, uuid, groupID string) (*types.Entity, error) {
	return c.store.GetEntity(ctx, uuid, c.resolveGroupID(groupID))
}

// GetEdge looks up a single relation edge by UUID.
func (c *Client) GetEdge(ctx context.Context, uuid, groupID string) (*types.RelationEdge, error) {
	return c.store.GetEdge(ctx, uuid, c.resolveGroupID(groupID))
}

// GetEpisode looks up a single episode by UUID.
func (c *Client) GetEpisode(ctx context.Context, uuid, groupID string) (*types.Episode, error) {
	return c.store.GetEpisode(ctx, uuid, c.resolveGroupID(groupID))
}

// Wait blocks until every group's pending episode queue has drained. It
// exists for tests and short-lived CLI invocations; long-running servers
// should not call it.
func (c *Client) Wait() {
	c.queue.Wait()
}

// Store returns the underlying graph store, for callers that need direct
// access beyond what Client exposes (e.g. Admin.GetStats).
func (c *Client) Store() graphstore.Store {
	return c.store
}

// Close releases the underlying graph store's resources.
func (c *Client) Close() error {
	return c.store.Close()
}
