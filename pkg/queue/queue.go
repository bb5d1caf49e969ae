// Package queue implements the Episode Queue (spec §4.5): per-group-id
// FIFO ordering with bounded cross-group parallelism, a global LLM-call
// semaphore shared across every group, inter-episode spacing, and the
// explicit episode state machine (queued -> dispatched -> extracting ->
// resolving -> persisting -> done, with retrying as an intermediate state
// and failed/cancelled terminals).
package queue

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kortexhq/kortex/pkg/graphstore"
	"github.com/kortexhq/kortex/pkg/types"
)

// Processor runs one episode through extraction/resolution/persistence.
// It is responsible for advancing the episode's status as it progresses
// and is called with the global LLM semaphore already held for its
// duration — it must release nothing itself.
type Processor func(ctx context.Context, episode *types.Episode) error

// Config controls the queue's concurrency bounds (spec §6's queue.* and
// llm.semaphore keys).
type Config struct {
	MaxInflightEpisodes int           // N: cross-group parallelism bound
	LLMSemaphore        int           // S: global concurrent LLM calls
	EpisodeSpacing      time.Duration // minimum gap between dispatches within one group
}

func (c Config) withDefaults() Config {
	if c.MaxInflightEpisodes <= 0 {
		c.MaxInflightEpisodes = 10
	}
	if c.LLMSemaphore <= 0 {
		c.LLMSemaphore = 4
	}
	return c
}

// Queue dispatches episodes to a Processor, enforcing spec §4.5's
// concurrency model.
type Queue struct {
	config    Config
	store     graphstore.EpisodeStore
	processor Processor
	log       *slog.Logger

	inflight  chan struct{} // bounds N concurrent groups
	llmSem    chan struct{} // bounds S concurrent LLM-bearing calls
	mu        sync.Mutex
	groups    map[string]*groupQueue
	wg        sync.WaitGroup
}

type groupQueue struct {
	mu      sync.Mutex
	pending *list.List
	running bool
	lastRun time.Time
	// execMu is held for the duration of a single episode's processing or
	// a single RunExclusive call, so the Mutation Service's edge-update
	// and episode-delete operations never interleave with an in-flight
	// extraction for the same group (spec §4.8's serialization rule).
	execMu sync.Mutex
}

// New constructs a Queue. The Processor is invoked once per episode,
// serialized within a group and bounded across groups/LLM calls.
func New(cfg Config, store graphstore.EpisodeStore, processor Processor, log *slog.Logger) *Queue {
	cfg = cfg.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Queue{
		config:    cfg,
		store:     store,
		processor: processor,
		log:       log,
		inflight:  make(chan struct{}, cfg.MaxInflightEpisodes),
		llmSem:    make(chan struct{}, cfg.LLMSemaphore),
		groups:    make(map[string]*groupQueue),
	}
}

// Enqueue adds an episode to its group's FIFO, creating the group's
// drain goroutine on first use. It returns immediately; the episode's
// status transitions to types.StatusQueued before this call returns.
func (q *Queue) Enqueue(ctx context.Context, episode *types.Episode) error {
	episode.Status = types.StatusQueued
	if err := q.store.UpsertEpisode(ctx, episode); err != nil {
		return err
	}

	q.mu.Lock()
	gq, ok := q.groups[episode.GroupID]
	if !ok {
		gq = &groupQueue{pending: list.New()}
		q.groups[episode.GroupID] = gq
	}
	gq.mu.Lock()
	gq.pending.PushBack(episode)
	shouldStart := !gq.running
	if shouldStart {
		gq.running = true
	}
	gq.mu.Unlock()
	q.mu.Unlock()

	if shouldStart {
		q.wg.Add(1)
		go q.drainGroup(ctx, episode.GroupID, gq)
	}
	return nil
}

// RunExclusive runs fn with exclusive access to groupID's execution slot,
// so it never overlaps with that group's episode processing. It does not
// consume the inflight or LLM-semaphore slots: callers are expected to be
// cheap, non-LLM operations (the Mutation Service's edge update and
// episode delete, per spec §4.8) rather than another Processor.
func (q *Queue) RunExclusive(ctx context.Context, groupID string, fn func(ctx context.Context) error) error {
	q.mu.Lock()
	gq, ok := q.groups[groupID]
	if !ok {
		gq = &groupQueue{pending: list.New()}
		q.groups[groupID] = gq
	}
	q.mu.Unlock()

	gq.execMu.Lock()
	defer gq.execMu.Unlock()
	return fn(ctx)
}

// Wait blocks until every enqueued episode across every group has
// finished (successfully or not). Intended for tests and graceful
// shutdown, not steady-state operation.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) drainGroup(ctx context.Context, groupID string, gq *groupQueue) {
	defer q.wg.Done()

	for {
		gq.mu.Lock()
		front := gq.pending.Front()
		if front == nil {
			gq.running = false
			gq.mu.Unlock()
			return
		}
		gq.pending.Remove(front)
		gq.mu.Unlock()

		episode := front.Value.(*types.Episode)

		if q.config.EpisodeSpacing > 0 {
			if elapsed := time.Since(gq.lastRun); elapsed < q.config.EpisodeSpacing {
				select {
				case <-time.After(q.config.EpisodeSpacing - elapsed):
				case <-ctx.Done():
					q.markCancelled(ctx, episode)
					continue
				}
			}
		}

		select {
		case q.inflight <- struct{}{}:
		case <-ctx.Done():
			q.markCancelled(ctx, episode)
			continue
		}

		gq.execMu.Lock()
		q.runOne(ctx, groupID, episode)
		gq.execMu.Unlock()
		gq.lastRun = time.Now()
		<-q.inflight
	}
}

func (q *Queue) runOne(ctx context.Context, groupID string, episode *types.Episode) {
	episode.Status = types.StatusDispatched
	episode.Attempts++
	_ = q.store.UpsertEpisode(ctx, episode)

	select {
	case q.llmSem <- struct{}{}:
		defer func() { <-q.llmSem }()
	case <-ctx.Done():
		q.markCancelled(ctx, episode)
		return
	}

	if err := q.processor(ctx, episode); err != nil {
		episode.LastError = err.Error()
		episode.Status = types.StatusFailed
		q.log.Error("episode processing failed", "episode_uuid", episode.UUID, "group_id", groupID, "err", err)
		_ = q.store.UpsertEpisode(ctx, episode)
		return
	}

	episode.Status = types.StatusDone
	_ = q.store.UpsertEpisode(ctx, episode)
	q.log.Info("episode persisted", "episode_uuid", episode.UUID, "group_id", groupID)
}

func (q *Queue) markCancelled(ctx context.Context, episode *types.Episode) {
	episode.Status = types.StatusCancelled
	_ = q.store.UpsertEpisode(ctx, episode)
}
