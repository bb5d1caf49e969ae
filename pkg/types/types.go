// Package types defines the bi-temporal graph data model: episodes, entity
// nodes, relation edges, and the mentions that connect them back to source
// text. All persistence-layer and search-layer packages build on these
// shapes rather than talking to the graph store's native row format.
package types

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEmptyUUID    = errors.New("types: uuid must not be empty")
	ErrEmptyGroupID = errors.New("types: group_id must not be empty")
	ErrEmptyName    = errors.New("types: name must not be empty")
	ErrInvalidLabel = errors.New("types: label is not a recognized ontology label")
	ErrEmptyContent = errors.New("types: episode content must not be empty")
)

// EpisodeType distinguishes the shape of the raw content an Episode carries.
type EpisodeType string

const (
	EpisodeTypeMessage    EpisodeType = "message"
	EpisodeTypeText       EpisodeType = "text"
	EpisodeTypeJSON       EpisodeType = "json"
	EpisodeTypeStructured EpisodeType = "structured"
)

// EpisodeStatus tracks the Episode Queue state machine (spec §4.5).
type EpisodeStatus string

const (
	StatusQueued     EpisodeStatus = "queued"
	StatusDispatched EpisodeStatus = "dispatched"
	StatusExtracting EpisodeStatus = "extracting"
	StatusResolving  EpisodeStatus = "resolving"
	StatusPersisting EpisodeStatus = "persisting"
	StatusDone       EpisodeStatus = "done"
	StatusRetrying   EpisodeStatus = "retrying"
	StatusFailed     EpisodeStatus = "failed"
	StatusCancelled  EpisodeStatus = "cancelled"
)

// Episode is a unit of raw ingested content. It is immutable once persisted
// except for its Status and retry bookkeeping.
type Episode struct {
	UUID              string        `json:"uuid"`
	GroupID           string        `json:"group_id"`
	Name              string        `json:"name,omitempty"`
	Content           string        `json:"content"`
	Type              EpisodeType   `json:"type"`
	SourceDescription string        `json:"source_description,omitempty"`
	SourceURL         string        `json:"source_url,omitempty"`
	ReferenceTime     time.Time     `json:"reference_time"`
	CreatedAt         time.Time     `json:"created_at"`
	Status            EpisodeStatus `json:"status"`
	Attempts          int           `json:"attempts"`
	LastError         string        `json:"last_error,omitempty"`
	PreviousUUIDs     []string      `json:"previous_episode_uuids,omitempty"`
	EntityEdgeUUIDs   []string      `json:"entity_edge_uuids,omitempty"`
}

// Validate checks invariants that must hold for an Episode at any point in
// its lifecycle.
func (e *Episode) Validate() error {
	if e.UUID == "" {
		return ErrEmptyUUID
	}
	if e.GroupID == "" {
		return ErrEmptyGroupID
	}
	if e.Content == "" {
		return ErrEmptyContent
	}
	return nil
}

// ValidateForCreate additionally requires the fields that must be supplied
// by the caller before an episode is ever queued.
func (e *Episode) ValidateForCreate() error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ReferenceTime.IsZero() {
		return fmt.Errorf("types: episode %s missing reference_time", e.UUID)
	}
	return nil
}

// Entity is a node in the graph: a typed, named thing with a bag of
// ontology-declared and free-form attributes.
type Entity struct {
	UUID         string         `json:"uuid"`
	GroupID      string         `json:"group_id"`
	Name         string         `json:"name"`
	Label        string         `json:"label"`
	Summary      string         `json:"summary,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	Embedding    []float32      `json:"embedding,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	EpisodeUUIDs []string       `json:"episode_uuids,omitempty"`
	// UpdatedEpisodeUUIDs is the subset of EpisodeUUIDs (excluding the
	// first) whose mention added a new attribute to this entity, as
	// opposed to merely re-citing it. The Citation Service uses it to
	// tag a mention "updated" rather than "referenced" (spec §4.7).
	UpdatedEpisodeUUIDs []string `json:"updated_episode_uuids,omitempty"`
}

// Validate checks invariants common to every stored Entity.
func (n *Entity) Validate() error {
	if n.UUID == "" {
		return ErrEmptyUUID
	}
	if n.GroupID == "" {
		return ErrEmptyGroupID
	}
	if n.Name == "" {
		return ErrEmptyName
	}
	return nil
}

// ValidateForCreate requires a label resolvable in the ontology registry in
// addition to the base Validate checks; callers should pair this with
// ontology.Validate.
func (n *Entity) ValidateForCreate() error {
	if err := n.Validate(); err != nil {
		return err
	}
	if n.Label == "" {
		return ErrInvalidLabel
	}
	return nil
}

// RelationEdge is a directed, bi-temporal fact between two entities. Edges
// are never overwritten in place (spec §4.8's soft-update rule): an update
// expires the old edge and creates a new one sharing the same relation
// identity but a fresh UUID.
type RelationEdge struct {
	UUID         string         `json:"uuid"`
	GroupID      string         `json:"group_id"`
	SourceUUID   string         `json:"source_uuid"`
	TargetUUID   string         `json:"target_uuid"`
	RelationType string         `json:"relation_type"`
	Fact         string         `json:"fact"`
	Summary      string         `json:"summary,omitempty"`
	Attributes   map[string]any `json:"attributes,omitempty"`
	Embedding    []float32      `json:"fact_embedding,omitempty"`
	EpisodeUUIDs []string       `json:"episode_uuids"`
	CreatedAt    time.Time      `json:"created_at"`
	ValidAt      *time.Time     `json:"valid_at,omitempty"`
	InvalidAt    *time.Time     `json:"invalid_at,omitempty"`
	ExpiredAt    *time.Time     `json:"expired_at,omitempty"`
	OriginalFact string         `json:"original_fact,omitempty"`
	UpdateReason string         `json:"update_reason,omitempty"`

	// Negates flags a fact-extraction candidate explicitly tagged by the
	// LLM as negating an existing edge (spec §4.3 rule 4). It is a
	// resolution-time signal, not a persisted field.
	Negates bool `json:"-"`
}

// IsExpired reports whether the edge has been superseded by a soft update.
func (e *RelationEdge) IsExpired() bool {
	return e.ExpiredAt != nil
}

// Validate checks invariants common to every stored RelationEdge.
func (e *RelationEdge) Validate() error {
	if e.UUID == "" {
		return ErrEmptyUUID
	}
	if e.GroupID == "" {
		return ErrEmptyGroupID
	}
	if e.SourceUUID == "" || e.TargetUUID == "" {
		return fmt.Errorf("types: edge %s missing source or target uuid", e.UUID)
	}
	if e.SourceUUID == e.TargetUUID {
		return fmt.Errorf("types: edge %s cannot self-reference", e.UUID)
	}
	if e.Fact == "" {
		return fmt.Errorf("types: edge %s missing fact text", e.UUID)
	}
	if len(e.EpisodeUUIDs) == 0 {
		return fmt.Errorf("types: edge %s missing episode provenance", e.UUID)
	}
	return nil
}

// MentionOperation classifies why an episode is cited against an entity
// (spec §4.7's node citation tagging).
type MentionOperation string

const (
	MentionCreated    MentionOperation = "created"
	MentionUpdated    MentionOperation = "updated"
	MentionReferenced MentionOperation = "referenced"
)

// Mention records that an Entity was referenced inside a specific Episode,
// the bridge the Citation Service walks to produce citation chains.
type Mention struct {
	EntityUUID  string           `json:"entity_uuid"`
	EpisodeUUID string           `json:"episode_uuid"`
	GroupID     string           `json:"group_id"`
	Operation   MentionOperation `json:"operation"`
	CreatedAt   time.Time        `json:"created_at"`
}

// SearchConfig controls a hybrid search call (spec §4.6).
type SearchConfig struct {
	GroupID        string    `json:"group_id"`
	Query          string    `json:"query"`
	Limit          int       `json:"limit"`
	RankConstant   int       `json:"rank_constant"`
	UseVector      bool      `json:"use_vector"`
	UseLexical     bool      `json:"use_lexical"`
	UseGraph       bool      `json:"use_graph"`
	MMRLambda      float64   `json:"mmr_lambda"`
	CenterNodeUUID string    `json:"center_node_uuid,omitempty"`
	IncludeExpired bool      `json:"include_expired"`
	Now            time.Time `json:"-"`
}

// DefaultRankConstant is the RRF κ convention (spec §4.6).
const DefaultRankConstant = 60

// WithDefaults fills in zero-value fields with the spec's documented
// defaults and returns the same config for chaining.
func (c *SearchConfig) WithDefaults() *SearchConfig {
	if c.Limit <= 0 {
		c.Limit = 10
	}
	if c.RankConstant <= 0 {
		c.RankConstant = DefaultRankConstant
	}
	if c.MMRLambda <= 0 {
		c.MMRLambda = 0.5
	}
	if !c.UseVector && !c.UseLexical && !c.UseGraph {
		c.UseVector = true
		c.UseLexical = true
	}
	if c.Now.IsZero() {
		c.Now = time.Now().UTC()
	}
	return c
}

// SearchResults is the result envelope returned by the Search Engine.
type SearchResults struct {
	Edges    []*RelationEdge `json:"edges"`
	Entities []*Entity       `json:"entities"`
}

// ExtractedEntity is the intermediate shape the LLM Client's entity
// extraction prompt family returns, before resolution.
type ExtractedEntity struct {
	Name       string `json:"entity"`
	LabelIndex int    `json:"entity_type_id"`
}

// ExtractedRelationship is the intermediate shape the LLM Client's fact
// extraction prompt family returns, before resolution.
type ExtractedRelationship struct {
	SourceIndex  int        `json:"source_id"`
	TargetIndex  int        `json:"target_id"`
	RelationType string     `json:"relation_type"`
	Fact         string     `json:"fact"`
	Summary      string     `json:"summary,omitempty"`
	ValidAt      *time.Time `json:"valid_at,omitempty"`
	InvalidAt    *time.Time `json:"invalid_at,omitempty"`
}
