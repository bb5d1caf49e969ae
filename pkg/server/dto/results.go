package dto

import (
	"time"

	"github.com/kortexhq/kortex/pkg/citation"
)

// NodeResult is one "nodes"-kind search result (spec §6's results[]).
type NodeResult struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Label      string                 `json:"label"`
	Summary    string                 `json:"summary,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	Citations  []citation.NodeCitation `json:"citations"`
}

// EdgeResult is one "edges"-kind search result.
type EdgeResult struct {
	ID             string                 `json:"id"`
	SourceEntityID string                 `json:"source_entity_id"`
	TargetEntityID string                 `json:"target_entity_id"`
	RelationName   string                 `json:"relation_name"`
	Fact           string                 `json:"fact"`
	CreatedAt      time.Time              `json:"created_at"`
	ValidAt        *time.Time             `json:"valid_at,omitempty"`
	InvalidAt      *time.Time             `json:"invalid_at,omitempty"`
	ExpiredAt      *time.Time             `json:"expired_at,omitempty"`
	OriginalFact   string                 `json:"original_fact,omitempty"`
	UpdateReason   string                 `json:"update_reason,omitempty"`
	Citations      []citation.EdgeCitation `json:"citations"`
}

// EpisodeResult is one "episodes"-kind search result.
type EpisodeResult struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	GroupID           string    `json:"group_id"`
	BodyKind          string    `json:"body_kind"`
	SourceDescription string    `json:"source_description,omitempty"`
	ReferenceTime     time.Time `json:"reference_time"`
	IngestedAt        time.Time `json:"ingested_at"`
}
