// Package events pushes review activity to connected editor clients:
// WebSocket rooms keyed by pair id for the paired-editor UI, plus a
// line-delimited JSON TCP firehose of every pair's events for tooling.
package events

import (
	"time"

	"segmenthub/pkg/models"
)

const (
	TypePairRegistered     = "pair.registered"
	TypeSegmentActivated   = "segment.activated"
	TypeSegmentDeactivated = "segment.deactivated"
	TypeValidationReport   = "validation.report"
	TypeSuggestionApplied  = "suggestion.applied"
	TypeSegmentCompleted   = "segment.completed"
	TypeLookupResults      = "lookup.results"
	TypeLookupFailed       = "lookup.failed"
)

type Event struct {
	Type      string                   `json:"type"`
	PairID    string                   `json:"pair_id"`
	SegmentID string                   `json:"segment_id,omitempty"`
	Side      string                   `json:"side,omitempty"`
	State     *models.PairState        `json:"state,omitempty"`
	Report    *models.ValidationReport `json:"report,omitempty"`
	Results   []models.Suggestion      `json:"results,omitempty"`
	Quality   int                      `json:"quality,omitempty"`
	Error     string                   `json:"error,omitempty"`
	At        time.Time                `json:"at"`
}
