package models

// Editor sides of a pair.
const (
	SideSource = "source"
	SideTarget = "target"
)

// PairState is the externally visible state of one editor pair.
// CompletedCount and TotalCount are recomputed from the target document
// on demand, never incrementally maintained.
type PairState struct {
	ID              string `json:"id"`
	LangSource      string `json:"lang_source"`
	LangTarget      string `json:"lang_target"`
	ActiveSegmentID string `json:"active_segment_id,omitempty"`
	ActiveSide      string `json:"active_side,omitempty"`
	CompletedCount  int    `json:"completed_count"`
	TotalCount      int    `json:"total_count"`
}
