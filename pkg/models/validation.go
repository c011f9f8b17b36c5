package models

// SegmentCounts reports a source/target segment count mismatch. When the
// counts differ, per-segment comparison by positional index is
// meaningless, so a report carrying this finding carries nothing else.
type SegmentCounts struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// SegmentDiff is the tag-level detail for one segment: placeholders
// present in the source segment but missing from the target, and the
// reverse. Only the currently active segment ever gets this detail.
type SegmentDiff struct {
	SegmentID string      `json:"segment_id"`
	Missing   []MaskedTag `json:"missing,omitempty"`
	Extra     []MaskedTag `json:"extra,omitempty"`
}

// ValidationReport is the outcome of comparing a pair's documents.
//
// Exactly one of these shapes holds: zero findings (Clean), a
// CountMismatch with no per-segment data, or a MissingTotal across
// inactive segments plus optional ActiveDetail for the active one.
type ValidationReport struct {
	CountMismatch *SegmentCounts `json:"count_mismatch,omitempty"`
	MissingTotal  int            `json:"missing_total"`
	ActiveDetail  *SegmentDiff   `json:"active_detail,omitempty"`
}

// Clean reports whether the validation found nothing at all.
func (r ValidationReport) Clean() bool {
	return r.CountMismatch == nil && r.MissingTotal == 0 && r.ActiveDetail == nil
}
