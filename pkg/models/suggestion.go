package models

// Suggestion is a memory-sourced candidate translation for one segment.
// SourceUnitRef and TargetUnitRef are opaque provenance identifiers from
// the memory store; Quality is on the store's own scale.
//
// Suggestions are ephemeral: they live for the duration of one lookup
// response and are discarded once applied or once the active segment
// changes.
type Suggestion struct {
	MaskedHTML    string `json:"masked_html"`
	StrippedText  string `json:"stripped_text"`
	Quality       int    `json:"quality"`
	SourceUnitRef string `json:"source_unit_ref"`
	TargetUnitRef string `json:"target_unit_ref"`
}
