package models

import "time"

// MemoryUnit is one stored translation pair in the memory service.
// Source fields hold the original-language segment, Target fields the
// translated one; both keep the masked and the stripped form so a lookup
// response can return either without re-deriving.
type MemoryUnit struct {
	ID             string    `json:"id"`
	LangSource     string    `json:"lang_source"`
	LangTarget     string    `json:"lang_target"`
	SourceStripped string    `json:"source_stripped"`
	SourceHTML     string    `json:"source_html"`
	TargetStripped string    `json:"target_stripped"`
	TargetHTML     string    `json:"target_html"`
	Quality        int       `json:"quality"`
	CreatedAt      time.Time `json:"created_at"`
}
