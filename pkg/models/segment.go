package models

// Segment is one translation unit extracted from a masked document.
//
// HTMLText is the segment's inner markup with every inline tag replaced
// by a placeholder; StrippedText is the same markup with all placeholder
// and structural markup removed. Entity references are kept byte-for-byte
// in both forms.
type Segment struct {
	ID           string `json:"id"`
	HTMLText     string `json:"html_text"`
	StrippedText string `json:"stripped_text"`
}

// MaskedTag is one placeholder standing in for a raw inline HTML tag.
//
// Element is the original tag name; a closing tag that has no paired
// opening tag inside the same segment keeps a leading "/" (it is
// preserved, never repaired). Raw is the exact source text of the
// original tag, attributes included.
type MaskedTag struct {
	Element string `json:"element"`
	Raw     string `json:"raw"`
}
