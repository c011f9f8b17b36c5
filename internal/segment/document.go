// Package segment parses masked documents into addressable segments and
// rewrites segment status without touching segment content.
//
// A document is a flat sequence of <sh-segment> containers; containers
// never nest and ids are unique. All parsing runs on the x/net/html
// tokenizer with byte-offset tracking, so id resolution is exact
// attribute equality and can never anchor on a segment whose id is a
// prefix of another's.
package segment

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"segmenthub/internal/codec"
	"segmenthub/pkg/models"
)

var (
	ErrDuplicateSegment = errors.New("duplicate segment id")
	ErrNestedSegment    = errors.New("nested segment container")
	ErrMissingID        = errors.New("segment container without id")
	ErrUnclosedSegment  = errors.New("unclosed segment container")
)

// Span is one segment container: its status attributes and its byte
// bounds inside the document text.
type Span struct {
	ID          string
	Completed   bool
	Active      bool
	MissingTags bool
	Source      string
	Quality     int

	start, end           int // container bounds, including the tags
	innerStart, innerEnd int // content bounds
}

// Document is a parsed masked document. It is immutable; mutators
// return a new Document.
type Document struct {
	text  string
	spans []*Span
	byID  map[string]*Span
}

// Parse tokenizes a masked document and indexes its segments.
func Parse(text string) (*Document, error) {
	d := &Document{text: text, byID: make(map[string]*Span)}

	z := html.NewTokenizer(strings.NewReader(text))
	pos := 0
	var open *Span

	for {
		tt := z.Next()
		raw := z.Raw()

		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				return nil, fmt.Errorf("parse document at offset %d: %w", pos, z.Err())
			}
			if open != nil {
				return nil, fmt.Errorf("segment %q: %w", open.ID, ErrUnclosedSegment)
			}
			return d, nil

		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != codec.ElemSegment {
				break
			}
			if open != nil {
				return nil, fmt.Errorf("segment %q: %w", open.ID, ErrNestedSegment)
			}
			span, err := spanFromAttrs(z, hasAttr)
			if err != nil {
				return nil, err
			}
			if _, dup := d.byID[span.ID]; dup {
				return nil, fmt.Errorf("segment %q: %w", span.ID, ErrDuplicateSegment)
			}
			span.start = pos
			span.innerStart = pos + len(raw)
			open = span

		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) != codec.ElemSegment {
				break
			}
			if open == nil {
				return nil, fmt.Errorf("stray segment closer at offset %d", pos)
			}
			open.innerEnd = pos
			open.end = pos + len(raw)
			d.spans = append(d.spans, open)
			d.byID[open.ID] = open
			open = nil
		}
		pos += len(raw)
	}
}

func spanFromAttrs(z *html.Tokenizer, hasAttr bool) (*Span, error) {
	span := &Span{}
	seenID := false
	for hasAttr {
		k, v, more := z.TagAttr()
		switch string(k) {
		case codec.AttrID:
			span.ID = string(v)
			seenID = true
		case codec.AttrCompleted:
			span.Completed = true
		case codec.AttrActive:
			span.Active = true
		case codec.AttrMissingTags:
			span.MissingTags = true
		case codec.AttrSource:
			span.Source = string(v)
		case codec.AttrQuality:
			q, err := strconv.Atoi(string(v))
			if err != nil {
				return nil, fmt.Errorf("segment quality %q: %w", string(v), err)
			}
			span.Quality = q
		}
		hasAttr = more
	}
	if !seenID || span.ID == "" {
		return nil, ErrMissingID
	}
	return span, nil
}

// Text returns the document source.
func (d *Document) Text() string { return d.text }

// Len returns the number of segments.
func (d *Document) Len() int { return len(d.spans) }

// Spans returns the segments in document order.
func (d *Document) Spans() []*Span { return d.spans }

// Span returns the span for id, or nil when the document has no such
// segment.
func (d *Document) Span(id string) *Span { return d.byID[id] }

// Inner returns the masked markup between a span's container tags.
func (d *Document) Inner(s *Span) string { return d.text[s.innerStart:s.innerEnd] }

// CompletedCount recounts completed segments by full scan; it is never
// maintained incrementally, so out-of-band edits cannot make it drift.
func (d *Document) CompletedCount() int {
	n := 0
	for _, s := range d.spans {
		if s.Completed {
			n++
		}
	}
	return n
}

// FindSegment resolves a segment by id. A nil result is the normal
// "no such segment" outcome, not a fault.
func (d *Document) FindSegment(id string) *models.Segment {
	s := d.byID[id]
	if s == nil {
		return nil
	}
	return d.segmentOf(s)
}

// FindAtOffset resolves a cursor byte offset to the enclosing segment.
// An offset anywhere inside the container, including inside a nested
// placeholder, resolves to that segment; an offset outside every
// segment returns nil, which is the deselect signal.
func (d *Document) FindAtOffset(off int) *models.Segment {
	for _, s := range d.spans {
		if off >= s.start && off < s.end {
			return d.segmentOf(s)
		}
	}
	return nil
}

func (d *Document) segmentOf(s *Span) *models.Segment {
	inner := d.Inner(s)
	return &models.Segment{
		ID:           s.ID,
		HTMLText:     inner,
		StrippedText: codec.Strip(inner),
	}
}

// Tags returns the placeholder multiset material for a span, in
// document order.
func (d *Document) Tags(s *Span) []models.MaskedTag {
	refs := codec.Placeholders(d.Inner(s))
	out := make([]models.MaskedTag, 0, len(refs))
	for _, r := range refs {
		out = append(out, models.MaskedTag{Element: r.Element, Raw: r.Raw})
	}
	return out
}
