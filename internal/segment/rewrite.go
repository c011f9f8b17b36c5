package segment

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"segmenthub/internal/codec"
)

// SetActive marks id active and clears the active and has-missing-tags
// statuses everywhere else, so at most one segment is marked active in
// the document at any time.
func (d *Document) SetActive(id string) (*Document, error) {
	if d.byID[id] == nil {
		return nil, fmt.Errorf("set active: no segment %q", id)
	}
	return d.mutate(func(s *Span) {
		s.Active = s.ID == id
		if s.ID != id {
			s.MissingTags = false
		}
	})
}

// ClearActive removes the active and has-missing-tags statuses from
// every segment. Missing-tag markers are tied to being active, so they
// clear whenever the segment stops being active, fixed or not.
func (d *Document) ClearActive() (*Document, error) {
	return d.mutate(func(s *Span) {
		s.Active = false
		s.MissingTags = false
	})
}

// SetMissingTags toggles the has-missing-tags status on one segment.
func (d *Document) SetMissingTags(id string, on bool) (*Document, error) {
	if d.byID[id] == nil {
		return nil, fmt.Errorf("set missing tags: no segment %q", id)
	}
	return d.mutate(func(s *Span) {
		if s.ID == id {
			s.MissingTags = on
		}
	})
}

// SetCompleted toggles the completed status on one segment.
func (d *Document) SetCompleted(id string, on bool) (*Document, error) {
	if d.byID[id] == nil {
		return nil, fmt.Errorf("set completed: no segment %q", id)
	}
	return d.mutate(func(s *Span) {
		if s.ID == id {
			s.Completed = on
		}
	})
}

// ReplaceInner swaps one segment's masked content and records its
// provenance: the source of the replacement text and the quality score
// reported by the memory store.
func (d *Document) ReplaceInner(id, inner, source string, quality int) (*Document, error) {
	if d.byID[id] == nil {
		return nil, fmt.Errorf("replace segment: no segment %q", id)
	}
	return d.rebuild(func(s *Span) {
		if s.ID == id {
			s.Source = source
			s.Quality = quality
		}
	}, map[string]string{id: inner})
}

func (d *Document) mutate(change func(*Span)) (*Document, error) {
	return d.rebuild(change, nil)
}

// rebuild reassembles the document text from its spans, applying a
// status change to each span copy and optional content overrides, then
// re-parses so offsets stay correct.
func (d *Document) rebuild(change func(*Span), inner map[string]string) (*Document, error) {
	var b strings.Builder
	pos := 0
	for _, s := range d.spans {
		copied := *s
		if change != nil {
			change(&copied)
		}

		b.WriteString(d.text[pos:s.start])
		b.WriteString(copied.startTag())
		if ov, ok := inner[s.ID]; ok {
			b.WriteString(ov)
		} else {
			b.WriteString(d.Inner(s))
		}
		b.WriteString("</" + codec.ElemSegment + ">")
		pos = s.end
	}
	b.WriteString(d.text[pos:])
	return Parse(b.String())
}

// startTag renders the container opener with attributes in canonical
// order. Container attributes are owned by this dialect; anything else
// on the opener is not preserved.
func (s *Span) startTag() string {
	var b strings.Builder
	b.WriteString("<" + codec.ElemSegment)
	fmt.Fprintf(&b, ` %s="%s"`, codec.AttrID, html.EscapeString(s.ID))
	if s.Completed {
		b.WriteString(" " + codec.AttrCompleted)
	}
	if s.Active {
		b.WriteString(" " + codec.AttrActive)
	}
	if s.MissingTags {
		b.WriteString(" " + codec.AttrMissingTags)
	}
	if s.Source != "" {
		fmt.Fprintf(&b, ` %s="%s"`, codec.AttrSource, html.EscapeString(s.Source))
		fmt.Fprintf(&b, ` %s="%d"`, codec.AttrQuality, s.Quality)
	}
	b.WriteString(">")
	return b.String()
}
