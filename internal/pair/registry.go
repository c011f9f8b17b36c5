// Package pair owns all mutable per-pair session state: the source and
// target documents of each editor pair, the active segment, and the
// snapshot used to detect stale suggestion application.
//
// The registry is an explicit session-scoped instance handed to the
// HTTP layer, never a package-level singleton; tests build a fresh one
// per case. State is fully partitioned by pair id and serialized behind
// one mutex.
package pair

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"segmenthub/internal/segment"
	"segmenthub/internal/validate"
	"segmenthub/pkg/models"
)

var (
	ErrPairNotFound    = errors.New("pair not found")
	ErrSegmentNotFound = errors.New("segment not found")
	ErrNoActiveSegment = errors.New("no active segment")
	ErrStaleSegment    = errors.New("stale segment")
)

type editorPair struct {
	id         string
	langSource string
	langTarget string

	source *segment.Document
	target *segment.Document

	activeSegmentID string
	activeSide      string
	// snapshot is the active target segment's masked markup taken at
	// selection time; apply fails when the live content moved past it.
	snapshot string
	// suppressValidation skips the next automatic validation pass
	// after a suggestion was applied; the replacement is authoritative,
	// not a user edit to re-check.
	suppressValidation bool
}

type Registry struct {
	mu    sync.Mutex
	pairs map[string]*editorPair
}

func NewRegistry() *Registry {
	return &Registry{pairs: make(map[string]*editorPair)}
}

// Register creates or replaces the pair. When the target document is
// empty it is seeded from the source with session statuses cleared;
// re-registration replaces state, it never merges. The returned flag
// reports whether seeding happened.
func (r *Registry) Register(id, sourceHTML, targetHTML, langSource, langTarget string) (models.PairState, bool, error) {
	source, err := segment.Parse(sourceHTML)
	if err != nil {
		return models.PairState{}, false, fmt.Errorf("parse source document: %w", err)
	}

	seeded := false
	if strings.TrimSpace(targetHTML) == "" {
		cleared, err := source.ClearActive()
		if err != nil {
			return models.PairState{}, false, fmt.Errorf("seed target document: %w", err)
		}
		targetHTML = cleared.Text()
		seeded = true
	}
	target, err := segment.Parse(targetHTML)
	if err != nil {
		return models.PairState{}, false, fmt.Errorf("parse target document: %w", err)
	}

	p := &editorPair{
		id:         id,
		langSource: langSource,
		langTarget: langTarget,
		source:     source,
		target:     target,
	}

	r.mu.Lock()
	r.pairs[id] = p
	state := p.state()
	r.mu.Unlock()
	return state, seeded, nil
}

// SelectResult is the outcome of one selection interaction.
type SelectResult struct {
	Pair models.PairState `json:"pair"`
	// Source and Target are the same-id segments of the two documents;
	// Source can be nil when the id only exists in the target.
	Source *models.Segment `json:"source,omitempty"`
	Target *models.Segment `json:"target,omitempty"`
	// SameSegment marks a no-op click: same segment, same underlying
	// masked markup as the previous selection. Callers use it to skip
	// redundant memory lookups.
	SameSegment bool `json:"same_segment"`
}

// SetActive runs the selection sequence for an explicit segment id:
// reset the previous active segment (dropping its has-missing-tags
// marker), then mark the new one on both documents. At most one segment
// is active across the pair afterwards.
func (r *Registry) SetActive(pairID, segmentID, side string) (SelectResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pairs[pairID]
	if !ok {
		return SelectResult{}, ErrPairNotFound
	}
	if p.target.Span(segmentID) == nil {
		return SelectResult{}, fmt.Errorf("segment %q: %w", segmentID, ErrSegmentNotFound)
	}
	return r.activateLocked(p, segmentID, side)
}

// SetActiveAtOffset resolves a cursor offset on one side to its
// enclosing segment and activates it. An offset outside every segment
// is the normal deselect signal: the active segment is cleared and the
// result carries no segment.
func (r *Registry) SetActiveAtOffset(pairID, side string, offset int) (SelectResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pairs[pairID]
	if !ok {
		return SelectResult{}, ErrPairNotFound
	}

	doc := p.target
	if side == models.SideSource {
		doc = p.source
	}
	seg := doc.FindAtOffset(offset)
	if seg == nil {
		if err := p.clearActive(); err != nil {
			return SelectResult{}, err
		}
		return SelectResult{Pair: p.state()}, nil
	}
	if p.target.Span(seg.ID) == nil {
		// Selectable on the source side only; nothing to review against.
		return SelectResult{}, fmt.Errorf("segment %q: %w", seg.ID, ErrSegmentNotFound)
	}
	return r.activateLocked(p, seg.ID, side)
}

func (r *Registry) activateLocked(p *editorPair, segmentID, side string) (SelectResult, error) {
	prevID, prevSnapshot := p.activeSegmentID, p.snapshot

	if err := p.clearActive(); err != nil {
		return SelectResult{}, err
	}

	target, err := p.target.SetActive(segmentID)
	if err != nil {
		return SelectResult{}, err
	}
	p.target = target

	if p.source.Span(segmentID) != nil {
		source, err := p.source.SetActive(segmentID)
		if err != nil {
			return SelectResult{}, err
		}
		p.source = source
	}

	targetSeg := p.target.FindSegment(segmentID)
	p.activeSegmentID = segmentID
	p.activeSide = side
	p.snapshot = targetSeg.HTMLText

	return SelectResult{
		Pair:        p.state(),
		Source:      p.source.FindSegment(segmentID),
		Target:      targetSeg,
		SameSegment: segmentID == prevID && targetSeg.HTMLText == prevSnapshot,
	}, nil
}

// ClearActive deselects whatever segment is active.
func (r *Registry) ClearActive(pairID string) (models.PairState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pairs[pairID]
	if !ok {
		return models.PairState{}, ErrPairNotFound
	}
	if err := p.clearActive(); err != nil {
		return models.PairState{}, err
	}
	return p.state(), nil
}

func (p *editorPair) clearActive() error {
	source, err := p.source.ClearActive()
	if err != nil {
		return err
	}
	target, err := p.target.ClearActive()
	if err != nil {
		return err
	}
	p.source, p.target = source, target
	p.activeSegmentID = ""
	p.activeSide = ""
	p.snapshot = ""
	return nil
}

// Get returns the pair's state. Counters are recomputed from the
// target document on every call.
func (r *Registry) Get(pairID string) (models.PairState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pairs[pairID]
	if !ok {
		return models.PairState{}, ErrPairNotFound
	}
	return p.state(), nil
}

// Segment returns one segment of one side, or nil for a miss.
func (r *Registry) Segment(pairID, side, segmentID string) (*models.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pairs[pairID]
	if !ok {
		return nil, ErrPairNotFound
	}
	if side == models.SideSource {
		return p.source.FindSegment(segmentID), nil
	}
	return p.target.FindSegment(segmentID), nil
}

// Documents returns the current masked text of both documents.
func (r *Registry) Documents(pairID string) (source, target string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pairs[pairID]
	if !ok {
		return "", "", ErrPairNotFound
	}
	return p.source.Text(), p.target.Text(), nil
}

// UpdateDocument replaces one side's document after an editor change.
// The active selection survives when its segment still exists in the
// new text and is dropped otherwise.
func (r *Registry) UpdateDocument(pairID, side, htmlText string) (models.PairState, error) {
	doc, err := segment.Parse(htmlText)
	if err != nil {
		return models.PairState{}, fmt.Errorf("parse %s document: %w", side, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pairs[pairID]
	if !ok {
		return models.PairState{}, ErrPairNotFound
	}
	if side == models.SideSource {
		p.source = doc
	} else {
		p.target = doc
	}
	if p.activeSegmentID != "" && p.target.Span(p.activeSegmentID) == nil {
		if err := p.clearActive(); err != nil {
			return models.PairState{}, err
		}
	}
	return p.state(), nil
}

// SetCompleted toggles a target segment's completed status.
func (r *Registry) SetCompleted(pairID, segmentID string, on bool) (models.PairState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pairs[pairID]
	if !ok {
		return models.PairState{}, ErrPairNotFound
	}
	target, err := p.target.SetCompleted(segmentID, on)
	if err != nil {
		return models.PairState{}, fmt.Errorf("%w: %v", ErrSegmentNotFound, err)
	}
	p.target = target
	return p.state(), nil
}

func (p *editorPair) state() models.PairState {
	return models.PairState{
		ID:              p.id,
		LangSource:      p.langSource,
		LangTarget:      p.langTarget,
		ActiveSegmentID: p.activeSegmentID,
		ActiveSide:      p.activeSide,
		CompletedCount:  p.target.CompletedCount(),
		TotalCount:      p.target.Len(),
	}
}

// Validate runs the tag validator against the pair and syncs the
// has-missing-tags marker on the active segment. An automatic pass
// right after an applied suggestion is skipped once (skipped result);
// forced passes always run.
func (r *Registry) Validate(pairID string, force bool) (models.ValidationReport, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pairs[pairID]
	if !ok {
		return models.ValidationReport{}, false, ErrPairNotFound
	}
	if p.suppressValidation && !force {
		p.suppressValidation = false
		return models.ValidationReport{}, true, nil
	}
	p.suppressValidation = false

	report := validate.Validate(p.source, p.target, p.activeSegmentID)

	if p.activeSegmentID != "" && report.CountMismatch == nil {
		mismatch := report.ActiveDetail != nil
		if err := p.markMissing(p.activeSegmentID, mismatch); err != nil {
			return models.ValidationReport{}, false, err
		}
	}
	return report, false, nil
}

func (p *editorPair) markMissing(segmentID string, on bool) error {
	target, err := p.target.SetMissingTags(segmentID, on)
	if err != nil {
		return err
	}
	p.target = target
	if p.source.Span(segmentID) != nil {
		source, err := p.source.SetMissingTags(segmentID, on)
		if err != nil {
			return err
		}
		p.source = source
	}
	// Keep the stale check honest: the marker mutates the container
	// tag, not the content, so the snapshot is unaffected.
	return nil
}

// ActiveLookupKey returns the active segment id and the source-side
// text the memory lookup should be keyed on.
func (r *Registry) ActiveLookupKey(pairID string) (segmentID string, source *models.Segment, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pairs[pairID]
	if !ok {
		return "", nil, ErrPairNotFound
	}
	if p.activeSegmentID == "" {
		return "", nil, ErrNoActiveSegment
	}
	return p.activeSegmentID, p.source.FindSegment(p.activeSegmentID), nil
}

// ActiveSegmentID returns the currently active segment id, or "".
// In-flight lookups compare against it before their response is shown:
// a mismatch means the lookup was superseded and its response is
// discarded.
func (r *Registry) ActiveSegmentID(pairID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.pairs[pairID]; ok {
		return p.activeSegmentID
	}
	return ""
}

// ApplySuggestion replaces the active target segment's content with the
// suggestion, atomically against the snapshot taken at selection time.
// When the live content moved since then it fails with ErrStaleSegment
// and the document is left untouched. On success the segment carries
// source/quality provenance and the next automatic validation pass is
// suppressed.
func (r *Registry) ApplySuggestion(pairID string, sug models.Suggestion) (*models.Segment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pairs[pairID]
	if !ok {
		return nil, ErrPairNotFound
	}
	if p.activeSegmentID == "" {
		return nil, ErrNoActiveSegment
	}

	current := p.target.FindSegment(p.activeSegmentID)
	if current == nil || current.HTMLText != p.snapshot {
		return nil, ErrStaleSegment
	}

	target, err := p.target.ReplaceInner(p.activeSegmentID, sug.MaskedHTML, "memory", sug.Quality)
	if err != nil {
		return nil, err
	}
	p.target = target
	p.snapshot = sug.MaskedHTML
	p.suppressValidation = true

	return p.target.FindSegment(p.activeSegmentID), nil
}
