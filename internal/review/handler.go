// Package review is the thin HTTP adapter over the decision layer: it
// translates editor interactions into registry, validator, memory and
// applier calls and pushes the outcomes to the event hub. No business
// rules live here.
package review

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"segmenthub/internal/audit"
	"segmenthub/internal/auth"
	"segmenthub/internal/events"
	"segmenthub/internal/memory"
	"segmenthub/internal/pair"
	"segmenthub/internal/segment"
	"segmenthub/pkg/models"
)

type Handler struct {
	Registry      *pair.Registry
	Memory        *memory.Client
	Applier       *memory.Applier
	Audit         *audit.Repo
	Hub           *events.Hub
	Debounce      *Debouncer
	LookupTimeout time.Duration
}

func NewHandler(registry *pair.Registry, mem *memory.Client, applier *memory.Applier, auditRepo *audit.Repo, hub *events.Hub, debounce *Debouncer, lookupTimeout time.Duration) *Handler {
	if lookupTimeout <= 0 {
		lookupTimeout = 10 * time.Second
	}
	return &Handler{
		Registry:      registry,
		Memory:        mem,
		Applier:       applier,
		Audit:         auditRepo,
		Hub:           hub,
		Debounce:      debounce,
		LookupTimeout: lookupTimeout,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.register)
	rg.GET("/:id", h.get)
	rg.GET("/:id/segments/:segment_id", h.getSegment)
	rg.POST("/:id/segments/:segment_id/complete", h.setCompleted)
	rg.POST("/:id/active", h.setActive)
	rg.DELETE("/:id/active", h.clearActive)
	rg.GET("/:id/validation", h.validateNow)
	rg.POST("/:id/edits", h.edit)
	rg.POST("/:id/apply", h.apply)
	rg.GET("/:id/audit", h.listAudit)
}

type registerReq struct {
	PairID     string `json:"pair_id"`
	SourceHTML string `json:"source_html"`
	TargetHTML string `json:"target_html"`
	LangSource string `json:"lang_source"`
	LangTarget string `json:"lang_target"`
	// Mask runs the codec over both documents first, for callers that
	// hold raw (unmasked) segmented HTML.
	Mask bool `json:"mask"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.SourceHTML) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_html required"})
		return
	}

	pairID := strings.TrimSpace(req.PairID)
	if pairID == "" {
		pairID = uuid.NewString()
	}

	// Reviewer language preferences fill missing langs.
	if claims := auth.MustGetClaims(c); claims != nil {
		if req.LangSource == "" {
			req.LangSource = claims.LangSource
		}
		if req.LangTarget == "" {
			req.LangTarget = claims.LangTarget
		}
	}
	if req.LangSource == "" || req.LangTarget == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lang_source and lang_target required"})
		return
	}

	if req.Mask {
		masked, err := segment.MaskDocument(req.SourceHTML)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mask source: " + err.Error()})
			return
		}
		req.SourceHTML = masked
		if strings.TrimSpace(req.TargetHTML) != "" {
			masked, err = segment.MaskDocument(req.TargetHTML)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "mask target: " + err.Error()})
				return
			}
			req.TargetHTML = masked
		}
	}

	state, seeded, err := h.Registry.Register(pairID, req.SourceHTML, req.TargetHTML, req.LangSource, req.LangTarget)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.publish(events.Event{Type: events.TypePairRegistered, PairID: pairID, State: &state})
	c.JSON(http.StatusOK, gin.H{"pair": state, "seeded": seeded})
}

func (h *Handler) get(c *gin.Context) {
	state, err := h.Registry.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pair not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pair": state})
}

func (h *Handler) getSegment(c *gin.Context) {
	side := normalizeSide(c.Query("side"))
	if side == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be source or target"})
		return
	}

	seg, err := h.Registry.Segment(c.Param("id"), side, c.Param("segment_id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pair not found"})
		return
	}
	if seg == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "segment not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"segment": seg})
}

type activeReq struct {
	SegmentID string `json:"segment_id"`
	Side      string `json:"side"`
	Offset    *int   `json:"offset"`
}

// setActive runs the interaction sequence for one selection: reset
// previous active, resolve and mark the new one, validate, and (when
// the selection actually changed) look up memory suggestions.
func (h *Handler) setActive(c *gin.Context) {
	pairID := c.Param("id")

	var req activeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	side := normalizeSide(req.Side)
	if side == "" {
		side = models.SideTarget
	}

	// Whatever an earlier edit scheduled is superseded by this click.
	h.Debounce.CancelPair(pairID)

	var res pair.SelectResult
	var err error
	switch {
	case req.SegmentID != "":
		res, err = h.Registry.SetActive(pairID, req.SegmentID, side)
	case req.Offset != nil:
		res, err = h.Registry.SetActiveAtOffset(pairID, side, *req.Offset)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "segment_id or offset required"})
		return
	}
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, pair.ErrPairNotFound) || errors.Is(err, pair.ErrSegmentNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if res.Target == nil {
		// Cursor outside every segment: the normal deselect signal.
		h.publish(events.Event{Type: events.TypeSegmentDeactivated, PairID: pairID, State: &res.Pair})
		c.JSON(http.StatusOK, gin.H{"pair": res.Pair, "deselected": true})
		return
	}

	resp := gin.H{
		"pair":         res.Pair,
		"source":       res.Source,
		"target":       res.Target,
		"same_segment": res.SameSegment,
	}

	report, skipped, err := h.Registry.Validate(pairID, false)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		return
	}
	if !skipped {
		resp["validation"] = report
		h.publish(events.Event{
			Type:      events.TypeValidationReport,
			PairID:    pairID,
			SegmentID: res.Target.ID,
			Report:    &report,
		})
	}

	h.publish(events.Event{
		Type:      events.TypeSegmentActivated,
		PairID:    pairID,
		SegmentID: res.Target.ID,
		Side:      side,
		State:     &res.Pair,
	})

	// A no-op click must not refetch; so must a segment with no source
	// counterpart to key the lookup on.
	if !res.SameSegment && res.Source != nil {
		h.lookupInto(c.Request.Context(), resp, pairID, res)
	}

	c.JSON(http.StatusOK, resp)
}

// lookupInto queries the memory service for the freshly activated
// segment and merges the outcome into resp. A response whose segment is
// no longer active is superseded and discarded, never shown.
func (h *Handler) lookupInto(parent context.Context, resp gin.H, pairID string, res pair.SelectResult) {
	ctx, cancel := context.WithTimeout(parent, h.LookupTimeout)
	defer cancel()

	sugs, err := h.Memory.Lookup(ctx, memory.LookupRequest{
		StrippedText: res.Source.StrippedText,
		MaskedHTML:   res.Source.HTMLText,
		LangSource:   res.Pair.LangSource,
		LangTarget:   res.Pair.LangTarget,
	})

	if h.Registry.ActiveSegmentID(pairID) != res.Target.ID {
		resp["superseded"] = true
		return
	}

	switch {
	case errors.Is(err, memory.ErrNoMatches):
		resp["no_matches"] = true
	case err != nil:
		resp["lookup_error"] = err.Error()
		h.publish(events.Event{
			Type:      events.TypeLookupFailed,
			PairID:    pairID,
			SegmentID: res.Target.ID,
			Error:     err.Error(),
		})
	default:
		resp["suggestions"] = sugs
		h.publish(events.Event{
			Type:      events.TypeLookupResults,
			PairID:    pairID,
			SegmentID: res.Target.ID,
			Results:   sugs,
		})
	}
}

func (h *Handler) clearActive(c *gin.Context) {
	pairID := c.Param("id")
	h.Debounce.CancelPair(pairID)

	state, err := h.Registry.ClearActive(pairID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pair not found"})
		return
	}
	h.publish(events.Event{Type: events.TypeSegmentDeactivated, PairID: pairID, State: &state})
	c.JSON(http.StatusOK, gin.H{"pair": state})
}

func (h *Handler) validateNow(c *gin.Context) {
	report, _, err := h.Registry.Validate(c.Param("id"), true)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pair not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"validation": report})
}

type editReq struct {
	Side string `json:"side"`
	HTML string `json:"html"`
}

// edit replaces one side's document after an editor change and
// schedules the debounced revalidate + re-lookup cycle for the active
// segment. Rapid edits collapse into one trailing cycle.
func (h *Handler) edit(c *gin.Context) {
	pairID := c.Param("id")

	var req editReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	side := normalizeSide(req.Side)
	if side == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be source or target"})
		return
	}

	state, err := h.Registry.UpdateDocument(pairID, side, req.HTML)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, pair.ErrPairNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if state.ActiveSegmentID != "" {
		segID := state.ActiveSegmentID
		h.Debounce.Trigger(Key(pairID, segID), func() {
			h.revalidate(pairID, segID)
		})
	}
	c.JSON(http.StatusOK, gin.H{"pair": state})
}

// revalidate is the trailing half of the debounced cycle; it runs off
// the request goroutine and reports through the event hub only.
func (h *Handler) revalidate(pairID, segmentID string) {
	if h.Registry.ActiveSegmentID(pairID) != segmentID {
		return
	}

	report, skipped, err := h.Registry.Validate(pairID, false)
	if err != nil {
		return
	}
	if !skipped {
		h.publish(events.Event{
			Type:      events.TypeValidationReport,
			PairID:    pairID,
			SegmentID: segmentID,
			Report:    &report,
		})
	}

	_, source, err := h.Registry.ActiveLookupKey(pairID)
	if err != nil || source == nil {
		return
	}
	state, err := h.Registry.Get(pairID)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.LookupTimeout)
	defer cancel()
	sugs, err := h.Memory.Lookup(ctx, memory.LookupRequest{
		StrippedText: source.StrippedText,
		MaskedHTML:   source.HTMLText,
		LangSource:   state.LangSource,
		LangTarget:   state.LangTarget,
	})

	if h.Registry.ActiveSegmentID(pairID) != segmentID {
		return // superseded while in flight
	}

	switch {
	case errors.Is(err, memory.ErrNoMatches):
		h.publish(events.Event{Type: events.TypeLookupResults, PairID: pairID, SegmentID: segmentID})
	case err != nil:
		h.publish(events.Event{Type: events.TypeLookupFailed, PairID: pairID, SegmentID: segmentID, Error: err.Error()})
	default:
		h.publish(events.Event{Type: events.TypeLookupResults, PairID: pairID, SegmentID: segmentID, Results: sugs})
	}
}

type applyReq struct {
	Suggestion models.Suggestion `json:"suggestion"`
}

func (h *Handler) apply(c *gin.Context) {
	pairID := c.Param("id")

	var req applyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	reviewerID := ""
	if claims := auth.MustGetClaims(c); claims != nil {
		reviewerID = claims.UserID
	}

	seg, err := h.Applier.Apply(c.Request.Context(), pairID, reviewerID, req.Suggestion)
	switch {
	case errors.Is(err, pair.ErrPairNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "pair not found"})
		return
	case errors.Is(err, pair.ErrStaleSegment):
		c.JSON(http.StatusConflict, gin.H{"error": "stale segment: reselect the segment and retry"})
		return
	case errors.Is(err, pair.ErrNoActiveSegment):
		c.JSON(http.StatusConflict, gin.H{"error": "no active segment"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	state, err := h.Registry.Get(pairID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "pair state unavailable"})
		return
	}

	h.publish(events.Event{
		Type:      events.TypeSuggestionApplied,
		PairID:    pairID,
		SegmentID: seg.ID,
		Quality:   req.Suggestion.Quality,
		State:     &state,
	})
	c.JSON(http.StatusOK, gin.H{"segment": seg, "pair": state})
}

type completeReq struct {
	Completed *bool `json:"completed"`
}

func (h *Handler) setCompleted(c *gin.Context) {
	pairID := c.Param("id")
	segmentID := c.Param("segment_id")

	var req completeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	on := true
	if req.Completed != nil {
		on = *req.Completed
	}

	state, err := h.Registry.SetCompleted(pairID, segmentID, on)
	switch {
	case errors.Is(err, pair.ErrPairNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "pair not found"})
		return
	case err != nil:
		c.JSON(http.StatusNotFound, gin.H{"error": "segment not found"})
		return
	}

	h.publish(events.Event{
		Type:      events.TypeSegmentCompleted,
		PairID:    pairID,
		SegmentID: segmentID,
		State:     &state,
	})
	c.JSON(http.StatusOK, gin.H{"pair": state})
}

func (h *Handler) listAudit(c *gin.Context) {
	if h.Audit == nil {
		c.JSON(http.StatusOK, gin.H{"items": []audit.Entry{}})
		return
	}

	items, err := h.Audit.ListByPair(
		c.Request.Context(),
		c.Param("id"),
		parseInt(c.Query("limit"), 20),
		parseInt(c.Query("offset"), 0),
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) publish(ev events.Event) {
	if h.Hub != nil {
		h.Hub.Publish(ev)
	}
}

func normalizeSide(side string) string {
	switch strings.TrimSpace(strings.ToLower(side)) {
	case models.SideSource:
		return models.SideSource
	case models.SideTarget, "translation":
		return models.SideTarget
	}
	return ""
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
