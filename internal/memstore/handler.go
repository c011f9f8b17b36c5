package memstore

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"segmenthub/internal/codec"
	"segmenthub/pkg/models"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/memory/translations", h.lookup)
	r.POST("/memory/units", h.createUnit)
	r.GET("/memory/units", h.listUnits)
	r.GET("/memory/units/:id", h.getUnit)
	r.DELETE("/memory/units/:id", h.deleteUnit)
}

// Wire shape of one lookup candidate. Field names follow the editor
// clients consuming this endpoint.
type wireCandidate struct {
	TrSegmentHTMLText     string `json:"trSegmentHtmlText"`
	TrSegmentStrippedText string `json:"trSegmentStrippedText"`
	Quality               int    `json:"quality"`
	SourceSegmentID       string `json:"sourceSegmentId"`
	TargetSegmentID       string `json:"targetSegmentId"`
}

// lookup answers GET /memory/translations. Matches come back as a JSON
// array ordered best-first; no matches at all is a 204, which clients
// treat differently from an empty array.
func (h *Handler) lookup(c *gin.Context) {
	q := LookupQuery{
		StrippedText: c.Query("segmentStrippedText"),
		HTMLText:     c.Query("segmentHtmlText"),
		LangSource:   c.Query("lang_source"),
		LangTarget:   c.Query("lang_target"),
	}
	if strings.TrimSpace(q.StrippedText) == "" && strings.TrimSpace(q.HTMLText) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "segmentStrippedText or segmentHtmlText required"})
		return
	}
	if q.LangSource == "" || q.LangTarget == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lang_source and lang_target required"})
		return
	}

	units, err := h.Repo.Lookup(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if len(units) == 0 {
		c.Status(http.StatusNoContent)
		return
	}

	out := make([]wireCandidate, 0, len(units))
	for _, u := range units {
		out = append(out, wireCandidate{
			TrSegmentHTMLText:     u.TargetHTML,
			TrSegmentStrippedText: u.TargetStripped,
			Quality:               u.Quality,
			SourceSegmentID:       u.ID + ":source",
			TargetSegmentID:       u.ID + ":target",
		})
	}
	c.JSON(http.StatusOK, out)
}

type createUnitReq struct {
	LangSource string `json:"lang_source"`
	LangTarget string `json:"lang_target"`
	SourceHTML string `json:"source_html"`
	TargetHTML string `json:"target_html"`
	Quality    int    `json:"quality"`
}

func (h *Handler) createUnit(c *gin.Context) {
	var req createUnitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.LangSource == "" || req.LangTarget == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lang_source and lang_target required"})
		return
	}
	if strings.TrimSpace(req.SourceHTML) == "" || strings.TrimSpace(req.TargetHTML) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_html and target_html required"})
		return
	}
	if req.Quality < 0 || req.Quality > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quality must be 0-100"})
		return
	}

	u := models.MemoryUnit{
		ID:             uuid.NewString(),
		LangSource:     req.LangSource,
		LangTarget:     req.LangTarget,
		SourceHTML:     req.SourceHTML,
		SourceStripped: codec.Strip(req.SourceHTML),
		TargetHTML:     req.TargetHTML,
		TargetStripped: codec.Strip(req.TargetHTML),
		Quality:        req.Quality,
	}

	if err := h.Repo.CreateUnit(c.Request.Context(), u); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create unit failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"unit": u})
}

func (h *Handler) listUnits(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	units, err := h.Repo.ListUnits(c.Request.Context(), c.Query("lang_source"), c.Query("lang_target"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	if units == nil {
		units = []models.MemoryUnit{}
	}
	c.JSON(http.StatusOK, gin.H{"items": units})
}

func (h *Handler) getUnit(c *gin.Context) {
	u, err := h.Repo.GetUnit(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unit not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unit": u})
}

func (h *Handler) deleteUnit(c *gin.Context) {
	if err := h.Repo.DeleteUnit(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unit not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
