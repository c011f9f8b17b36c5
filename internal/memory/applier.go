package memory

import (
	"context"
	"log"

	"segmenthub/internal/audit"
	"segmenthub/internal/pair"
	"segmenthub/pkg/models"
)

// Applier replaces a target segment's content with a chosen suggestion
// through the registry and records the provenance trail. The registry
// enforces the snapshot check; a stale segment surfaces as
// pair.ErrStaleSegment with the document untouched.
type Applier struct {
	Registry *pair.Registry
	Audit    *audit.Repo // optional
}

func NewApplier(registry *pair.Registry, auditRepo *audit.Repo) *Applier {
	return &Applier{Registry: registry, Audit: auditRepo}
}

// Apply performs the replacement for the pair's active segment and
// logs who applied which memory unit at what quality. An audit write
// failure does not undo the replacement; the document is authoritative.
func (a *Applier) Apply(ctx context.Context, pairID, reviewerID string, sug models.Suggestion) (*models.Segment, error) {
	seg, err := a.Registry.ApplySuggestion(pairID, sug)
	if err != nil {
		return nil, err
	}

	if a.Audit != nil {
		_, err := a.Audit.Record(ctx, audit.Entry{
			PairID:        pairID,
			SegmentID:     seg.ID,
			SourceUnitRef: sug.SourceUnitRef,
			TargetUnitRef: sug.TargetUnitRef,
			Quality:       sug.Quality,
			AppliedBy:     reviewerID,
		})
		if err != nil {
			log.Printf("[apply] audit record failed for pair %s segment %s: %v", pairID, seg.ID, err)
		}
	}
	return seg, nil
}
