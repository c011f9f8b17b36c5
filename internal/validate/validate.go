// Package validate compares the masked-tag multisets of corresponding
// segments across a document pair.
package validate

import (
	"segmenthub/internal/segment"
	"segmenthub/pkg/models"
)

// Validate compares source and target segment by positional index.
//
// If the segment counts differ the report carries a single count
// mismatch and nothing else; positional comparison is meaningless then.
// Otherwise each index contributes its multiset difference over
// (element, raw): the active segment gets tag-level detail, every other
// mismatched segment only bumps the running missing-tag total. The
// detail-for-active precedence keeps a large document from flooding
// the caller with every segment's diff at once.
//
// Comparison is deliberately a multiset, not positional alignment: a
// same-count-but-different-content segment is flagged, and reordered
// but otherwise identical tags are not.
func Validate(source, target *segment.Document, activeID string) models.ValidationReport {
	if source.Len() != target.Len() {
		return models.ValidationReport{
			CountMismatch: &models.SegmentCounts{Source: source.Len(), Target: target.Len()},
		}
	}

	var report models.ValidationReport
	ss, ts := source.Spans(), target.Spans()
	for i := range ss {
		missing, extra := diffTags(source.Tags(ss[i]), target.Tags(ts[i]))
		if len(missing) == 0 && len(extra) == 0 {
			continue
		}
		if activeID != "" && ts[i].ID == activeID {
			report.ActiveDetail = &models.SegmentDiff{
				SegmentID: activeID,
				Missing:   missing,
				Extra:     extra,
			}
			continue
		}
		report.MissingTotal += len(missing) + len(extra)
	}
	return report
}

// diffTags returns the multiset difference in document order: tags of
// left absent from right, and tags of right absent from left.
func diffTags(left, right []models.MaskedTag) (missing, extra []models.MaskedTag) {
	remain := make(map[models.MaskedTag]int, len(right))
	for _, tag := range right {
		remain[tag]++
	}
	for _, tag := range left {
		if remain[tag] > 0 {
			remain[tag]--
		} else {
			missing = append(missing, tag)
		}
	}

	remain = make(map[models.MaskedTag]int, len(left))
	for _, tag := range left {
		remain[tag]++
	}
	for _, tag := range right {
		if remain[tag] > 0 {
			remain[tag]--
		} else {
			extra = append(extra, tag)
		}
	}
	return missing, extra
}
