package pair_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segmenthub/internal/pair"
	"segmenthub/internal/segment"
	"segmenthub/pkg/models"
)

const sourceDoc = `<sh-segment id="s1">One <sh-tag element="b" raw="&lt;b&gt;"/>two<sh-tag element="b" raw="&lt;/b&gt;"/>.</sh-segment>` +
	`<sh-segment id="s2">Three.</sh-segment>`

const targetDoc = `<sh-segment id="s1">Eins zwei.</sh-segment>` +
	`<sh-segment id="s2">Drei.</sh-segment>`

func newPair(t *testing.T) *pair.Registry {
	t.Helper()
	reg := pair.NewRegistry()
	_, _, err := reg.Register("p1", sourceDoc, targetDoc, "en", "de")
	require.NoError(t, err)
	return reg
}

func TestRegister_SeedsEmptyTarget(t *testing.T) {
	reg := pair.NewRegistry()
	state, seeded, err := reg.Register("p1", sourceDoc, "  ", "en", "de")
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, 2, state.TotalCount)

	// The seeded target is a copy of the source.
	seg, err := reg.Segment("p1", models.SideTarget, "s1")
	require.NoError(t, err)
	require.NotNil(t, seg)
	assert.Equal(t, "One two.", seg.StrippedText)
}

func TestRegister_NonEmptyTargetNotReseeded(t *testing.T) {
	reg := newPair(t)
	_, seeded, err := reg.Register("p1", sourceDoc, targetDoc, "en", "de")
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestRegister_ReplacesState(t *testing.T) {
	reg := newPair(t)
	_, err := reg.SetActive("p1", "s1", models.SideTarget)
	require.NoError(t, err)

	state, _, err := reg.Register("p1", sourceDoc, targetDoc, "en", "de")
	require.NoError(t, err)
	assert.Empty(t, state.ActiveSegmentID)
}

func TestSetActive_Exclusivity(t *testing.T) {
	reg := newPair(t)

	_, err := reg.SetActive("p1", "s1", models.SideTarget)
	require.NoError(t, err)
	_, err = reg.SetActive("p1", "s2", models.SideSource)
	require.NoError(t, err)

	_, target, err := reg.Documents("p1")
	require.NoError(t, err)

	doc, err := segment.Parse(target)
	require.NoError(t, err)
	active := 0
	for _, s := range doc.Spans() {
		if s.Active {
			active++
			assert.Equal(t, "s2", s.ID)
		}
	}
	assert.Equal(t, 1, active)
}

func TestSetActive_SameSegmentFlag(t *testing.T) {
	reg := newPair(t)

	res, err := reg.SetActive("p1", "s1", models.SideTarget)
	require.NoError(t, err)
	assert.False(t, res.SameSegment)

	res, err = reg.SetActive("p1", "s1", models.SideTarget)
	require.NoError(t, err)
	assert.True(t, res.SameSegment, "no-op click must be recognizable")

	res, err = reg.SetActive("p1", "s2", models.SideTarget)
	require.NoError(t, err)
	assert.False(t, res.SameSegment)
}

func TestSetActiveAtOffset(t *testing.T) {
	reg := newPair(t)

	off := strings.Index(targetDoc, "Drei")
	res, err := reg.SetActiveAtOffset("p1", models.SideTarget, off)
	require.NoError(t, err)
	require.NotNil(t, res.Target)
	assert.Equal(t, "s2", res.Target.ID)
	require.NotNil(t, res.Source)
	assert.Equal(t, "Three.", res.Source.StrippedText)
}

func TestSetActiveAtOffset_OutsideDeselects(t *testing.T) {
	reg := newPair(t)

	_, err := reg.SetActive("p1", "s1", models.SideTarget)
	require.NoError(t, err)

	res, err := reg.SetActiveAtOffset("p1", models.SideTarget, len(targetDoc)+10)
	require.NoError(t, err)
	assert.Nil(t, res.Target)
	assert.Empty(t, res.Pair.ActiveSegmentID)
}

func TestValidate_MarksActiveSegment(t *testing.T) {
	reg := newPair(t)

	_, err := reg.SetActive("p1", "s1", models.SideTarget)
	require.NoError(t, err)

	report, skipped, err := reg.Validate("p1", false)
	require.NoError(t, err)
	assert.False(t, skipped)
	require.NotNil(t, report.ActiveDetail)
	assert.Len(t, report.ActiveDetail.Missing, 2)

	_, target, err := reg.Documents("p1")
	require.NoError(t, err)
	doc, err := segment.Parse(target)
	require.NoError(t, err)
	assert.True(t, doc.Span("s1").MissingTags)

	// Deactivating clears the marker even though nothing was fixed.
	_, err = reg.ClearActive("p1")
	require.NoError(t, err)
	_, target, err = reg.Documents("p1")
	require.NoError(t, err)
	doc, err = segment.Parse(target)
	require.NoError(t, err)
	assert.False(t, doc.Span("s1").MissingTags)
}

func TestApplySuggestion(t *testing.T) {
	reg := newPair(t)

	_, err := reg.SetActive("p1", "s1", models.SideTarget)
	require.NoError(t, err)

	sug := models.Suggestion{
		MaskedHTML:    `Eins <sh-tag element="b" raw="&lt;b&gt;"/>zwei<sh-tag element="b" raw="&lt;/b&gt;"/>.`,
		StrippedText:  "Eins zwei.",
		Quality:       85,
		SourceUnitRef: "u-1",
		TargetUnitRef: "u-2",
	}
	seg, err := reg.ApplySuggestion("p1", sug)
	require.NoError(t, err)
	assert.Equal(t, sug.MaskedHTML, seg.HTMLText)

	// Provenance lands on the container.
	_, target, err := reg.Documents("p1")
	require.NoError(t, err)
	doc, err := segment.Parse(target)
	require.NoError(t, err)
	assert.Equal(t, "memory", doc.Span("s1").Source)
	assert.Equal(t, 85, doc.Span("s1").Quality)

	// The next automatic validation pass is suppressed, exactly once.
	_, skipped, err := reg.Validate("p1", false)
	require.NoError(t, err)
	assert.True(t, skipped)
	_, skipped, err = reg.Validate("p1", false)
	require.NoError(t, err)
	assert.False(t, skipped)
}

func TestApplySuggestion_Stale(t *testing.T) {
	reg := newPair(t)

	_, err := reg.SetActive("p1", "s1", models.SideTarget)
	require.NoError(t, err)

	// The segment content moves after the lookup snapshot was taken.
	edited := strings.Replace(targetDoc, "Eins zwei.", "Eins zwei drei.", 1)
	_, err = reg.UpdateDocument("p1", models.SideTarget, edited)
	require.NoError(t, err)

	_, err = reg.ApplySuggestion("p1", models.Suggestion{MaskedHTML: "x", Quality: 1})
	require.ErrorIs(t, err, pair.ErrStaleSegment)

	// Document unmodified by the failed apply.
	seg, err := reg.Segment("p1", models.SideTarget, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Eins zwei drei.", seg.StrippedText)
}

func TestSetCompleted_RecomputedCounters(t *testing.T) {
	reg := newPair(t)

	state, err := reg.SetCompleted("p1", "s1", true)
	require.NoError(t, err)
	assert.Equal(t, 1, state.CompletedCount)
	assert.Equal(t, 2, state.TotalCount)

	state, err = reg.SetCompleted("p1", "s1", false)
	require.NoError(t, err)
	assert.Equal(t, 0, state.CompletedCount)
}

func TestIsolationAcrossPairs(t *testing.T) {
	reg := newPair(t)
	_, _, err := reg.Register("p2", sourceDoc, targetDoc, "en", "fr")
	require.NoError(t, err)

	_, err = reg.SetActive("p1", "s1", models.SideTarget)
	require.NoError(t, err)

	state, err := reg.Get("p2")
	require.NoError(t, err)
	assert.Empty(t, state.ActiveSegmentID)
}

func TestGet_UnknownPair(t *testing.T) {
	reg := pair.NewRegistry()
	_, err := reg.Get("nope")
	require.ErrorIs(t, err, pair.ErrPairNotFound)
}
