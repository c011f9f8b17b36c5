package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segmenthub/internal/segment"
	"segmenthub/internal/validate"
)

func doc(t *testing.T, raw string) *segment.Document {
	t.Helper()
	masked, err := segment.MaskDocument(raw)
	require.NoError(t, err)
	d, err := segment.Parse(masked)
	require.NoError(t, err)
	return d
}

func TestValidate_IdenticalTagsYieldNothing(t *testing.T) {
	source := doc(t, `<sh-segment id="a">one <b>two</b></sh-segment><sh-segment id="b">x<br>y</sh-segment>`)
	target := doc(t, `<sh-segment id="a">eins <b>zwei</b></sh-segment><sh-segment id="b">u<br>v</sh-segment>`)

	report := validate.Validate(source, target, "a")
	assert.True(t, report.Clean())
}

func TestValidate_ActiveSegmentGetsDetail(t *testing.T) {
	source := doc(t, `<sh-segment id="a">one<br> <b>two</b></sh-segment>`)
	target := doc(t, `<sh-segment id="a">eins<br> zwei</sh-segment>`)

	report := validate.Validate(source, target, "a")
	require.NotNil(t, report.ActiveDetail)
	assert.Equal(t, "a", report.ActiveDetail.SegmentID)
	require.Len(t, report.ActiveDetail.Missing, 2)
	assert.Equal(t, "b", report.ActiveDetail.Missing[0].Element)
	assert.Equal(t, "<b>", report.ActiveDetail.Missing[0].Raw)
	assert.Empty(t, report.ActiveDetail.Extra)
	assert.Equal(t, 0, report.MissingTotal)
}

func TestValidate_InactiveSegmentOnlyCounts(t *testing.T) {
	source := doc(t, `<sh-segment id="a">one<br> <b>two</b></sh-segment><sh-segment id="c">plain</sh-segment>`)
	target := doc(t, `<sh-segment id="a">eins<br> zwei</sh-segment><sh-segment id="c">schlicht</sh-segment>`)

	// "c" is active; the mismatch is in inactive "a".
	report := validate.Validate(source, target, "c")
	assert.Nil(t, report.ActiveDetail)
	assert.Equal(t, 2, report.MissingTotal) // <b> and </b>
}

func TestValidate_NoActiveSegment(t *testing.T) {
	source := doc(t, `<sh-segment id="a"><b>x</b></sh-segment>`)
	target := doc(t, `<sh-segment id="a">x</sh-segment>`)

	report := validate.Validate(source, target, "")
	assert.Nil(t, report.ActiveDetail)
	assert.Equal(t, 2, report.MissingTotal)
}

func TestValidate_SameCountDifferentContent(t *testing.T) {
	source := doc(t, `<sh-segment id="a"><b>x</b></sh-segment>`)
	target := doc(t, `<sh-segment id="a"><i>x</i></sh-segment>`)

	report := validate.Validate(source, target, "a")
	require.NotNil(t, report.ActiveDetail)
	assert.Len(t, report.ActiveDetail.Missing, 2)
	assert.Len(t, report.ActiveDetail.Extra, 2)
}

func TestValidate_ReorderedTagsPass(t *testing.T) {
	source := doc(t, `<sh-segment id="a"><b>x</b> <i>y</i></sh-segment>`)
	target := doc(t, `<sh-segment id="a"><i>u</i> <b>v</b></sh-segment>`)

	report := validate.Validate(source, target, "a")
	assert.True(t, report.Clean())
}

func TestValidate_CountMismatchPrecedence(t *testing.T) {
	source := doc(t, `<sh-segment id="a">1</sh-segment><sh-segment id="b"><b>2</b></sh-segment><sh-segment id="c">3</sh-segment>`)
	target := doc(t, `<sh-segment id="a">1</sh-segment><sh-segment id="b">2</sh-segment>`)

	report := validate.Validate(source, target, "b")
	require.NotNil(t, report.CountMismatch)
	assert.Equal(t, 3, report.CountMismatch.Source)
	assert.Equal(t, 2, report.CountMismatch.Target)
	assert.Nil(t, report.ActiveDetail)
	assert.Equal(t, 0, report.MissingTotal)
}
