package codec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segmenthub/internal/codec"
)

func TestMask_RoundTrip(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"plain text", "no markup at all"},
		{"single pair", "some <b>bold</b> text"},
		{"attributes", `a <a href="https://example.com" title="x">link</a>`},
		{"self closing", "line one<br/>line two"},
		{"void without slash", "line one<br>line two"},
		{"nested", "<b>bold <i>and italic</i></b>"},
		{"unmatched closer", "tail of a sentence</b> and more"},
		{"unmatched opener", "<b>bold that never ends"},
		{"entities kept", "fish &amp; chips <i>&nbsp;</i>"},
		{"empty", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			masked, err := codec.Mask(tc.raw)
			require.NoError(t, err)

			back, err := codec.Unmask(masked)
			require.NoError(t, err)
			assert.Equal(t, tc.raw, back)
		})
	}
}

func TestMask_PlaceholderShape(t *testing.T) {
	masked, err := codec.Mask(`<b class="x">bold</b>`)
	require.NoError(t, err)

	tags := codec.Placeholders(masked)
	require.Len(t, tags, 2)
	assert.Equal(t, "b", tags[0].Element)
	assert.Equal(t, `<b class="x">`, tags[0].Raw)
	assert.Equal(t, "b", tags[1].Element)
	assert.Equal(t, "</b>", tags[1].Raw)
}

func TestMask_UnmatchedCloserKeepsSlash(t *testing.T) {
	masked, err := codec.Mask("end of segment</em> rest")
	require.NoError(t, err)

	tags := codec.Placeholders(masked)
	require.Len(t, tags, 1)
	assert.Equal(t, "/em", tags[0].Element)
	assert.Equal(t, "</em>", tags[0].Raw)

	// Not silently dropped: the closer survives the round trip.
	back, err := codec.Unmask(masked)
	require.NoError(t, err)
	assert.Equal(t, "end of segment</em> rest", back)
}

func TestMask_CrossedNesting(t *testing.T) {
	// </b> arrives while <i> is innermost: the closer is preserved as
	// unmatched, never repaired.
	masked, err := codec.Mask("<b>one <i>two</b> three</i>")
	require.NoError(t, err)

	tags := codec.Placeholders(masked)
	require.Len(t, tags, 4)
	assert.Equal(t, "b", tags[0].Element)
	assert.Equal(t, "i", tags[1].Element)
	assert.Equal(t, "/b", tags[2].Element)
	assert.Equal(t, "i", tags[3].Element)

	back, err := codec.Unmask(masked)
	require.NoError(t, err)
	assert.Equal(t, "<b>one <i>two</b> three</i>", back)
}

func TestMask_AlreadyMaskedFails(t *testing.T) {
	masked, err := codec.Mask("some <b>bold</b> text")
	require.NoError(t, err)

	_, err = codec.Mask(masked)
	var cerr *codec.CodecError
	require.ErrorAs(t, err, &cerr)
}

func TestUnmask_MissingRawAttr(t *testing.T) {
	_, err := codec.Unmask(`text <sh-tag element="b"/> more`)
	var cerr *codec.CodecError
	require.ErrorAs(t, err, &cerr)
}

func TestUnmask_RawNotATag(t *testing.T) {
	_, err := codec.Unmask(`text <sh-tag element="b" raw="not a tag"/>`)
	var cerr *codec.CodecError
	require.ErrorAs(t, err, &cerr)
}

func TestUnmask_PassesThroughSegmentContainers(t *testing.T) {
	doc := `<sh-segment id="s1">one <sh-tag element="b" raw="&lt;b&gt;"/>two<sh-tag element="b" raw="&lt;/b&gt;"/></sh-segment>`
	back, err := codec.Unmask(doc)
	require.NoError(t, err)
	assert.Equal(t, `<sh-segment id="s1">one <b>two</b></sh-segment>`, back)
}

func TestStrip_Consistency(t *testing.T) {
	cases := []string{
		"plain",
		"some <b>bold</b> text",
		"a<br>b",
		"fish &amp; chips",
		`<a href="x">link</a> tail</em>`,
	}

	for _, raw := range cases {
		masked, err := codec.Mask(raw)
		require.NoError(t, err)

		unmasked, err := codec.Unmask(masked)
		require.NoError(t, err)

		// strippedText == stripTags(unmask(htmlText))
		assert.Equal(t, codec.Strip(unmasked), codec.Strip(masked), "input %q", raw)
	}
}

func TestStrip_KeepsEntitiesVerbatim(t *testing.T) {
	assert.Equal(t, "fish &amp; chips", codec.Strip("fish <b>&amp;</b> chips"))
}
