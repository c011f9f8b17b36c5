package memory_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segmenthub/internal/memory"
)

func newServer(t *testing.T, handler http.HandlerFunc) *memory.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := memory.NewClient(srv.URL)
	return client
}

func TestLookup_Matches(t *testing.T) {
	var gotQuery map[string]string
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{
			"segmentStrippedText": q.Get("segmentStrippedText"),
			"segmentHtmlText":     q.Get("segmentHtmlText"),
			"lang_source":         q.Get("lang_source"),
			"lang_target":         q.Get("lang_target"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"trSegmentHtmlText":"Hallo","trSegmentStrippedText":"Hallo","quality":90,"sourceSegmentId":"u1","targetSegmentId":"u2"},
			{"trSegmentHtmlText":"Servus","trSegmentStrippedText":"Servus","quality":40,"sourceSegmentId":"u3","targetSegmentId":"u4"}
		]`))
	})

	got, err := client.Lookup(context.Background(), memory.LookupRequest{
		StrippedText: "Hello",
		MaskedHTML:   `Hello <sh-tag element="b" raw="&lt;b&gt;"/>`,
		LangSource:   "en",
		LangTarget:   "de",
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Service order is preserved, never re-ranked.
	assert.Equal(t, "Hallo", got[0].MaskedHTML)
	assert.Equal(t, 90, got[0].Quality)
	assert.Equal(t, "u1", got[0].SourceUnitRef)
	assert.Equal(t, "u2", got[0].TargetUnitRef)
	assert.Equal(t, "Servus", got[1].MaskedHTML)

	assert.Equal(t, "Hello", gotQuery["segmentStrippedText"])
	assert.Equal(t, `Hello <sh-tag element="b" raw="&lt;b&gt;"/>`, gotQuery["segmentHtmlText"])
	assert.Equal(t, "en", gotQuery["lang_source"])
	assert.Equal(t, "de", gotQuery["lang_target"])
}

func TestLookup_NoContentVsEmptyList(t *testing.T) {
	noContent := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	_, err := noContent.Lookup(context.Background(), memory.LookupRequest{})
	require.ErrorIs(t, err, memory.ErrNoMatches)

	emptyList := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	})
	got, err := emptyList.Lookup(context.Background(), memory.LookupRequest{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLookup_ServerError(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := client.Lookup(context.Background(), memory.LookupRequest{})
	require.ErrorIs(t, err, memory.ErrLookupFailed)
	assert.NotErrorIs(t, err, memory.ErrNoMatches)
}

func TestLookup_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	client := memory.NewClient(srv.URL)
	srv.Close() // connection refused from here on

	_, err := client.Lookup(context.Background(), memory.LookupRequest{})
	require.ErrorIs(t, err, memory.ErrLookupFailed)
}

func TestLookup_Cancellation(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Lookup(ctx, memory.LookupRequest{})
	require.ErrorIs(t, err, memory.ErrLookupFailed)
}
