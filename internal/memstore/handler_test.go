package memstore_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"segmenthub/internal/memstore"
)

const testSchema = `
CREATE TABLE memory_units (
    id              TEXT PRIMARY KEY,
    lang_source     TEXT NOT NULL,
    lang_target     TEXT NOT NULL,
    source_stripped TEXT NOT NULL,
    source_html     TEXT NOT NULL,
    target_stripped TEXT NOT NULL,
    target_html     TEXT NOT NULL,
    quality         INTEGER NOT NULL DEFAULT 0,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(testSchema)
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	memstore.NewHandler(memstore.NewRepo(db)).RegisterRoutes(r)
	return r
}

func postUnit(t *testing.T, r *gin.Engine, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()

	b, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/memory/units", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestCreateAndLookup(t *testing.T) {
	r := newTestServer(t)

	w := postUnit(t, r, map[string]any{
		"lang_source": "en",
		"lang_target": "de",
		"source_html": `Here you have <sh-tag element="b" raw="&lt;b&gt;"/>bold<sh-tag element="/b" raw="&lt;/b&gt;"/> text.`,
		"target_html": `Hier haben Sie <sh-tag element="b" raw="&lt;b&gt;"/>fetten<sh-tag element="/b" raw="&lt;/b&gt;"/> Text.`,
		"quality":     70,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/memory/translations?segmentStrippedText=Here+you+have+bold+text.&lang_source=en&lang_target=de", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, "Hier haben Sie fetten Text.", got[0]["trSegmentStrippedText"])
	require.Equal(t, float64(70), got[0]["quality"])
}

func TestLookupNoMatchIsNoContent(t *testing.T) {
	r := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/memory/translations?segmentStrippedText=nothing+stored&lang_source=en&lang_target=de", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Empty(t, w.Body.String())
}

func TestLookupOrdersByQuality(t *testing.T) {
	r := newTestServer(t)

	for _, q := range []int{40, 90, 60} {
		w := postUnit(t, r, map[string]any{
			"lang_source": "en",
			"lang_target": "fr",
			"source_html": "Same sentence.",
			"target_html": "Variante.",
			"quality":     q,
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/memory/translations?segmentStrippedText=Same+sentence.&lang_source=en&lang_target=fr", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 3)
	require.Equal(t, float64(90), got[0]["quality"])
	require.Equal(t, float64(60), got[1]["quality"])
	require.Equal(t, float64(40), got[2]["quality"])
}

func TestLookupMatchesCaseInsensitive(t *testing.T) {
	r := newTestServer(t)

	w := postUnit(t, r, map[string]any{
		"lang_source": "en",
		"lang_target": "de",
		"source_html": "Hello World",
		"target_html": "Hallo Welt",
		"quality":     50,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/memory/translations?segmentStrippedText=hello+world&lang_source=en&lang_target=de", nil)
	r.ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code)
}

func TestLookupIsolatesLanguagePairs(t *testing.T) {
	r := newTestServer(t)

	w := postUnit(t, r, map[string]any{
		"lang_source": "en",
		"lang_target": "de",
		"source_html": "Shared sentence.",
		"target_html": "Geteilter Satz.",
		"quality":     80,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w2 := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/memory/translations?segmentStrippedText=Shared+sentence.&lang_source=en&lang_target=fr", nil)
	r.ServeHTTP(w2, req)
	require.Equal(t, http.StatusNoContent, w2.Code)
}

func TestCreateUnitValidation(t *testing.T) {
	r := newTestServer(t)

	w := postUnit(t, r, map[string]any{
		"lang_source": "en",
		"lang_target": "de",
		"source_html": "",
		"target_html": "x",
		"quality":     50,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = postUnit(t, r, map[string]any{
		"lang_source": "en",
		"lang_target": "de",
		"source_html": "a",
		"target_html": "b",
		"quality":     500,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnitCRUD(t *testing.T) {
	r := newTestServer(t)

	w := postUnit(t, r, map[string]any{
		"lang_source": "en",
		"lang_target": "de",
		"source_html": "One.",
		"target_html": "Eins.",
		"quality":     30,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Unit struct {
			ID string `json:"id"`
		} `json:"unit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.Unit.ID)

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, httptest.NewRequest(http.MethodGet, "/memory/units/"+created.Unit.ID, nil))
	require.Equal(t, http.StatusOK, w2.Code)

	w3 := httptest.NewRecorder()
	r.ServeHTTP(w3, httptest.NewRequest(http.MethodDelete, "/memory/units/"+created.Unit.ID, nil))
	require.Equal(t, http.StatusOK, w3.Code)

	w4 := httptest.NewRecorder()
	r.ServeHTTP(w4, httptest.NewRequest(http.MethodGet, "/memory/units/"+created.Unit.ID, nil))
	require.Equal(t, http.StatusNotFound, w4.Code)
}
