// Package memory holds the translation-memory lookup client and the
// suggestion applier. Both are stateless services operating through the
// pair registry's handle; neither caches segment content across calls.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"segmenthub/pkg/models"
)

var (
	// ErrNoMatches is the memory service's explicit "no translations
	// found" answer (a 204), distinct from an empty suggestion list.
	ErrNoMatches = errors.New("no matches")
	// ErrLookupFailed covers transport failures and unexpected
	// statuses. The client never retries; retry policy belongs to the
	// caller.
	ErrLookupFailed = errors.New("lookup failed")
)

// LookupRequest keys a lookup by segment content and language pair.
type LookupRequest struct {
	StrippedText string
	MaskedHTML   string
	LangSource   string
	LangTarget   string
}

// Client queries the external translation-memory service. It is
// stateless between calls; each call is independently cancellable
// through its context.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

func NewClient(baseURL string) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		BaseURL: baseURL,
	}
}

// Wire shape of one candidate from the memory service.
type wireSuggestion struct {
	TrSegmentHTMLText     string `json:"trSegmentHtmlText"`
	TrSegmentStrippedText string `json:"trSegmentStrippedText"`
	Quality               int    `json:"quality"`
	SourceSegmentID       string `json:"sourceSegmentId"`
	TargetSegmentID       string `json:"targetSegmentId"`
}

// Lookup fetches candidate translations for one segment. The service
// orders candidates; the client does not re-rank. A 200 with an empty
// array comes back as an empty slice, a 204 as ErrNoMatches, anything
// else as ErrLookupFailed.
func (c *Client) Lookup(ctx context.Context, req LookupRequest) ([]models.Suggestion, error) {
	u, err := url.Parse(c.BaseURL + "/memory/translations")
	if err != nil {
		return nil, fmt.Errorf("memory base url: %w", err)
	}
	q := u.Query()
	q.Set("segmentStrippedText", req.StrippedText)
	q.Set("segmentHtmlText", req.MaskedHTML)
	q.Set("lang_source", req.LangSource)
	q.Set("lang_target", req.LangTarget)
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, ErrNoMatches
	default:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrLookupFailed, resp.StatusCode)
	}

	var wire []wireSuggestion
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrLookupFailed, err)
	}

	out := make([]models.Suggestion, 0, len(wire))
	for _, w := range wire {
		out = append(out, models.Suggestion{
			MaskedHTML:    w.TrSegmentHTMLText,
			StrippedText:  w.TrSegmentStrippedText,
			Quality:       w.Quality,
			SourceUnitRef: w.SourceSegmentID,
			TargetUnitRef: w.TargetSegmentID,
		})
	}
	return out, nil
}
