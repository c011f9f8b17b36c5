package events_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"segmenthub/internal/events"
)

func TestHub_HistoryPerPair(t *testing.T) {
	hub := events.NewHub(10)

	hub.Publish(events.Event{Type: events.TypeSegmentActivated, PairID: "p1", SegmentID: "s1"})
	hub.Publish(events.Event{Type: events.TypeSegmentActivated, PairID: "p2", SegmentID: "s9"})
	hub.Publish(events.Event{Type: events.TypeSegmentCompleted, PairID: "p1", SegmentID: "s1"})

	h1 := hub.History("p1")
	assert.Len(t, h1, 2)
	assert.Equal(t, events.TypeSegmentActivated, h1[0].Type)
	assert.Equal(t, events.TypeSegmentCompleted, h1[1].Type)

	h2 := hub.History("p2")
	assert.Len(t, h2, 1)
	assert.Equal(t, "s9", h2[0].SegmentID)

	assert.Nil(t, hub.History("p3"))
}

func TestHub_HistoryBounded(t *testing.T) {
	hub := events.NewHub(3)

	for i := 0; i < 5; i++ {
		hub.Publish(events.Event{
			Type:      events.TypeSegmentActivated,
			PairID:    "p1",
			SegmentID: fmt.Sprintf("s%d", i),
		})
	}

	h := hub.History("p1")
	assert.Len(t, h, 3)
	assert.Equal(t, "s2", h[0].SegmentID)
	assert.Equal(t, "s4", h[2].SegmentID)
}

func TestHub_PublishStampsTime(t *testing.T) {
	hub := events.NewHub(0)
	hub.Publish(events.Event{Type: events.TypeLookupFailed, PairID: "p1"})
	assert.False(t, hub.History("p1")[0].At.IsZero())
}

func TestHub_Stats(t *testing.T) {
	hub := events.NewHub(0)
	hub.Publish(events.Event{Type: events.TypePairRegistered, PairID: "p1"})

	s := hub.Stats()
	assert.Equal(t, 1, s.Rooms)
	assert.Equal(t, 0, s.WSClients)
	assert.Equal(t, 0, s.TCPClients)
}
