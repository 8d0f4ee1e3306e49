package apps

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryKeepsNewestFirst(t *testing.T) {
	h, err := NewHistory(3, []string{"house", "car"})
	require.NoError(t, err)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		h.Add(Event{ID: fmt.Sprintf("e%d", i), App: "house", At: start.Add(time.Duration(i) * time.Second)})
	}
	h.Add(Event{ID: "other", App: "car"})
	h.Add(Event{ID: "ignored", App: "boat"})

	events, ok := h.Recent("house")
	require.True(t, ok)
	require.Len(t, events, 3)
	assert.Equal(t, "e4", events[0].ID)
	assert.Equal(t, "e2", events[2].ID)

	events, ok = h.Recent("car")
	require.True(t, ok)
	assert.Len(t, events, 1)

	_, ok = h.Recent("boat")
	assert.False(t, ok)
}

func TestNewHistoryRejectsSize(t *testing.T) {
	_, err := NewHistory(0, []string{"house"})
	assert.Error(t, err)
}

func TestConfidenceBand(t *testing.T) {
	assert.Equal(t, "high", confidenceBand(0.9))
	assert.Equal(t, "medium", confidenceBand(0.85))
	assert.Equal(t, "medium", confidenceBand(0.61))
	assert.Equal(t, "low", confidenceBand(0.6))
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "₹ 1,234,567.89", formatAmount("₹ ", 1234567.891))
	assert.Equal(t, "12.50%", FormatPercent(0.125))
}
