package stats

import (
	"testing"
	"time"

	"github.com/bnema/camlink/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderMatchedProbe(t *testing.T) {
	output, err := Render(Card{
		Link: domain.LinkConfig{Driver: domain.DriverBugst, Device: "/dev/ttyUSB0", Baud: 115200},
		Stats: domain.Stats{
			Sent:          4,
			Received:      3,
			DetectionHits: 1,
			CommandOK:     map[string]uint32{"PING": 1, "SCAN": 2},
			LastRoundTrip: 42 * time.Millisecond,
		},
		Last: &domain.Event{
			Kind:      domain.EventMatched,
			RequestID: "4",
			Command:   "SCAN",
			RoundTrip: 42 * time.Millisecond,
			Class:     domain.Classification{MatchesPending: true, Success: true, IsDetectionHit: true},
		},
		Response: `{"req_id":"4","ok":true}`,
	}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "camlink session")
	assert.Contains(t, output, "link: /dev/ttyUSB0 @ 115200 (bugst)")
	assert.Contains(t, output, "SCAN 4: hit (rtt 42 ms)")
	assert.Contains(t, output, " 75% answered")
	assert.Contains(t, output, "tx=4 rx=3 timeouts=0 errors=0 hits=1 last_rtt_ms=42")
	assert.Contains(t, output, "ok: ping=1 scan=2")
	assert.Contains(t, output, "auto: off")
	assert.Contains(t, output, `{"req_id":"4","ok":true}`)
	assert.NotContains(t, output, "[degraded]")
}

func TestRenderTimedOutProbe(t *testing.T) {
	output, err := Render(Card{
		Link:  domain.LinkConfig{Driver: domain.DriverEmulator, Device: "emulator", Baud: 115200},
		Stats: domain.Stats{Sent: 1, Timeouts: 1},
		Last: &domain.Event{
			Kind:      domain.EventTimedOut,
			RequestID: "1",
			Command:   "PING",
			Timeout:   1800 * time.Millisecond,
		},
	}, RenderOptions{BarWidth: 10})

	require.NoError(t, err)
	assert.Contains(t, output, "PING 1: timeout (>1800 ms)")
	assert.Contains(t, output, "  0% answered")
	assert.Contains(t, output, "[----------]")
	assert.Contains(t, output, "[degraded]")
	assert.Contains(t, output, "ok: none")
}

func TestRenderAutoScanLine(t *testing.T) {
	output, err := Render(Card{
		Auto: domain.AutoScanConfig{Enabled: true, Period: 500 * time.Millisecond, Frames: 2, Fast: true},
	}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "auto: every 500 ms, 2 frames, FAST")
	assert.NotContains(t, output, "rtt")
}

func TestRenderProgressBar(t *testing.T) {
	s := newStyles()

	tests := []struct {
		name    string
		percent float64
		want    string
	}{
		{name: "empty", percent: 0, want: "[----]"},
		{name: "half", percent: 50, want: "[==--]"},
		{name: "full", percent: 100, want: "[====]"},
		{name: "over", percent: 140, want: "[====]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, renderProgressBar(tt.percent, 4, s))
		})
	}
}
