package application

import (
	"fmt"

	"github.com/bnema/camlink/internal/domain"
)

// FormatStats renders the one-line statistics summary printed by the stats command.
func FormatStats(stats domain.Stats, pending bool, auto bool) string {
	return fmt.Sprintf(
		"stats tx=%d rx=%d timeouts=%d errors=%d ping_ok=%d info_ok=%d scan_ok=%d detect_hits=%d last_rtt_ms=%d pending=%s auto=%s",
		stats.Sent,
		stats.Received,
		stats.Timeouts,
		stats.ProtocolErrors,
		stats.OK("PING"),
		stats.OK("INFO"),
		stats.OK("SCAN"),
		stats.DetectionHits,
		stats.LastRoundTrip.Milliseconds(),
		yesNo(pending),
		onOff(auto),
	)
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
