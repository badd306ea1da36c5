package stats

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/bnema/camlink/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Card is what the session card shows.
type Card struct {
	Link  domain.LinkConfig
	Stats domain.Stats
	Auto  domain.AutoScanConfig
	// Last is the event that ended the most recent request, if any.
	Last *domain.Event
	// Response is the most recent line received from the module.
	Response string
}

type RenderOptions struct {
	BarWidth int
}

const defaultBarWidth = 24

func renderView(card Card, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("camlink session"),
		s.header.Render("link: " + card.Link.String()),
	}

	if card.Last != nil {
		lines = append(lines, s.section.Render(outcomeLine(*card.Last, s)))
	}

	width := opts.BarWidth
	if width <= 0 {
		width = defaultBarWidth
	}

	body := []string{
		replyLine(card.Stats, width, s),
		counterLine(card.Stats, s),
		okLine(card.Stats, s),
		autoLine(card.Auto, s),
	}
	lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, body...)))

	if response := strings.TrimSpace(card.Response); response != "" {
		lines = append(lines, s.section.Render(s.faint.Render(response)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func outcomeLine(event domain.Event, s styles) string {
	label := s.key.Render(fmt.Sprintf("%s %s:", event.Command, event.RequestID))
	outcome := event.Outcome()

	switch event.Kind {
	case domain.EventTimedOut:
		return label + " " + s.warning.Render(fmt.Sprintf("timeout (>%d ms)", event.Timeout.Milliseconds()))
	case domain.EventMatched:
		style := s.good
		if !event.Class.Success {
			style = s.warning
		}
		return label + " " + style.Render(outcome) + " " +
			s.value.Render(fmt.Sprintf("(rtt %d ms)", event.RoundTrip.Milliseconds()))
	default:
		return label + " " + s.value.Render(outcome)
	}
}

func replyLine(st domain.Stats, width int, s styles) string {
	percent := 0.0
	if st.Sent > 0 {
		percent = clampPercent(100 * float64(st.Received) / float64(st.Sent))
	}

	meta := lipgloss.NewStyle().Foreground(interpolateColor(percent, 0, 100)).
		Render(fmt.Sprintf("%3.0f%% answered", percent))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.key.Render("replies:"),
		" ",
		renderProgressBar(percent, width, s),
		" ",
		meta,
	)
}

func counterLine(st domain.Stats, s styles) string {
	line := s.value.Render(fmt.Sprintf("tx=%d rx=%d timeouts=%d errors=%d hits=%d last_rtt_ms=%d",
		st.Sent, st.Received, st.Timeouts, st.ProtocolErrors, st.DetectionHits, st.LastRoundTrip.Milliseconds()))
	if st.Timeouts > 0 || st.ProtocolErrors > 0 {
		line += " " + s.warning.Render("[degraded]")
	}
	return line
}

func okLine(st domain.Stats, s styles) string {
	if len(st.CommandOK) == 0 {
		return s.faint.Render("ok: none")
	}

	commands := make([]string, 0, len(st.CommandOK))
	for command := range st.CommandOK {
		commands = append(commands, command)
	}
	sort.Strings(commands)

	parts := make([]string, 0, len(commands))
	for _, command := range commands {
		parts = append(parts, fmt.Sprintf("%s=%d", strings.ToLower(command), st.CommandOK[command]))
	}
	return s.key.Render("ok:") + " " + s.value.Render(strings.Join(parts, " "))
}

func autoLine(auto domain.AutoScanConfig, s styles) string {
	if !auto.Enabled {
		return s.key.Render("auto:") + " " + s.faint.Render("off")
	}
	return s.key.Render("auto:") + " " + s.value.Render(fmt.Sprintf("every %d ms, %d frames, %s",
		auto.Period.Milliseconds(), auto.Frames, domain.ModeLabel(auto.Fast)))
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100))
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// interpolateColor walks the 256-colour greyscale ramp from 240 at min to 255 at max.
func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	return lipgloss.Color(fmt.Sprintf("%d", int(240+15*normalized)))
}
