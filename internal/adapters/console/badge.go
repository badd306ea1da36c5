package console

import (
	"github.com/bnema/camlink/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

type badgeStyles struct {
	base   lipgloss.Style
	colors map[domain.Indicator]lipgloss.Color
}

func newBadgeStyles() badgeStyles {
	return badgeStyles{
		base: lipgloss.NewStyle().Bold(true).Padding(0, 1),
		colors: map[domain.Indicator]lipgloss.Color{
			domain.IndicatorBoot:      lipgloss.Color("241"),
			domain.IndicatorIdle:      lipgloss.Color("245"),
			domain.IndicatorPending:   lipgloss.Color("220"),
			domain.IndicatorLinkOK:    lipgloss.Color("39"),
			domain.IndicatorScanOK:    lipgloss.Color("42"),
			domain.IndicatorDetectHit: lipgloss.Color("201"),
			domain.IndicatorError:     lipgloss.Color("203"),
			domain.IndicatorTimeout:   lipgloss.Color("208"),
		},
	}
}

func (b badgeStyles) render(state domain.Indicator) string {
	style := b.base
	if color, ok := b.colors[state]; ok {
		style = style.Foreground(lipgloss.Color("0")).Background(color)
	}
	return style.Render(state.String())
}

// Badge renders the prompt badge for state.
func Badge(state domain.Indicator) string {
	return newBadgeStyles().render(state)
}
