package dashboard

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/tankdcs/internal/plant"
)

type styles struct {
	title    lipgloss.Style
	subtitle lipgloss.Style
	card     lipgloss.Style
	focused  lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	key      lipgloss.Style
	hint     lipgloss.Style
	running  lipgloss.Style
	paused   lipgloss.Style
	spill    lipgloss.Style
	status   map[plant.Status]lipgloss.Style
}

func newStyles(t Theme) styles {
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1).
		Width(cardWidth)

	return styles{
		title:    lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		subtitle: lipgloss.NewStyle().Foreground(t.Muted),
		card:     card,
		focused:  card.BorderForeground(t.Focus),
		label:    lipgloss.NewStyle().Foreground(t.Muted).Width(9),
		value:    lipgloss.NewStyle().Foreground(t.Text),
		key:      lipgloss.NewStyle().Foreground(t.Primary).Bold(true),
		hint:     lipgloss.NewStyle().Foreground(t.Muted),
		running:  lipgloss.NewStyle().Foreground(t.Stable).Bold(true),
		paused:   lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		spill:    lipgloss.NewStyle().Foreground(t.Spill).Bold(true),
		status: map[plant.Status]lipgloss.Style{
			plant.Stable:  lipgloss.NewStyle().Foreground(t.Stable).Bold(true),
			plant.Warning: lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
			plant.Alarm:   lipgloss.NewStyle().Foreground(t.Alarm).Bold(true).Blink(true),
		},
	}
}

// gauge draws the level as a bar with the control band marked by '|'.
func gauge(snap plant.Snapshot, lo, hi float64, width int) string {
	span := hi - lo
	if span <= 0 || width <= 0 {
		return ""
	}
	pos := func(v float64) int {
		i := int(math.Round((v - lo) / span * float64(width-1)))
		return max(0, min(width-1, i))
	}

	filled := pos(snap.Level)
	bar := []rune(strings.Repeat("█", filled+1) + strings.Repeat("░", width-filled-1))
	if snap.Level <= lo {
		bar[0] = '░'
	}
	bar[pos(snap.Low)] = '|'
	bar[pos(snap.High)] = '|'
	return string(bar)
}

// sparkline renders the tail of values in eighth-blocks scaled to [lo, hi].
func sparkline(values []float64, lo, hi float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}
	if len(values) > width {
		values = values[len(values)-width:]
	}

	span := hi - lo
	if span <= 0 {
		span = 1
	}
	var b strings.Builder
	for _, v := range values {
		idx := int((v - lo) / span * float64(len(chars)-1))
		b.WriteRune(chars[max(0, min(len(chars)-1, idx))])
	}
	return b.String()
}
