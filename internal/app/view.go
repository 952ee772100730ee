package app

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"github.com/nateberkopec/busysim/internal/registry"
)

const (
	cardContentWidth = 24
	// content + horizontal padding + border
	cardOuterWidth  = cardContentWidth + 2 + 2
	cardLines       = 3
	cardOuterHeight = cardLines + 2

	headerHeight = 2
	footerHeight = 2

	sliderWidth = 8
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("213"))
	taglineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("247"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1).
			Width(cardContentWidth + 2)
	selectedCardStyle = cardStyle.BorderForeground(lipgloss.Color("105"))

	iconStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("57"))
	bouncingIcon    = iconStyle.Background(lipgloss.Color("203"))
	badgeStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("196"))
	nameStyle       = lipgloss.NewStyle()
	activeNameStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("120"))
	sliderStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	statusNeutralStyle = lipgloss.NewStyle()
	statusErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	statusSuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("120"))

	aboutStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("213")).
			Padding(1, 2).
			Width(60)
)

const aboutText = `Busy Simulator

Pretend you're busy by playing a bunch of app notification sounds.

Toggle an app to start its notifications. Use the sliders to increase the speed of the insanity or whatever.

Tip: turn "Original Sound" to On on Zoom for best effect.

Original by Brian Moore (https://twitter.com/lanewinfield)
Web version by CloudWaddie (https://github.com/cloudwaddie/BusySimulator)

[esc] close`

func renderView(m *Model) string {
	if m.width == 0 || m.height == 0 {
		return "Loading…"
	}
	if m.showAbout {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, aboutStyle.Render(aboutText))
	}

	var out []string
	out = append(out, renderHeader(m))
	out = append(out, renderGrid(m))
	out = append(out, renderStatusLine(m))
	out = append(out, m.help.View(m.keys))

	return strings.Join(out, "\n")
}

func renderHeader(m *Model) string {
	title := titleStyle.Render(pad("Busy Simulator", m.width))
	tagline := taglineStyle.Render(pad("Feign importance with repeating app sounds! Pick an app to begin.", m.width))
	return title + "\n" + tagline
}

func renderGrid(m *Model) string {
	entries := m.reg.Entries()
	cols := m.columns()
	rows := m.visibleRows()

	tiles := make([]string, 0, len(entries)+2)
	for i, e := range entries {
		tiles = append(tiles, renderAppCard(m, e, i == m.selectedIndex))
	}
	tiles = append(tiles, renderActionCard("■", "Stop all", len(entries) == m.selectedIndex))
	tiles = append(tiles, renderActionCard("?", "About", len(entries)+1 == m.selectedIndex))

	var lines []string
	for row := m.rowOffset; row < m.rowOffset+rows; row++ {
		start := row * cols
		if start >= len(tiles) {
			break
		}
		end := min(start+cols, len(tiles))
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, tiles[start:end]...))
	}

	grid := strings.Join(lines, "\n")
	height := rows * cardOuterHeight
	return lipgloss.NewStyle().Height(height).Render(grid)
}

func renderAppCard(m *Model, e registry.Entry, selected bool) string {
	icon := iconStyle
	if m.isBouncing(e.ID) {
		icon = bouncingIcon
	}
	head := icon.Render(" " + glyph(e.Name) + " ")
	if e.Count > 0 {
		badge := badgeStyle.Render(fmt.Sprintf(" %d ", e.Count))
		gap := cardContentWidth - lipgloss.Width(head) - lipgloss.Width(badge)
		head += strings.Repeat(" ", max(1, gap)) + badge
	}

	name := nameStyle
	if e.Active {
		name = activeNameStyle
	}
	label := truncate(e.Name, cardContentWidth)
	if e.Active {
		label = truncate("▶ "+e.Name, cardContentWidth)
	}

	body := strings.Join([]string{
		head,
		name.Render(label),
		sliderStyle.Render(renderSlider(e.Speed, m.speed.Min, m.speed.Max)),
	}, "\n")

	style := cardStyle
	if selected {
		style = selectedCardStyle
	}
	return style.Render(body)
}

func renderActionCard(symbol, label string, selected bool) string {
	body := strings.Join([]string{
		iconStyle.Render(" " + symbol + " "),
		label,
		"",
	}, "\n")
	style := cardStyle
	if selected {
		style = selectedCardStyle
	}
	return style.Render(body)
}

// renderSlider draws the speed slider. The left end is the fast end.
func renderSlider(speed, lo, hi int) string {
	filled := 0
	if hi > lo {
		clamped := min(max(speed, lo), hi)
		filled = (clamped - lo) * sliderWidth / (hi - lo)
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("─", sliderWidth-filled)
	return "Faster ▕" + bar + "▏Slower"
}

func renderStatusLine(m *Model) string {
	msg := m.status.text
	if msg == "" && m.loaded && m.reg.Len() > 0 {
		active := 0
		for _, e := range m.reg.Entries() {
			if e.Active {
				active++
			}
		}
		if active > 0 {
			msg = fmt.Sprintf("%d app(s) buzzing", active)
		}
	}

	style := statusNeutralStyle
	switch m.status.kind {
	case statusError:
		style = statusErrorStyle
	case statusSuccess:
		style = statusSuccessStyle
	}

	return style.Width(m.width).Render(pad(msg, m.width))
}

// glyph picks the letter shown in place of the app icon.
func glyph(name string) string {
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return string(unicode.ToUpper(r))
		}
	}
	return "•"
}

func truncate(text string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(text) <= width {
		return text
	}
	if width <= 1 {
		return lipgloss.NewStyle().MaxWidth(1).Render(text)
	}
	trimmed := lipgloss.NewStyle().MaxWidth(width - 1).Render(text)
	return trimmed + "…"
}

func pad(text string, width int) string {
	if width <= 0 {
		return text
	}
	return lipgloss.NewStyle().Width(width).Render(text)
}
