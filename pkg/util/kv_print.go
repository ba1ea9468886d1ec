package util

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	ColorCritical = lipgloss.Color("#cc0000")
	ColorWarning  = lipgloss.Color("#e69138")
	ColorOk       = lipgloss.Color("#04B575")
	ColorUnknown  = lipgloss.Color("#68228B")
)

func OkStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorOk)
}

func WarningStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorWarning)
}

func CriticalStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorCritical)
}

// KeyValuePair is one line of a report. Value is rendered with Format and
// colored by Style, which sees the raw values. A nil Style renders plain.
type KeyValuePair struct {
	Key    string
	Format string
	Value  []any
	Style  func(value []any) lipgloss.Style
}

// PrintKeyValues renders pairs as an aligned two-column list.
func PrintKeyValues(pairs []KeyValuePair) string {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p.Key))
	}

	keyStyle := lipgloss.NewStyle().Bold(true).Width(width + 2)
	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		format := p.Format
		if format == "" {
			format = strings.TrimSpace(strings.Repeat("%v ", len(p.Value)))
		}
		value := fmt.Sprintf(format, p.Value...)
		if p.Style != nil {
			value = p.Style(p.Value).Render(value)
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, keyStyle.Render(p.Key+":"), value))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// ThresholdStyle colors a non-negative count: zero is ok, anything up to warn
// is a warning and above it critical.
func ThresholdStyle(warn uint64) func([]any) lipgloss.Style {
	return func(value []any) lipgloss.Style {
		if len(value) == 0 {
			return lipgloss.NewStyle().Foreground(ColorUnknown)
		}
		n, ok := value[0].(uint64)
		switch {
		case !ok:
			return lipgloss.NewStyle().Foreground(ColorUnknown)
		case n == 0:
			return OkStyle()
		case n <= warn:
			return WarningStyle()
		}
		return CriticalStyle()
	}
}
