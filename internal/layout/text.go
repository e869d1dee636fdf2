package layout

import (
	"strings"
	"unicode/utf8"
)

// Wrap greedily breaks text into lines of at most maxChars characters.
// Words are split on whitespace runs; a word longer than maxChars is kept
// whole on its own line.
func Wrap(text string, maxChars int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	var line strings.Builder
	lineLen := 0

	for _, w := range words {
		wLen := utf8.RuneCountInString(w)
		if lineLen > 0 && lineLen+1+wLen <= maxChars {
			line.WriteByte(' ')
			line.WriteString(w)
			lineLen += 1 + wLen
			continue
		}
		if lineLen == 0 && wLen <= maxChars {
			line.WriteString(w)
			lineLen = wLen
			continue
		}

		if lineLen > 0 {
			lines = append(lines, line.String())
			line.Reset()
		}
		line.WriteString(w)
		lineLen = wLen
	}

	if lineLen > 0 {
		lines = append(lines, line.String())
	}

	return lines
}

// EstimateWidth approximates the rendered width of s at the given size
func (w WidthEstimate) EstimateWidth(s string, size float64, bold bool) float64 {
	factor := w.Regular
	if bold {
		factor = w.Bold
	}
	return float64(utf8.RuneCountInString(s)) * factor * size * w.Tuning
}
