package layout

import (
	"strings"
	"unicode/utf8"
)

// DefaultAvgCharWidth approximates a 12px sans-serif glyph.
const DefaultAvgCharWidth = 7.0

// Wrap breaks text into lines that fit pixelWidth using a character-count
// estimate. maxLines <= 0 means no limit.
func Wrap(text string, pixelWidth float64, maxLines int) []string {
	return WrapWith(text, pixelWidth, maxLines, DefaultAvgCharWidth)
}

// WrapWith is Wrap with an explicit average character width.
func WrapWith(text string, pixelWidth float64, maxLines int, avgCharWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		candidate := line + " " + word
		if EstimateWidth(candidate, avgCharWidth) < pixelWidth {
			line = candidate
			continue
		}
		lines = append(lines, line)
		line = word
	}
	lines = append(lines, line)

	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

// EstimateWidth is the pixel width Wrap assumes for s.
func EstimateWidth(s string, avgCharWidth float64) float64 {
	return float64(utf8.RuneCountInString(s)) * avgCharWidth
}
