package compositor

import "strings"

// SplitAmountInWords breaks text at the last word boundary that keeps the
// first line within width. Everything after it goes to the second line.
// When not even the first word fits, the first line is empty.
func SplitAmountInWords(text string, width, fontSize float64, m Measurer) (line1, line2 string) {
	words := strings.Fields(text)
	for i := range words {
		candidate := strings.Join(words[:i+1], " ")
		if m.Measure(candidate, fontSize, false) > width {
			return strings.Join(words[:i], " "), strings.Join(words[i:], " ")
		}
	}
	return strings.Join(words, " "), ""
}
