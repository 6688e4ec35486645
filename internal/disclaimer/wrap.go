package disclaimer

import "strings"

// WrapText splits text into lines no wider than maxWidth points when
// rendered in the given font and size. Words are appended greedily; a single
// word wider than the column is placed alone on its own line, overflowing
// rather than looping or losing characters.
func WrapText(text string, f Font, size, maxWidth float64) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	lines := make([]string, 0, 1)
	cur := words[0]
	for _, w := range words[1:] {
		candidate := cur + " " + w
		if StringWidth(candidate, f, size) <= maxWidth {
			cur = candidate
			continue
		}
		lines = append(lines, cur)
		cur = w
	}
	return append(lines, cur)
}
