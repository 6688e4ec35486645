package disclaimer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapText_ShortStringSingleLine(t *testing.T) {
	lines := WrapText("Quarterly Snapshot", Helvetica, 12, columnWidth)
	require.Len(t, lines, 1)
	assert.Equal(t, "Quarterly Snapshot", lines[0])
}

func TestWrapText_LinesFitWidth(t *testing.T) {
	text := "This document is exclusively licensed for personal use to the specific user listed above and may not be redistributed"
	lines := WrapText(text, Helvetica, 10, 200)

	require.Greater(t, len(lines), 1)
	for _, line := range lines {
		assert.LessOrEqual(t, StringWidth(line, Helvetica, 10), 200.0, "line %q overflows", line)
	}
	assert.Equal(t, text, strings.Join(lines, " "), "wrapping must not lose or reorder words")
}

func TestWrapText_OverlongWordGetsOwnLine(t *testing.T) {
	long := strings.Repeat("x", 120)
	lines := WrapText("start "+long+" end", Helvetica, 12, 100)

	require.GreaterOrEqual(t, len(lines), 3)
	assert.Contains(t, lines, long, "an unbreakable word stands alone on its line")
}

func TestWrapText_EmptyInput(t *testing.T) {
	assert.Nil(t, WrapText("", Helvetica, 12, columnWidth))
	assert.Nil(t, WrapText("   ", Helvetica, 12, columnWidth))
}

func TestStringWidth_BoldWiderThanRegular(t *testing.T) {
	s := "REPORT DETAILS"
	assert.Greater(t, StringWidth(s, HelveticaBold, 12), StringWidth(s, Helvetica, 12))
}

func TestStringWidth_ScalesWithSize(t *testing.T) {
	s := "Bamboo Reports"
	assert.InDelta(t, 2*StringWidth(s, Helvetica, 10), StringWidth(s, Helvetica, 20), 0.001)
}
