package disclaimer

// Glyph advance widths for the two built-in Type1 fonts used on the cover
// page, in 1/1000ths of the font size, covering the printable ASCII range
// 0x20..0x7E. Values are the standard Adobe core-font metrics; anything
// outside the range falls back to the font's average width.

// Font names a core PDF font resource on the cover page.
type Font int

const (
	Helvetica Font = iota
	HelveticaBold
)

const (
	asciiFirst = 0x20
	asciiLast  = 0x7E
)

var helveticaWidths = [95]int{
	278, 278, 355, 556, 556, 889, 667, 191, 333, 333, 389, 584, 278, 333,
	278, 278, 556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 278, 278,
	584, 584, 584, 556, 1015, 667, 667, 722, 722, 667, 611, 778, 722, 278,
	500, 667, 556, 833, 722, 778, 667, 778, 722, 667, 611, 722, 667, 944,
	667, 667, 611, 278, 278, 278, 469, 556, 333, 556, 556, 500, 556, 556,
	278, 556, 556, 222, 222, 500, 222, 833, 556, 556, 556, 556, 333, 500,
	278, 556, 500, 722, 500, 500, 500, 334, 260, 334, 584,
}

var helveticaBoldWidths = [95]int{
	278, 333, 474, 556, 556, 889, 722, 238, 333, 333, 389, 584, 278, 333,
	278, 278, 556, 556, 556, 556, 556, 556, 556, 556, 556, 556, 333, 333,
	584, 584, 584, 611, 975, 722, 722, 722, 722, 667, 611, 778, 722, 278,
	556, 722, 611, 833, 722, 778, 667, 778, 722, 667, 611, 722, 667, 944,
	667, 667, 611, 333, 278, 333, 584, 556, 333, 556, 611, 556, 611, 556,
	333, 611, 611, 278, 278, 556, 278, 889, 611, 611, 611, 611, 389, 556,
	333, 611, 556, 778, 556, 556, 500, 389, 280, 389, 584,
}

const averageWidth = 556

func glyphWidth(f Font, r rune) int {
	if r < asciiFirst || r > asciiLast {
		return averageWidth
	}
	if f == HelveticaBold {
		return helveticaBoldWidths[r-asciiFirst]
	}
	return helveticaWidths[r-asciiFirst]
}

// StringWidth measures the rendered width of s at the given font size, in
// page points.
func StringWidth(s string, f Font, size float64) float64 {
	var units int
	for _, r := range s {
		units += glyphWidth(f, r)
	}
	return float64(units) * size / 1000
}
