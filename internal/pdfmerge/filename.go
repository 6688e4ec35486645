package pdfmerge

import "strings"

// DownloadFilename derives the browser-facing filename for a merged
// document: the title with every non-alphanumeric rune collapsed to an
// underscore, then the plan name and the .pdf extension.
func DownloadFilename(title, planName string) string {
	var b strings.Builder
	for _, r := range title {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String() + "_" + planName + ".pdf"
}
