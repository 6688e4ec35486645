// Package disclaimer builds the licensing cover page that is prepended to
// every delivered report. The page is emitted directly as a one-page PDF
// using the built-in Helvetica fonts, so generation never touches network
// or storage.
package disclaimer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/bambooreports/securedelivery/internal/models"
)

const (
	pageWidth  = 612.0
	pageHeight = 792.0
	margin     = 40.0

	contentX = margin + 40
	// Column width available to wrapped text blocks.
	columnWidth = pageWidth - 2*margin - 80
)

// Page colors, RGB components in [0,1].
var (
	primaryColor = [3]float64{0.1, 0.1, 0.1}
	accentColor  = [3]float64{0.2, 0.6, 0.4}
	subtextColor = [3]float64{0.4, 0.4, 0.4}
	borderColor  = [3]float64{0.8, 0.8, 0.8}
)

const legalText = "This document is the intellectual property of Bamboo Reports (Legal Entity: ResearchNXT). " +
	"It is exclusively licensed for personal use to the specific user listed above. " +
	"Unauthorized distribution, copying, or public sharing of this document is strictly prohibited and monitored."

// Generate renders the cover page for one view or download request and
// returns the encoded PDF bytes. The output is always exactly one letter
// sized page; optional request fields that are absent produce no line at all.
func Generate(req models.DisclaimerRequest) ([]byte, error) {
	if err := validate(req); err != nil {
		return nil, &models.DocumentGenerationError{Err: err}
	}

	var c contentBuilder
	y := pageHeight - 80

	c.rect(margin, margin, pageWidth-2*margin, pageHeight-2*margin, 2, borderColor)

	c.centeredText("BAMBOO REPORTS", HelveticaBold, 28, y, accentColor)
	y -= 15
	c.centeredText("ResearchNXT", Helvetica, 14, y, subtextColor)
	y -= 60

	c.line(margin+20, y, pageWidth-margin-20, y, 1, borderColor)
	y -= 50

	c.text("REPORT DETAILS", HelveticaBold, 14, contentX, y, primaryColor)
	y -= 30

	c.text("Report Title:", HelveticaBold, 11, contentX, y, subtextColor)
	y -= 18
	for _, line := range WrapText(req.ReportTitle, HelveticaBold, 13, columnWidth) {
		c.text(line, HelveticaBold, 13, contentX, y, primaryColor)
		y -= 20
	}
	y -= 10

	// Optional fields are filtered out up front rather than branched over
	// inside the drawing sequence; an absent value leaves no blank line.
	details := []struct {
		label, value string
	}{
		{"Generated:", req.GeneratedAt},
		{"Plan:", req.PlanName},
		{"Document ID:", req.DocumentID},
	}
	for _, d := range details {
		if d.value == "" {
			continue
		}
		c.text(d.label, HelveticaBold, 11, contentX, y, subtextColor)
		y -= 18
		c.text(d.value, Helvetica, 12, contentX, y, primaryColor)
		y -= 25
	}
	y -= 25

	c.text("USER LICENSE INFORMATION", HelveticaBold, 14, contentX, y, primaryColor)
	y -= 30
	for _, d := range []struct {
		label, value string
	}{
		{"Licensed to:", req.LicenseeName},
		{"Email:", req.LicenseeEmail},
	} {
		c.text(d.label, HelveticaBold, 11, contentX, y, subtextColor)
		y -= 18
		c.text(d.value, Helvetica, 12, contentX, y, primaryColor)
		y -= 25
	}
	y -= 25

	c.text("LEGAL NOTICE", HelveticaBold, 14, contentX, y, primaryColor)
	y -= 30
	for _, line := range WrapText(legalText, Helvetica, 10, columnWidth) {
		c.text(line, Helvetica, 10, contentX, y, subtextColor)
		y -= 16
	}

	c.centeredText("Confidential Document | Bamboo Reports", Helvetica, 9, margin+30, subtextColor)

	return assemblePage(c.String())
}

func validate(req models.DisclaimerRequest) error {
	switch {
	case strings.TrimSpace(req.ReportTitle) == "":
		return fmt.Errorf("report title is required")
	case strings.TrimSpace(req.GeneratedAt) == "":
		return fmt.Errorf("generation timestamp is required")
	case strings.TrimSpace(req.LicenseeName) == "":
		return fmt.Errorf("licensee name is required")
	case strings.TrimSpace(req.LicenseeEmail) == "":
		return fmt.Errorf("licensee email is required")
	}
	return nil
}

// contentBuilder accumulates PDF content-stream operators.
type contentBuilder struct {
	b strings.Builder
}

func (c *contentBuilder) String() string { return c.b.String() }

func (c *contentBuilder) fontResource(f Font) string {
	if f == HelveticaBold {
		return "/F2"
	}
	return "/F1"
}

func (c *contentBuilder) text(s string, f Font, size, x, y float64, col [3]float64) {
	fmt.Fprintf(&c.b, "BT %s %.1f Tf %.2f %.2f %.2f rg %.2f %.2f Td (%s) Tj ET\n",
		c.fontResource(f), size, col[0], col[1], col[2], x, y, escapeText(s))
}

func (c *contentBuilder) centeredText(s string, f Font, size, y float64, col [3]float64) {
	x := (pageWidth - StringWidth(s, f, size)) / 2
	c.text(s, f, size, x, y, col)
}

func (c *contentBuilder) line(x1, y1, x2, y2, width float64, col [3]float64) {
	fmt.Fprintf(&c.b, "q %.2f %.2f %.2f RG %.1f w %.2f %.2f m %.2f %.2f l S Q\n",
		col[0], col[1], col[2], width, x1, y1, x2, y2)
}

func (c *contentBuilder) rect(x, y, w, h, lineWidth float64, col [3]float64) {
	fmt.Fprintf(&c.b, "q %.2f %.2f %.2f RG %.1f w %.2f %.2f %.2f %.2f re S Q\n",
		col[0], col[1], col[2], lineWidth, x, y, w, h)
}

// escapeText makes a string safe inside PDF literal-string parentheses and
// degrades glyphs the core fonts cannot render.
func escapeText(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '(':
			b.WriteString(`\(`)
		case r == ')':
			b.WriteString(`\)`)
		case r < asciiFirst || r > asciiLast:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// assemblePage wraps a content stream in the fixed object skeleton of a
// one-page document: catalog, page tree, page, contents and the two font
// resources, followed by the cross-reference table.
func assemblePage(content string) ([]byte, error) {
	if content == "" {
		return nil, &models.DocumentGenerationError{Err: fmt.Errorf("empty page content")}
	}

	var buf bytes.Buffer
	offsets := make([]int, 7)

	buf.WriteString("%PDF-1.4\n")
	buf.Write([]byte{'%', 0xe2, 0xe3, 0xcf, 0xd3, '\n'})

	writeObj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	writeObj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	writeObj(2, fmt.Sprintf("<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 %d %d] >>",
		int(pageWidth), int(pageHeight)))
	writeObj(3, "<< /Type /Page /Parent 2 0 R /Contents 4 0 R /Resources << /Font << /F1 5 0 R /F2 6 0 R >> >> >>")
	writeObj(4, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	writeObj(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	writeObj(6, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-Bold >>")

	xrefStart := buf.Len()
	buf.WriteString("xref\n0 7\n")
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= 6; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 7 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xrefStart)

	return buf.Bytes(), nil
}
