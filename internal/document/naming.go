// Package document manages certificate artifacts on disk: filing scanned
// PDFs into the intake root, relocating them into the permanent by-order and
// by-grade archive trees, and searching the archive.
package document

import (
	"regexp"
	"strings"
)

// Certificate filenames and archive paths are derived from these lot fields.
type LotInfo struct {
	Grade             string
	Shape             string
	Size              string
	MeltNumber        string
	CertificateNumber string
	CertificateDate   string
	Supplier          string
	OrderNumber       string
	CertificatePath   string
}

var (
	// Parenthesized standard references anywhere in the grade,
	// e.g. "08Х18Н10Т (ГОСТ 5632-2014)".
	parenStandardRe = regexp.MustCompile(`(?i)\(\s*(?:гост|ту|ост|din|en|iso)[^)]*\)`)
	// Trailing bare standard references, e.g. "30ХГСА ТУ 14-1-950-86".
	trailingStandardRe = regexp.MustCompile(`(?i)[\s,;-]*(?:гост|ту|ост|din|en|iso)[\s.]*\d[\d\s.,/:×x-]*$`)

	unsafeRe     = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// CleanGrade strips standard references (ГОСТ/ТУ/ОСТ/DIN/EN/ISO followed by
// digits and punctuation, parenthesized or trailing) from a grade string and
// trims trailing whitespace and dashes. Stripping repeats until the string
// settles, so a grade carrying stacked references cleans in one call and the
// result is stable under repetition; filenames and search criteria clean to
// the same value.
func CleanGrade(grade string) string {
	out := grade
	for {
		prev := out
		out = parenStandardRe.ReplaceAllString(out, "")
		out = trailingStandardRe.ReplaceAllString(out, "")
		out = strings.TrimRight(out, " \t-–—")
		if out == prev {
			break
		}
	}
	return strings.TrimSpace(out)
}

// FileName builds the deterministic certificate filename for a lot. Unsafe
// filesystem characters are substituted so the result is a single path
// element on every supported platform.
func FileName(lot LotInfo) string {
	parts := []string{
		strings.TrimSpace(lot.Size),
		strings.TrimSpace(lot.Shape),
		CleanGrade(lot.Grade),
	}
	if melt := strings.TrimSpace(lot.MeltNumber); melt != "" {
		parts = append(parts, "melt "+melt)
	}
	if cert := strings.TrimSpace(lot.CertificateNumber); cert != "" {
		parts = append(parts, "cert "+cert)
	}
	if supplier := strings.TrimSpace(lot.Supplier); supplier != "" {
		parts = append(parts, supplier)
	}
	if date := strings.TrimSpace(lot.CertificateDate); date != "" {
		parts = append(parts, date)
	}

	joined := strings.Join(nonEmpty(parts), " ")
	return sanitize(joined) + ".pdf"
}

// sizeShapeDir names the "{size} {shape}" archive subdirectory.
func sizeShapeDir(lot LotInfo) string {
	segment := strings.TrimSpace(strings.TrimSpace(lot.Size) + " " + strings.TrimSpace(lot.Shape))
	if segment == "" {
		segment = "unsized"
	}
	return sanitize(segment)
}

func gradeDir(lot LotInfo) string {
	grade := CleanGrade(lot.Grade)
	if grade == "" {
		grade = "ungraded"
	}
	return sanitize(grade)
}

func orderDir(lot LotInfo) string {
	order := strings.TrimSpace(lot.OrderNumber)
	if order == "" {
		return "no-order"
	}
	return sanitize(order)
}

func sanitize(s string) string {
	out := unsafeRe.ReplaceAllString(s, "_")
	out = multiSpaceRe.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
