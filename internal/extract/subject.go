package extract

import "strings"

// ExtractSubject returns the first "Subject:" line or the text after
// "Mail - " (browser print headers), whichever comes first, falling back to
// the first non-empty line.
func ExtractSubject(text string) string {
	first := ""
	for _, ln := range strings.Split(text, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || isPageHeader(ln) {
			continue
		}
		if first == "" {
			first = ln
		}
		if rest, ok := strings.CutPrefix(ln, "Subject:"); ok {
			return strings.TrimSpace(rest)
		}
		if _, rest, ok := strings.Cut(ln, "Mail - "); ok {
			return strings.TrimSpace(rest)
		}
	}
	return first
}

func isPageHeader(ln string) bool {
	return strings.HasPrefix(ln, "--- ") && strings.HasSuffix(ln, " ---")
}
