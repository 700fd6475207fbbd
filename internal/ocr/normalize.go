package ocr

import (
	"regexp"
	"strings"
)

var (
	reSpaceRun  = regexp.MustCompile(`[ \t\f\v]+`)
	reRuleLine  = regexp.MustCompile(`^[_\-=~.]{3,}$`)
	reHyphenEOL = regexp.MustCompile(`([a-z])-\n([a-z])`)
	quoteFixer  = strings.NewReplacer("\u2018", "'", "\u2019", "'", "\u201c", `"`, "\u201d", `"`, "\u00a0", " ")
)

// Normalize tidies tesseract output line by line: runs of blanks become
// one space, ruled lines are dropped, words split by a hyphen at the end
// of a line are rejoined and consecutive blank lines collapse into one.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = quoteFixer.Replace(s)
	s = reHyphenEOL.ReplaceAllString(s, "$1$2")

	var b strings.Builder
	blank := false
	for _, ln := range strings.Split(s, "\n") {
		ln = strings.TrimSpace(reSpaceRun.ReplaceAllString(ln, " "))
		if reRuleLine.MatchString(ln) {
			continue
		}
		if ln == "" {
			blank = b.Len() > 0
			continue
		}
		if blank {
			b.WriteString("\n")
			blank = false
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(ln)
	}
	return b.String()
}
