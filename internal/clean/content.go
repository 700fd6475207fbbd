package clean

import (
	"log/slog"
	"regexp"
	"strings"
)

var disclaimerPhrases = []string{
	"this email and any files transmitted with it are confidential",
	"if you are not the intended recipient",
	"please notify the sender immediately",
	"delete this email",
	"unauthorized use",
	"confidentiality notice",
	"privileged communication",
	"disclaimer",
	"caution: external email",
	"think before you click",
}

// Subject is intentionally absent; the first Subject line is kept.
var headerPrefixes = []string{"From:", "To:", "Cc:", "Bcc:", "Sent:", "Date:"}

var (
	reSeparator  = regexp.MustCompile(`^\s*-{5,}\s*$`)
	reForwarded  = regexp.MustCompile(`(?i)begin forwarded message:?|-+\s*forwarded message\s*-+`)
	rePageCount  = regexp.MustCompile(`^\d+/\d+$`)
	reBlankLines = regexp.MustCompile(`\n{3,}`)
	reGmailNoise = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*\[image:.*?\]\s*$`),
		regexp.MustCompile(`(?i)^\s*\[cid:.*?\]\s*$`),
		regexp.MustCompile(`(?i)^\s*<image\d+\..*?>\s*$`),
		regexp.MustCompile(`\[Quoted text hidden\]`),
		regexp.MustCompile(`https://mail\.google\.com/mail/u/`),
	}
)

// Filter transforms text; filters run in order.
type Filter interface {
	Name() string
	Clean(text string) string
}

// ContentCleaner strips email chrome from extracted PDF text.
type ContentCleaner struct {
	filters []Filter
	logger  *slog.Logger
}

func NewContentCleaner(logger *slog.Logger) *ContentCleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentCleaner{
		filters: []Filter{HeaderFilter{}, DisclaimerFilter{}, NoiseFilter{}},
		logger:  logger,
	}
}

// Clean applies every filter, collapses runs of blank lines and trims.
func (c *ContentCleaner) Clean(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	before := len(text)
	for _, f := range c.filters {
		text = f.Clean(text)
	}
	text = reBlankLines.ReplaceAllString(text, "\n\n")
	text = strings.TrimSpace(text)
	c.logger.Debug("clean.content", "before_chars", before, "after_chars", len(text))
	return text
}

// HeaderFilter drops From/To/Cc/Bcc/Sent/Date lines and every Subject
// line after the first.
type HeaderFilter struct{}

func (HeaderFilter) Name() string { return "headers" }

func (HeaderFilter) Clean(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	subject := false
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if hasAnyPrefix(s, headerPrefixes) {
			continue
		}
		if strings.HasPrefix(strings.ToLower(s), "subject:") {
			if subject {
				continue
			}
			subject = true
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// DisclaimerFilter drops disclaimer blocks. A block starts at a line that
// looks like a disclaimer and runs until a blank or separator line.
type DisclaimerFilter struct{}

func (DisclaimerFilter) Name() string { return "disclaimers" }

func (DisclaimerFilter) Clean(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	in := false
	for _, line := range lines {
		if LooksLikeDisclaimer(line) {
			in = true
			continue
		}
		if in {
			if strings.TrimSpace(line) == "" || reSeparator.MatchString(line) {
				in = false
			}
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// LooksLikeDisclaimer reports whether s carries two or more disclaimer
// phrases, starts with "disclaimer:"/"caution:", or is a long run-on line
// holding any phrase.
func LooksLikeDisclaimer(s string) bool {
	low := strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if low == "" {
		return false
	}
	if strings.HasPrefix(low, "disclaimer:") || strings.HasPrefix(low, "caution:") {
		return true
	}
	n := 0
	for _, p := range disclaimerPhrases {
		if strings.Contains(low, p) {
			n++
		}
	}
	if n >= 2 {
		return true
	}
	return n == 1 && len(s) > 500
}

// NoiseFilter drops gmail print artefacts, forwarded-message markers,
// "n/m" page counters and dash separators.
type NoiseFilter struct{}

func (NoiseFilter) Name() string { return "noise" }

func (NoiseFilter) Clean(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		s := strings.TrimSpace(line)
		if s == "" {
			out = append(out, line)
			continue
		}
		if reSeparator.MatchString(s) || reForwarded.MatchString(s) || rePageCount.MatchString(s) {
			continue
		}
		if isGmailNoise(s) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func isGmailNoise(s string) bool {
	for _, re := range reGmailNoise {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
