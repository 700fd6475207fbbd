package gridsearch

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	reWhitespace  = regexp.MustCompile(`\s+`)
	reDisclaimer  = regexp.MustCompile(`(?is)This email.*?confidential.*?\.|Disclaimer:.*?\.|CONFIDENTIALITY.*?\.|This message.*?intended.*?\.`)
	reURL         = regexp.MustCompile(`https?://\S+`)
	reEmail       = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	rePunctuation = regexp.MustCompile(`([!?,.]){2,}`)
)

// Preprocess shrinks a document before it is sent to a model: whitespace is
// collapsed and disclaimers, URLs, email addresses and repeated punctuation
// are removed.
func Preprocess(text string) string {
	text = reWhitespace.ReplaceAllString(text, " ")
	text = reDisclaimer.ReplaceAllString(text, "")
	text = reURL.ReplaceAllString(text, "")
	text = reEmail.ReplaceAllString(text, "")
	text = rePunctuation.ReplaceAllString(text, "$1")
	return strings.TrimSpace(reWhitespace.ReplaceAllString(text, " "))
}

// Truncate cuts text to at most max runes; max <= 0 disables it.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	return string([]rune(text)[:max])
}
