package redact

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// DefaultNames are the first and family names masked when no list is given.
var DefaultNames = []string{
	"Aditya", "Rohit", "Siddharth", "Anubhav", "Pulak", "Abhijit", "Debarun",
	"Sonika", "Manish", "Mandal", "Arora", "Deshwal", "Pillai", "Banerjee",
	"Chaudhary", "Sharma", "Kumar", "Singh", "Patel", "Gupta", "Verma",
}

// DefaultCompanies are left untouched even next to a listed name.
var DefaultCompanies = []string{"Flipkart", "Puma", "Myntra", "PUMA"}

const companyWindow = 20

var (
	reEmail = regexp.MustCompile(`\b([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})\b`)
	rePhone = regexp.MustCompile(`\b(\d{10})\b`)
)

// Mapping is what pii_mapping.json holds: original value to placeholder.
type Mapping struct {
	Emails map[string]string `json:"emails"`
	Phones map[string]string `json:"phones"`
	Names  map[string]string `json:"names"`
}

// Masker replaces PII with numbered placeholders. The same value always
// maps to the same placeholder for the lifetime of the Masker.
type Masker struct {
	mu        sync.Mutex
	emails    map[string]string
	phones    map[string]string
	names     map[string]string
	patterns  []*regexp.Regexp
	companies []string
}

type Option func(*Masker)

// WithNames replaces the list of names to mask.
func WithNames(names ...string) Option {
	return func(m *Masker) { m.patterns = namePatterns(names) }
}

// WithCompanies replaces the list of company names to preserve.
func WithCompanies(companies ...string) Option {
	return func(m *Masker) { m.companies = companies }
}

func NewMasker(opts ...Option) *Masker {
	m := &Masker{
		emails:    map[string]string{},
		phones:    map[string]string{},
		names:     map[string]string{},
		patterns:  namePatterns(DefaultNames),
		companies: DefaultCompanies,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func namePatterns(names []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out = append(out, regexp.MustCompile(`\b(`+regexp.QuoteMeta(n)+`(?:\s+[A-Z][a-z]+)?)\b`))
	}
	return out
}

// Mask applies email, phone and name masking in that order.
func (m *Masker) Mask(text string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	text = reEmail.ReplaceAllStringFunc(text, func(email string) string {
		id := placeholder(m.emails, email, "EMAIL")
		if _, domain, ok := strings.Cut(email, "@"); ok {
			return "[" + id + "]@" + domain
		}
		return "[" + id + "]"
	})
	text = rePhone.ReplaceAllStringFunc(text, func(phone string) string {
		return "[" + placeholder(m.phones, phone, "PHONE") + "]"
	})
	for _, re := range m.patterns {
		text = m.maskNames(text, re)
	}
	return text
}

func (m *Masker) maskNames(text string, re *regexp.Regexp) string {
	idx := re.FindAllStringIndex(text, -1)
	if len(idx) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, loc := range idx {
		if m.nearCompany(text, loc[0], loc[1]) {
			continue
		}
		b.WriteString(text[last:loc[0]])
		b.WriteString("[" + placeholder(m.names, text[loc[0]:loc[1]], "PERSON") + "]")
		last = loc[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func (m *Masker) nearCompany(text string, start, end int) bool {
	lo, hi := max(0, start-companyWindow), min(len(text), end+companyWindow)
	window := text[lo:hi]
	for _, c := range m.companies {
		if strings.Contains(window, c) {
			return true
		}
	}
	return false
}

func placeholder(seen map[string]string, value, kind string) string {
	if id, ok := seen[value]; ok {
		return id
	}
	id := fmt.Sprintf("%s_%d", kind, len(seen)+1)
	seen[value] = id
	return id
}

// Mapping returns a copy of every substitution made so far.
func (m *Masker) Mapping() Mapping {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Mapping{
		Emails: copyMap(m.emails),
		Phones: copyMap(m.phones),
		Names:  copyMap(m.names),
	}
}

// SaveMapping writes the mapping as indented JSON.
func (m *Masker) SaveMapping(path string) error {
	b, err := json.MarshalIndent(m.Mapping(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
