package ocr

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranayab18/Data-Extraction/internal/common"
)

type call struct {
	name string
	args []string
}

// fakeRunner renders the configured page count for pdftoppm and echoes the
// image name from tesseract.
type fakeRunner struct {
	mu        sync.Mutex
	calls     []call
	pages     int
	text      string
	failImage string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: args})
	f.mu.Unlock()

	switch name {
	case "pdftotext":
		return []byte(f.text), nil, nil
	case "pdftoppm":
		prefix := args[len(args)-1]
		first, last := 1, f.pages
		for i, a := range args {
			if a == "-f" {
				first = atoi(args[i+1])
			}
			if a == "-l" {
				last = atoi(args[i+1])
			}
		}
		for p := first; p <= last; p++ {
			if err := os.WriteFile(prefix+"-"+itoa(p)+".png", []byte("png"), 0o644); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, nil
	case "tesseract":
		img := filepath.Base(args[0])
		if img == f.failImage {
			return nil, []byte("bad image"), errors.New("exit status 1")
		}
		if args[len(args)-1] == "tsv" {
			return []byte("level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
				"5\t1\t1\t1\t1\t1\t0\t0\t1\t1\t90\tfoo\n" +
				"5\t1\t1\t1\t1\t2\t0\t0\t1\t1\t70\tbar\n"), nil, nil
		}
		return []byte("text   of\t" + img + "\r\n\n\n\n-----\nend"), nil, nil
	}
	return nil, nil, errors.New("unexpected command " + name)
}

func (f *fakeRunner) find(name string) []call {
	var out []call
	for _, c := range f.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func itoa(n int) string {
	if n < 10 {
		return string(rune('0' + n))
	}
	return itoa(n/10) + string(rune('0'+n%10))
}

func TestPDFToText_SplitsPages(t *testing.T) {
	fr := &fakeRunner{text: "first page\fsecond page\f"}
	e := NewExtractor(Config{}, nil, WithRunner(fr))

	pages, err := e.PDFToText(t.Context(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{"first page", "second page"}, pages)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "-eol", "unix", "doc.pdf", "-"}, fr.calls[0].args)
}

func TestOCRPages_AllPages(t *testing.T) {
	fr := &fakeRunner{pages: 3}
	e := NewExtractor(Config{Language: "eng+hin", PSM: 6}, nil, WithRunner(fr))

	pages, warns, err := e.OCRPages(t.Context(), "scan.pdf", nil)
	require.NoError(t, err)
	assert.Empty(t, warns)
	require.Len(t, pages, 3)
	for i, p := range pages {
		assert.Equal(t, i+1, p.Number)
		assert.Equal(t, "text of page-"+itoa(i+1)+".png\n\nend", p.Text)
	}

	pp := fr.find("pdftoppm")
	require.Len(t, pp, 1)
	assert.Equal(t, []string{"-r", "200", "-png", "scan.pdf"}, pp[0].args[:4])

	ts := fr.find("tesseract")
	require.Len(t, ts, 3)
	assert.Equal(t, []string{"stdout", "-l", "eng+hin", "--psm", "6"}, ts[0].args[1:])
}

func TestOCRPages_SelectedPagesAndFailures(t *testing.T) {
	fr := &fakeRunner{pages: 5, failImage: "p4-4.png"}
	e := NewExtractor(Config{DPI: 300, TSVConfidence: true}, nil, WithRunner(fr))

	pages, warns, err := e.OCRPages(t.Context(), "scan.pdf", []int{4, 2})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 2, pages[0].Number)
	assert.InDelta(t, 0.8, pages[0].Confidence, 1e-6)
	require.Len(t, warns, 1)
	assert.Contains(t, warns[0], "page 4")

	pp := fr.find("pdftoppm")
	require.Len(t, pp, 2)
	assert.Equal(t, []string{"-r", "300", "-png", "-f", "4", "-l", "4"}, pp[0].args[:7])
}

func TestOCRPages_MaxPages(t *testing.T) {
	fr := &fakeRunner{pages: 4}
	e := NewExtractor(Config{MaxPages: 2}, nil, WithRunner(fr))
	pages, _, err := e.OCRPages(t.Context(), "scan.pdf", nil)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestOCRPages_NothingRendered(t *testing.T) {
	fr := &fakeRunner{pages: 0}
	e := NewExtractor(Config{}, nil, WithRunner(fr))
	_, warns, err := e.OCRPages(t.Context(), "scan.pdf", nil)
	require.Error(t, err)
	assert.Contains(t, strings.Join(warns, " "), "no images")
}

func TestNormalize(t *testing.T) {
	in := "a  b\t\tc   \r\nline2\n\n\n\n\nline3  "
	assert.Equal(t, "a b c\nline2\n\nline3", Normalize(in))
	assert.Equal(t, "", Normalize(""))

	in = "\n\nPrice drop claim for exam-\nple SKUs\n_______\n\u201cValid\u201d till\u00a0June"
	assert.Equal(t, "Price drop claim for example SKUs\n\"Valid\" till June", Normalize(in))
}

func TestToolError(t *testing.T) {
	err := toolError("tesseract", exec.ErrNotFound, nil)
	assert.ErrorIs(t, err, common.ErrUnsupportedInput)
	assert.Equal(t, "TOOL_MISSING", common.ErrorCode(err))

	boom := errors.New("exit status 1")
	err = toolError("pdftoppm", boom, []byte("  Syntax Error: bad xref \n"))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "pdftoppm: exit status 1: Syntax Error: bad xref", err.Error())
	assert.Equal(t, "pdftoppm: exit status 1", toolError("pdftoppm", boom, nil).Error())

	long := "x" + strings.Repeat("é", 600)
	msg := toolError("tesseract", boom, []byte(long)).Error()
	assert.True(t, utf8.ValidString(msg))
	assert.True(t, strings.HasSuffix(msg, "...(truncated)"))
}
