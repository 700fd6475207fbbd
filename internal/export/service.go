package export

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/pranayab18/Data-Extraction/internal/llm"
)

const (
	SchemesSheet = "Schemes"
	SummarySheet = "Summary"
)

// Filter narrows the exported schemes. Zero value exports everything.
type Filter struct {
	From          *time.Time // extracted_at on or after this date
	To            *time.Time // extracted_at on or before this date
	SchemeType    string
	OnlyEscalated bool
}

// Service renders scheme headers as XLSX workbooks.
type Service struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger, now: time.Now}
}

type column struct {
	header string
	width  float64
	value  func(h llm.SchemeHeader) any
}

var columns = []column{
	{"Scheme ID", 12, func(h llm.SchemeHeader) any { return h.SchemeID }},
	{"Scheme Name", 36, func(h llm.SchemeHeader) any { return str(h.SchemeName) }},
	{"Scheme Description", 48, func(h llm.SchemeHeader) any { return truncate(str(h.SchemeDescription), 500) }},
	{"Vendor Name", 24, func(h llm.SchemeHeader) any { return str(h.VendorName) }},
	{"Scheme Type", 12, func(h llm.SchemeHeader) any { return h.SchemeType }},
	{"Scheme Subtype", 16, func(h llm.SchemeHeader) any { return h.SchemeSubtype }},
	{"Scheme Period", 10, func(h llm.SchemeHeader) any { return h.SchemePeriod }},
	{"Duration", 26, func(h llm.SchemeHeader) any { return str(h.Duration) }},
	{"Start Date", 12, func(h llm.SchemeHeader) any { return str(h.StartDate) }},
	{"End Date", 12, func(h llm.SchemeHeader) any { return str(h.EndDate) }},
	{"Price Drop Date", 12, func(h llm.SchemeHeader) any { return str(h.PriceDropDate) }},
	{"Discount Type", 18, func(h llm.SchemeHeader) any { return str(h.DiscountType) }},
	{"Max Cap", 14, func(h llm.SchemeHeader) any { return str(h.MaxCap) }},
	{"Discount Slab Type", 14, func(h llm.SchemeHeader) any { return str(h.DiscountSlabType) }},
	{"Brand Support Absolute", 14, func(h llm.SchemeHeader) any { return str(h.BrandSupportAbsolute) }},
	{"GST Rate", 10, func(h llm.SchemeHeader) any { return str(h.GSTRate) }},
	{"Additional Conditions", 48, func(h llm.SchemeHeader) any { return truncate(str(h.AdditionalConditions), 500) }},
	{"FSN File/Config File", 10, func(h llm.SchemeHeader) any { return h.FSNFileConfigFile }},
	{"Minimum of Actual Discount OR Agreed Claim", 10, func(h llm.SchemeHeader) any { return h.MinimumOfActualOrAgreed }},
	{"Remove GST from Final Claim", 10, func(h llm.SchemeHeader) any { return str(h.RemoveGSTFromFinalClaim) }},
	{"Over and Above", 10, func(h llm.SchemeHeader) any { return h.OverAndAbove }},
	{"Scheme Document", 10, func(h llm.SchemeHeader) any { return h.SchemeDocument }},
	{"Best Bet", 8, func(h llm.SchemeHeader) any { return str(h.BestBet) }},
	{"Confidence", 10, func(h llm.SchemeHeader) any { return h.Confidence }},
	{"Needs Escalation", 10, func(h llm.SchemeHeader) any { return yesNo(h.NeedsEscalation) }},
	{"Source File", 40, func(h llm.SchemeHeader) any { return str(h.SourceFile) }},
	{"Extracted At", 20, func(h llm.SchemeHeader) any {
		if h.ExtractedAt.IsZero() {
			return ""
		}
		return h.ExtractedAt.UTC().Format(time.DateTime)
	}},
}

// ExportSchemesXLSX returns a workbook with a Schemes sheet (one row per
// scheme) and a Summary sheet counting schemes per type and subtype.
func (s *Service) ExportSchemesXLSX(schemes []llm.SchemeHeader, filter Filter) ([]byte, error) {
	start := time.Now()
	rows := filter.apply(schemes)

	f := excelize.NewFile()
	defer f.Close()

	// Sheet1 becomes Schemes.
	if err := f.SetSheetName(f.GetSheetName(0), SchemesSheet); err != nil {
		return nil, err
	}
	for i, c := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SchemesSheet, cell, c.header)
		name, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(SchemesSheet, name, name, c.width)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(columns), 1)
		_ = f.SetCellStyle(SchemesSheet, "A1", last, style)
	}
	_ = f.SetPanes(SchemesSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	for r, h := range rows {
		for i, c := range columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			_ = f.SetCellValue(SchemesSheet, cell, c.value(h))
		}
	}

	if err := s.writeSummary(f, rows); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	s.logger.Info("export.xlsx.ok",
		"schemes", len(schemes),
		"rows", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeSummary(f *excelize.File, rows []llm.SchemeHeader) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}
	counts := map[[2]string]int{}
	escalated := 0
	for _, h := range rows {
		counts[[2]string{h.SchemeType, h.SchemeSubtype}]++
		if h.NeedsEscalation {
			escalated++
		}
	}
	keys := make([][2]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i][0] != keys[j][0] {
			return keys[i][0] < keys[j][0]
		}
		return keys[i][1] < keys[j][1]
	})

	_ = f.SetSheetRow(SummarySheet, "A1", &[]any{"Scheme Type", "Scheme Subtype", "Count"})
	row := 2
	for _, k := range keys {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetSheetRow(SummarySheet, cell, &[]any{k[0], k[1], counts[k]})
		row++
	}
	row++
	for _, kv := range [][]any{
		{"Total", "", len(rows)},
		{"Needs Escalation", "", escalated},
		{"Generated At", "", s.now().UTC().Format(time.DateTime)},
	} {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		_ = f.SetSheetRow(SummarySheet, cell, &kv)
		row++
	}
	_ = f.SetColWidth(SummarySheet, "A", "B", 20)
	return nil
}

func (flt Filter) apply(in []llm.SchemeHeader) []llm.SchemeHeader {
	from, to := day(flt.From), day(flt.To)
	out := make([]llm.SchemeHeader, 0, len(in))
	for _, h := range in {
		if flt.SchemeType != "" && !strings.EqualFold(h.SchemeType, flt.SchemeType) {
			continue
		}
		if flt.OnlyEscalated && !h.NeedsEscalation {
			continue
		}
		d := day(&h.ExtractedAt)
		if from != nil && d.Before(*from) {
			continue
		}
		if to != nil && d.After(*to) {
			continue
		}
		out = append(out, h)
	}
	return out
}

// day truncates to a UTC date.
func day(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	d := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
