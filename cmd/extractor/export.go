package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/export"
	"github.com/pranayab18/Data-Extraction/internal/pipeline"
)

func (a *app) exportCommand() *cobra.Command {
	var (
		in, out, from, to, schemeType string
		escalated                     bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write scheme_header.json as an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in == "" {
				in = a.schemePath()
			}
			if out == "" {
				out = strings.TrimSuffix(in, filepath.Ext(in)) + ".xlsx"
			}
			filter := export.Filter{SchemeType: strings.ToUpper(schemeType), OnlyEscalated: escalated}
			var err error
			if filter.From, err = parseDay("from", from); err != nil {
				return err
			}
			if filter.To, err = parseDay("to", to); err != nil {
				return err
			}

			file, err := pipeline.ReadSchemes(in)
			if err != nil {
				return err
			}
			b, err := export.NewService(a.logger).ExportSchemesXLSX(file.Schemes, filter)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, b, 0o644); err != nil {
				return common.NewAppError("OUTPUT_WRITE", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in, "in", "", "scheme file (default FINAL_OUTPUT_DIR/SCHEME_HEADER_FILENAME)")
	f.StringVar(&out, "out", "", "xlsx path (default next to the scheme file)")
	f.StringVar(&from, "from", "", "only schemes extracted on or after YYYY-MM-DD")
	f.StringVar(&to, "to", "", "only schemes extracted on or before YYYY-MM-DD")
	f.StringVar(&schemeType, "type", "", "only this scheme_type, e.g. BUY_SIDE")
	f.BoolVar(&escalated, "escalated", false, "only schemes that need escalation")
	return cmd
}

func parseDay(flag, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, common.NewAppError("CONFIG_ERROR", "--"+flag+" must be YYYY-MM-DD", common.ErrInvalidInput)
	}
	return &t, nil
}
