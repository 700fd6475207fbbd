package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pranayab18/Data-Extraction/internal/redact"
)

func (a *app) redactCommand() *cobra.Command {
	var (
		in, out   string
		noMask    bool
		names     []string
		companies []string
	)
	cmd := &cobra.Command{
		Use:   "redact",
		Short: "Strip mail chrome and mask PII in extracted text and tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if in == "" {
				in = a.cfg.Paths.OutputDir
			}
			if out == "" {
				out = filepath.Clean(in) + "_redacted"
			}
			var m *redact.Masker
			if !noMask {
				var opts []redact.Option
				if len(names) > 0 {
					opts = append(opts, redact.WithNames(names...))
				}
				if len(companies) > 0 {
					opts = append(opts, redact.WithCompanies(companies...))
				}
				m = redact.NewMasker(opts...)
			}
			st, err := redact.NewRedactor(m, a.logger).RedactDir(cmd.Context(), in, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "redacted %d text files and %d tables into %s (%d failed)\n",
				st.TextFiles, st.CSVFiles, out, st.Failed)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in, "in", "", "extraction output to redact (default OUTPUT_DIR)")
	f.StringVar(&out, "out", "", "destination tree (default <in>_redacted)")
	f.BoolVar(&noMask, "no-mask", false, "only strip mail chrome, keep emails, phones and names")
	f.StringSliceVar(&names, "names", nil, "person names to mask")
	f.StringSliceVar(&companies, "companies", nil, "company names to keep unmasked")
	return cmd
}
