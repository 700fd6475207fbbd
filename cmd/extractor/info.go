package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/repository"
)

func (a *app) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show configuration, external tools, ledger status and API credits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			w := cmd.OutOrStdout()
			c := a.cfg

			fmt.Fprintln(w, "Configuration")
			fmt.Fprintf(w, "  model:            %s\n", c.LLM.Model)
			fmt.Fprintf(w, "  api key:          %s\n", maskKey(c.LLM.APIKey))
			fmt.Fprintf(w, "  temperature:      %g\n", c.LLM.Temperature)
			fmt.Fprintf(w, "  max tokens:       %d\n", c.LLM.MaxTokens)
			fmt.Fprintf(w, "  rate limit:       %d rpm\n", c.LLM.RequestsPerMin)
			fmt.Fprintf(w, "  ocr:              %t (dpi %d, lang %s)\n", c.OCR.Enabled, c.OCR.DPI, c.OCR.Language)
			fmt.Fprintf(w, "  input dir:        %s\n", c.Paths.InputDir)
			fmt.Fprintf(w, "  output dir:       %s\n", c.Paths.OutputDir)
			fmt.Fprintf(w, "  scheme file:      %s\n", a.schemePath())
			fmt.Fprintf(w, "  ledger:           %s\n", c.Ledger.Driver)

			fmt.Fprintln(w, "External tools")
			for _, t := range a.newOCR().CheckTools() {
				if t.Err != nil {
					fmt.Fprintf(w, "  %-12s missing (%v)\n", t.Name, t.Err)
					continue
				}
				fmt.Fprintf(w, "  %-12s %s\n", t.Name, t.Path)
			}

			if c.Ledger.Driver != "none" {
				a.printLedger(cmd, w)
			}

			if err := c.RequireAPIKey(); err != nil {
				fmt.Fprintln(w, "Credits: no API key configured")
				return nil
			}
			key, err := a.newClient().KeyInfo(ctx)
			if err != nil {
				a.logger.Warn("could not fetch key info", "error", err)
				fmt.Fprintf(w, "Credits: unavailable (%v)\n", err)
				return nil
			}
			fmt.Fprintln(w, "Credits")
			fmt.Fprintf(w, "  label:            %s\n", key.Label)
			fmt.Fprintf(w, "  used:             $%.4f\n", key.Usage)
			if rem := key.Remaining(); rem >= 0 {
				fmt.Fprintf(w, "  remaining:        $%.4f\n", rem)
			} else {
				fmt.Fprintln(w, "  remaining:        unlimited")
			}
			fmt.Fprintf(w, "  free tier:        %t\n", key.IsFreeTier)
			return nil
		},
	}
}

func (a *app) printLedger(cmd *cobra.Command, w io.Writer) {
	ctx := cmd.Context()
	db, err := repository.Open(ctx, repository.ConfigFrom(a.cfg.Ledger), a.logger)
	if err != nil {
		fmt.Fprintf(w, "Ledger: unavailable (%s)\n", common.ErrorCode(err))
		return
	}
	defer db.Close()
	if err := db.HealthCheck(ctx, 3*time.Second); err != nil {
		fmt.Fprintf(w, "Ledger: unhealthy (%v)\n", err)
		return
	}
	fmt.Fprintln(w, "Ledger: ok")
}

func maskKey(k string) string {
	switch {
	case k == "":
		return "(not set)"
	case len(k) <= 8:
		return "****"
	default:
		return k[:4] + "…" + k[len(k)-4:]
	}
}
