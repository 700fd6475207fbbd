package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/pranayab18/Data-Extraction/constants"
	"github.com/pranayab18/Data-Extraction/internal/pipeline"
)

func (a *app) extractCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [inputs...]",
		Short: "Extract text and tables from PDFs, zips and workbooks into OUTPUT_DIR",
		Long:  "Inputs may be files or directories; INPUT_DIR is used when none are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := a.openLedger(ctx, constants.RunKindPipeline)
			p, err := a.newPipeline(l, false)
			if err != nil {
				l.finish(ctx, pipeline.Summary{}, err)
				return err
			}
			_, sum, err := p.ExtractAll(ctx, a.inputsOrDefault(args))
			l.finish(ctx, sum, err)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), sum)
		},
	}
}

func (a *app) buildHeadersCommand() *cobra.Command {
	var appendMode bool
	cmd := &cobra.Command{
		Use:   "build-headers",
		Short: "Run the LLM over extracted output and write scheme_header.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			l := a.openLedger(ctx, constants.RunKindPipeline)
			p, err := a.newPipeline(l, true)
			if err != nil {
				l.finish(ctx, pipeline.Summary{}, err)
				return err
			}
			p.Append = appendMode
			sum, err := p.BuildHeaders(ctx)
			l.finish(ctx, sum, err)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), sum)
		},
	}
	cmd.Flags().BoolVar(&appendMode, "append", false, "merge into an existing scheme_header.json")
	return cmd
}

func (a *app) runFullCommand() *cobra.Command {
	var appendMode bool
	cmd := &cobra.Command{
		Use:   "run-full [inputs...]",
		Short: "Extract inputs and build scheme headers in one pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			l := a.openLedger(ctx, constants.RunKindPipeline)
			p, err := a.newPipeline(l, true)
			if err != nil {
				l.finish(ctx, pipeline.Summary{}, err)
				return err
			}
			p.Append = appendMode
			sum, err := p.RunFull(ctx, a.inputsOrDefault(args))
			l.finish(ctx, sum, err)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), sum)
		},
	}
	cmd.Flags().BoolVar(&appendMode, "append", false, "merge into an existing scheme_header.json")
	return cmd
}

func printSummary(w io.Writer, sum pipeline.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sum)
}
