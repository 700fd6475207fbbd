package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/pranayab18/Data-Extraction/constants"
	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/entity"
	"github.com/pranayab18/Data-Extraction/internal/gridsearch"
	"github.com/pranayab18/Data-Extraction/internal/openrouter"
	"github.com/pranayab18/Data-Extraction/internal/repository"
)

type options struct {
	envFile  string
	verbose  bool
	gridFile string
	docsDir  string
	csvPath  string
	models   []string
	mode     string
	dryRun   bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		o      options
		cfg    *common.Config
		logger = slog.Default()
	)
	root := &cobra.Command{
		Use:           "gridsearch",
		Short:         "Run extraction prompts across a grid of models and sampling parameters",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelInfo
			if o.verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
			var err error
			cfg, err = loadConfig(o.envFile)
			return err
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), cmd.OutOrStdout(), cfg, o, logger)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&o.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "debug logging")

	f := root.Flags()
	f.StringVarP(&o.gridFile, "grid", "g", "", "YAML grid file (defaults are used when empty)")
	f.StringVar(&o.docsDir, "documents", "", "directory of .txt documents (overrides the grid file)")
	f.StringVar(&o.csvPath, "csv", "", "CSV log path (overrides the grid file)")
	f.StringSliceVar(&o.models, "models", nil, "model ids (overrides the grid file)")
	f.StringVar(&o.mode, "mode", "", "field or consolidated (overrides the grid file)")
	f.BoolVar(&o.dryRun, "dry-run", false, "print request count, token and cost estimates, then exit")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the grid (default command)",
		Args:  cobra.NoArgs,
		RunE:  root.RunE,
	}
	runCmd.Flags().AddFlagSet(f)

	root.AddCommand(runCmd,
		&cobra.Command{
			Use:   "models",
			Short: "List models available to the API key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := cfg.RequireAPIKey(); err != nil {
					return err
				}
				models, err := newClient(cfg, logger).ListModels(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tCONTEXT\tPROMPT $/TOKEN\tCOMPLETION $/TOKEN")
				for _, m := range models {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", m.ID, m.ContextLength, m.Pricing.Prompt, m.Pricing.Completion)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "credits",
			Short: "Show credit usage of the API key",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := cfg.RequireAPIKey(); err != nil {
					return err
				}
				k, err := newClient(cfg, logger).KeyInfo(cmd.Context())
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				fmt.Fprintf(w, "label:     %s\n", k.Label)
				fmt.Fprintf(w, "used:      $%.4f\n", k.Usage)
				if rem := k.Remaining(); rem >= 0 {
					fmt.Fprintf(w, "remaining: $%.4f\n", rem)
				} else {
					fmt.Fprintln(w, "remaining: unlimited")
				}
				fmt.Fprintf(w, "free tier: %t\n", k.IsFreeTier)
				return nil
			},
		},
	)

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("gridsearch failed", "error", err, "code", common.ErrorCode(err))
		if errors.Is(err, common.ErrInvalidInput) || errors.Is(err, common.ErrValidation) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newClient(cfg *common.Config, logger *slog.Logger) *openrouter.Client {
	c := cfg.LLM
	oc := openrouter.Config{
		APIKey:            c.APIKey,
		BaseURL:           c.BaseURL,
		Model:             c.Model,
		AppURL:            c.AppURL,
		AppName:           c.AppName,
		Timeout:           c.Timeout,
		MaxRetries:        c.MaxRetries,
		RetryDelay:        c.RetryDelay,
		RequestsPerMinute: c.RequestsPerMin,
		InputCostPer1M:    c.InputCostPer1M,
		OutputCostPer1M:   c.OutputCostPer1M,
	}
	if c.CallLogging {
		oc.CallLogDir = c.CallLogDir
	}
	return openrouter.NewClient(oc, logger)
}

// loadConfig reads the environment (after the dotenv file) and rejects
// invalid tunables such as a non-positive RATE_LIMIT_RPM.
func loadConfig(envFile string) (*common.Config, error) {
	cfg := common.LoadConfig(envFile)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadGrid reads the grid file and applies flag overrides.
func loadGrid(o options) (gridsearch.Grid, error) {
	g, err := gridsearch.LoadGrid(o.gridFile)
	if err != nil {
		return g, err
	}
	if o.docsDir != "" {
		g.DocumentsDir = o.docsDir
	}
	if o.csvPath != "" {
		g.OutputCSV = o.csvPath
	}
	if len(o.models) > 0 {
		g.Models = o.models
	}
	if o.mode != "" {
		g.Mode = gridsearch.Mode(strings.ToLower(o.mode))
	}
	return g, g.Validate()
}

func run(ctx context.Context, w io.Writer, cfg *common.Config, o options, logger *slog.Logger) error {
	g, err := loadGrid(o)
	if err != nil {
		return err
	}
	docs, err := gridsearch.LoadDocuments(g.DocumentsDir, g.MaxDocChars, logger)
	if err != nil {
		return common.NewAppError("GRID_DOCUMENTS", g.DocumentsDir, err)
	}
	if len(docs) == 0 {
		return common.NewAppError("GRID_DOCUMENTS", "no .txt documents in "+g.DocumentsDir, common.ErrInvalidInput)
	}
	if o.dryRun {
		return printEstimate(w, g.Estimate(docs, newClient(cfg, logger).PriceFor))
	}
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	csvw, err := gridsearch.NewCSVWriter(g.OutputCSV)
	if err != nil {
		return err
	}
	defer csvw.Close()

	rc := gridsearch.Config{Grid: g, Client: newClient(cfg, logger), CSV: csvw, RunID: uuid.New()}

	var (
		runs  repository.RunRepository
		calls repository.CallRepository
		rec   *entity.Run
	)
	if !strings.EqualFold(cfg.Ledger.Driver, "none") {
		db, err := repository.Open(ctx, repository.ConfigFrom(cfg.Ledger), logger)
		if err == nil {
			err = db.Migrate(ctx)
		}
		if err != nil {
			logger.Warn("ledger unavailable, continuing without it", "error", err)
		} else {
			defer db.Close()
			runs = repository.NewRunRepository(db, logger)
			calls = repository.NewCallRepository(db, logger)
			rc.Calls = calls
			if rec, err = runs.Start(ctx, constants.RunKindGrid); err == nil {
				rc.RunID = rec.ID
			}
		}
	}

	sum, runErr := gridsearch.NewRunner(rc, logger).Run(ctx, docs)
	if rec != nil {
		rec.Requests = sum.Requests
		rec.Failures = sum.Failed
		rec.TotalTokens = sum.TotalTokens
		rec.TotalCost = sum.Cost
		if runErr != nil {
			msg := runErr.Error()
			rec.ErrorMessage = &msg
		}
		_ = runs.Finish(context.WithoutCancel(ctx), rec)
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(w, "requests: %d  succeeded: %d  failed: %d  tokens: %d  cost: $%.4f\n",
		sum.Requests, sum.Succeeded, sum.Failed, sum.TotalTokens, sum.Cost)
	fmt.Fprintf(w, "csv: %s\n", csvw.Path())
	for _, p := range sum.ResultFiles {
		fmt.Fprintf(w, "results: %s\n", p)
	}
	if rec != nil {
		if recorded, err := calls.ListByRun(ctx, rec.ID); err == nil {
			fmt.Fprintf(w, "ledger: %d calls recorded for run %s\n", len(recorded), rec.ID)
		} else {
			logger.Warn("ledger read failed", "run_id", rec.ID, "error", err)
		}
	}
	return nil
}

// printEstimate writes the dry-run report: tokens per document before and
// after preprocessing, then the run totals.
func printEstimate(w io.Writer, est gridsearch.Estimate) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENT\tRAW TOKENS\tCLEAN TOKENS\tSAVED")
	for _, d := range est.PerDocument {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", d.Name, d.RawTokens, d.CleanTokens, d.RawTokens-d.CleanTokens)
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t%d\n", est.RawTokens, est.CleanTokens, est.RawTokens-est.CleanTokens)
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d documents x %d combinations = %d requests\n", est.Documents, est.Combinations, est.Requests)
	fmt.Fprintf(w, "prompt overhead: ~%d tokens per document\n", est.PromptOverhead)
	fmt.Fprintf(w, "input tokens:    ~%d\n", est.InputTokens)
	fmt.Fprintf(w, "output tokens:   <= %d\n", est.MaxOutputTokens)
	_, err := fmt.Fprintf(w, "max cost:        $%.4f\n", est.MaxCost)
	return err
}
