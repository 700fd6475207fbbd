package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pranayab18/Data-Extraction/internal/common"
)

// app carries what every subcommand needs after flags are parsed.
type app struct {
	cfg    *common.Config
	logger *slog.Logger

	envFile string
	verbose bool
	noOCR   bool
	model   string
	output  string
	final   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	root := a.rootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		logger := a.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("command failed", "error", err, "code", common.ErrorCode(err))
		if errors.Is(err, common.ErrInvalidInput) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "extractor",
		Short:         "Extract PDFs and build scheme headers with an LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&a.noOCR, "no-ocr", false, "disable the OCR fallback")
	pf.StringVar(&a.model, "model", "", "OpenRouter model id (overrides OPENROUTER_MODEL)")
	pf.StringVarP(&a.output, "output", "o", "", "extraction output directory (overrides OUTPUT_DIR)")
	pf.StringVar(&a.final, "final-output", "", "directory for scheme_header.json (overrides FINAL_OUTPUT_DIR)")

	root.AddCommand(
		a.extractCommand(),
		a.buildHeadersCommand(),
		a.runFullCommand(),
		a.infoCommand(),
		a.redactCommand(),
		a.exportCommand(),
		a.serveCommand(),
		a.healthCommand(),
	)
	return root
}

// load reads .env and the environment, applies flag overrides and installs
// the JSON logger.
func (a *app) load() error {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	cfg := common.LoadConfig(a.envFile)
	if a.noOCR {
		cfg.OCR.Enabled = false
	}
	if a.model != "" {
		cfg.LLM.Model = a.model
	}
	if a.output != "" {
		cfg.Paths.OutputDir = a.output
	}
	if a.final != "" {
		cfg.Paths.FinalOutputDir = a.final
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}
