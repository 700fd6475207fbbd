// Command llm runs scheme extraction on one text file, optionally several
// times, to compare model output between runs.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pranayab18/Data-Extraction/internal/common"
	"github.com/pranayab18/Data-Extraction/internal/extract"
	"github.com/pranayab18/Data-Extraction/internal/llm"
	"github.com/pranayab18/Data-Extraction/internal/openrouter"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		logger.Error("usage: llm <file.txt> [times]")
		os.Exit(2)
	}
	path := os.Args[1]
	times := 1
	if len(os.Args) >= 3 {
		if n, err := strconv.Atoi(os.Args[2]); err == nil && n > 0 {
			times = n
		}
	}

	cfg := common.LoadConfig()
	if err := cfg.RequireAPIKey(); err != nil {
		logger.Error("OPENROUTER_API_KEY env var is required")
		os.Exit(2)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Error("read input", "path", path, "error", err)
		os.Exit(1)
	}
	body := string(raw)
	subject := extract.ExtractSubject(body)

	client := openrouter.NewClient(openrouter.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		Timeout:           cfg.LLM.Timeout,
		MaxRetries:        cfg.LLM.MaxRetries,
		RetryDelay:        cfg.LLM.RetryDelay,
		RequestsPerMinute: cfg.LLM.RequestsPerMin,
		InputCostPer1M:    cfg.LLM.InputCostPer1M,
		OutputCostPer1M:   cfg.LLM.OutputCostPer1M,
	}, logger)
	extractor, err := llm.NewExtractor(llm.Config{
		Model:           cfg.LLM.Model,
		Temperature:     cfg.LLM.Temperature,
		MaxTokens:       cfg.LLM.MaxTokens,
		TopP:            cfg.LLM.TopP,
		JSONMode:        true,
		LenientOptional: true,
	}, client, logger)
	if err != nil {
		logger.Error("build extractor", "error", err)
		os.Exit(1)
	}

	base := filepath.Base(path)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for i := 1; i <= times; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		start := time.Now()
		logger.Info("llm.run.start", "iter", i, "basename", base, "subject", subject)

		resp, err := extractor.Extract(ctx, subject, body)
		cancel()
		if err != nil {
			logger.Error("llm.run.error", "iter", i, "error", err)
			continue
		}
		logger.Info("llm.run.ok",
			"iter", i,
			"schemes", len(resp.Schemes),
			"dropped", resp.Dropped,
			"avg_confidence", resp.AverageConfidence(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		_ = enc.Encode(resp.Schemes)
		if i < times {
			time.Sleep(750 * time.Millisecond)
		}
	}

	u := client.Usage()
	logger.Info("done", "file", base, "times", times, "total_tokens", u.TotalTokens, "cost", u.Cost)
}
