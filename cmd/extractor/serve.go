package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pranayab18/Data-Extraction/constants"
	"github.com/pranayab18/Data-Extraction/internal/async"
	"github.com/pranayab18/Data-Extraction/internal/ingest"
	"github.com/pranayab18/Data-Extraction/internal/pipeline"
	"github.com/pranayab18/Data-Extraction/internal/server"
)

func (a *app) serveCommand() *cobra.Command {
	var (
		initialScan bool
		jobTimeout  time.Duration
		drain       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Watch INPUT_DIR and run the full pipeline on every new PDF",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			l := a.openLedger(ctx, constants.RunKindPipeline)
			p, err := a.newPipeline(l, true)
			if err != nil {
				l.finish(ctx, pipeline.Summary{}, err)
				return err
			}
			p.Append = true

			q := async.NewQueue(func(ctx context.Context, job async.Job) error {
				_, err := p.RunFull(ctx, []string{job.Path})
				return err
			}, a.logger,
				async.WithWorkers(a.cfg.Server.Workers),
				async.WithProcessTimeout(jobTimeout),
			)
			health := server.NewHealth(a.logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return health.ListenAndServe(gctx, a.cfg.Server.GRPCAddr) })
			if l.db != nil {
				g.Go(func() error {
					health.MonitorLedger(gctx, 30*time.Second, func(ctx context.Context) error {
						return l.db.HealthCheck(ctx, 3*time.Second)
					})
					return nil
				})
			}

			paths, errs, err := ingest.StartWatcher(gctx, ingest.WatchConfig{
				Roots:       []string{a.cfg.Paths.InputDir},
				InitialScan: initialScan,
				Debounce:    a.cfg.Server.WatchDebounce,
				Logger:      a.logger,
			})
			if err != nil {
				health.Stop()
				l.finish(ctx, pipeline.Summary{}, err)
				return err
			}

			q.Start()
			health.SetServing(true)
			a.logger.Info("daemon started",
				"input_dir", a.cfg.Paths.InputDir,
				"grpc_addr", a.cfg.Server.GRPCAddr,
				"workers", a.cfg.Server.Workers,
			)

			g.Go(func() error {
				for {
					select {
					case path, ok := <-paths:
						if !ok {
							return nil
						}
						job := async.Job{Path: path, SubmittedAt: time.Now(), TraceID: uuid.NewString()}
						if err := q.Enqueue(gctx, job); err != nil && gctx.Err() == nil {
							a.logger.Error("failed to enqueue file", "path", path, "error", err)
						}
					case err, ok := <-errs:
						if !ok {
							errs = nil
							continue
						}
						a.logger.Warn("watcher reported an error", "error", err)
					}
				}
			})

			<-gctx.Done()
			a.logger.Info("shutting down", "reason", context.Cause(gctx))
			health.SetServing(false)

			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), drain)
			defer cancel()
			if err := q.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("queue did not drain", "error", err)
			}
			err = g.Wait()

			st := q.Stats()
			a.logger.Info("daemon stopped",
				"enqueued", st.Enqueued,
				"processed", st.Processed,
				"failed", st.Failed,
				"skipped", st.Skipped,
			)
			l.finish(ctx, pipeline.Summary{
				Documents: int(st.Processed + st.Failed),
				Failed:    int(st.Failed),
				Usage:     p.Usage(),
			}, err)
			return err
		},
	}
	f := cmd.Flags()
	f.BoolVar(&initialScan, "initial-scan", false, "also process PDFs already in INPUT_DIR")
	f.DurationVar(&jobTimeout, "job-timeout", 10*time.Minute, "limit for one PDF including LLM calls")
	f.DurationVar(&drain, "drain-timeout", 2*time.Minute, "how long shutdown waits for queued jobs")
	return cmd
}
