package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentic-research/lina/internal/engine"
	"github.com/agentic-research/lina/internal/ingest"
	"github.com/agentic-research/lina/internal/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Drain the upload queue into the primary target until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.RequireUpload(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, err := openPipeline(cfg, logger, true)
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()
		return p.uploader.Run(ctx)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept host events over HTTP and upload the resolved payloads",
	Long: `Serve runs the HTTP ingest server. Resolved payloads go through the
duplicate filter into the disk queue; when primary.url is set an uploader
drains the queue in the same process. With profiles.reload the profile
directory is watched and reloaded on change.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		eng, err := engine.LoadDir(cfg.Profiles.Dir)
		if err != nil {
			return err
		}
		profiles := engine.NewHotSwap(eng)
		if cfg.Profiles.Reload {
			watcher, err := engine.WatchProfiles(cfg.Profiles.Dir, profiles, cfg.Profiles.Debounce, logger)
			if err != nil {
				return err
			}
			defer func() { _ = watcher.Close() }()
		}

		p, err := openPipeline(cfg, logger, true)
		if err != nil {
			return err
		}
		defer func() { _ = p.Close() }()
		if p.uploader == nil {
			logger.Warn("primary.url not set, payloads stay queued")
		}

		opts := server.Options{APIKey: cfg.Server.APIKey}
		if cfg.Record.Path != "" {
			events, err := ingest.NewEventLog(cfg.Record.Path)
			if err != nil {
				return err
			}
			defer func() { _ = events.Close() }()
			opts.Recorder = events
		}
		if p.archive != nil {
			opts.Deliveries = p.archive
		}

		srv := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      server.New(profiles, p.dedup, logger, opts),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  60 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("server starting", "addr", srv.Addr, "profiles", len(eng.Profiles()))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("listen: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		if p.uploader != nil {
			g.Go(func() error { return p.uploader.Run(gctx) })
		}
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(uploadCmd, serveCmd)
}
