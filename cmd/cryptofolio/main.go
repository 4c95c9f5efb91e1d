package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bher20/cryptofolio/internal/api"
	"github.com/bher20/cryptofolio/internal/bot"
	"github.com/bher20/cryptofolio/internal/config"
	"github.com/bher20/cryptofolio/internal/cron"
	"github.com/bher20/cryptofolio/internal/migrate"
	"github.com/bher20/cryptofolio/internal/portfolio"
	"github.com/bher20/cryptofolio/internal/prices"
	"github.com/bher20/cryptofolio/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:   "cryptofolio",
		Short: "Chat-bot backend for tracking crypto portfolios against live prices",
	}
	root.AddCommand(serveCmd(), workerCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat gateway and REST API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func serve() error {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := storage.Open(ctx, storage.Config{
		Driver:       cfg.Driver,
		DSN:          cfg.DSN,
		SnapshotPath: cfg.SnapshotPath,
	})
	if err != nil {
		return err
	}
	defer st.Close()

	cache := prices.NewCache(prices.NewClient(cfg.PriceAPIURL, cfg.PriceTimeout))
	svc := portfolio.NewService(cache, st)
	if err := svc.Load(ctx); err != nil {
		return err
	}

	dispatcher := bot.NewDispatcher(svc)
	mux := api.NewMux(svc, dispatcher)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	// Optional in-process refresh worker.
	if os.Getenv("CRYPTOFOLIO_WORKER") == "1" {
		go func() {
			if err := cron.Run(ctx, cache, svc, cfg.RefreshInterval); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("worker stopped: %v", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("cryptofolio listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	// Stop accepting commands, then persist synchronously before exit.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := svc.Save(shutdownCtx); err != nil {
		log.Printf("error saving snapshot on shutdown: %v", err)
	} else {
		log.Printf("snapshot saved, exiting")
	}
	return nil
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the standalone price-refresh worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			if !cron.ParseInterval(cfg.RefreshInterval) {
				log.Printf("invalid CRYPTOFOLIO_REFRESH_INTERVAL %q, using default", cfg.RefreshInterval)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := storage.Open(ctx, storage.Config{
				Driver:       cfg.Driver,
				DSN:          cfg.DSN,
				SnapshotPath: cfg.SnapshotPath,
			})
			if err != nil {
				return err
			}
			defer st.Close()

			cache := prices.NewCache(prices.NewClient(cfg.PriceAPIURL, cfg.PriceTimeout))
			svc := portfolio.NewService(cache, st)
			if err := svc.Load(ctx); err != nil {
				return err
			}

			err = cron.Run(ctx, cache, svc, cfg.RefreshInterval)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQL storage schema",
	}

	run := func(fn func(context.Context, string, string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg := config.FromEnv()
			return fn(cmd.Context(), cfg.Driver, cfg.DSN)
		}
	}

	cmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply pending migrations", RunE: run(migrate.Up)},
		&cobra.Command{Use: "down", Short: "Roll back the last migration", RunE: run(migrate.Down)},
		&cobra.Command{Use: "status", Short: "Show migration status", RunE: run(migrate.Status)},
	)
	return cmd
}
