package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"orderdesk/internal/handler"
	"orderdesk/internal/notify"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		port     int
		noReaper bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the stale-order reaper and notification dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("port") {
				a.config.Server.Port = port
			}
			return serve(ctx, a, !noReaper)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (overrides config)")
	cmd.Flags().BoolVar(&noReaper, "no-reaper", false, "Do not expire stale pending orders from this process")

	return cmd
}

func serve(ctx context.Context, a *app, runReaper bool) error {
	log := a.logger.WithComponent("server")
	cfg := a.config.Server

	router := handler.NewRouter(handler.Handlers{
		Orders:  handler.NewOrderHandler(a.orders, a.logger),
		Menu:    handler.NewMenuHandler(a.menu, a.logger),
		Reports: handler.NewReportHandler(a.reports, a.logger),
		Health:  a.db,
	}, a.logger)

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	dispatcher := notify.NewDispatcher(a.store, a.deliverer(), a.config.Notifications.DispatcherConfig, a.logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		log.Info("Server exited properly")
		return nil
	})

	g.Go(func() error { return dispatcher.Run(gctx) })
	if runReaper {
		g.Go(func() error { return a.reaper.Run(gctx) })
	}

	return g.Wait()
}
