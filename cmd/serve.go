package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/billbatista/acasinha-ledger/api"
)

const purgeInterval = time.Hour

func newServeCmd(c *cli) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	return cmd
}

func (c *cli) serve(ctx context.Context, addr string) error {
	a := c.app
	h := api.NewHandler(a.Service, a.Groups, a.Keys, a.Diagnostics, a.Logger)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go c.purgeKeys(ctx)

	errs := make(chan error, 1)
	go func() {
		a.Logger.Info("server starting", "addr", addr, "driver", c.cfg.Database.Driver)
		errs <- srv.ListenAndServe()
	}()
	pterm.Info.Printf("Listening on %s\n", addr)

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	a.Logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (c *cli) purgeKeys(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.app.Keys.Purge(ctx)
			if err != nil {
				c.app.Logger.Error("failed to purge idempotency keys", "error", err)
				continue
			}
			if n > 0 {
				c.app.Logger.Info("purged idempotency keys", "count", n)
			}
		}
	}
}
