package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alsoknownaszac/tendly/internal/cache"
	"github.com/alsoknownaszac/tendly/internal/config"
	"github.com/alsoknownaszac/tendly/internal/docustore"
	"github.com/alsoknownaszac/tendly/internal/events"
	"github.com/alsoknownaszac/tendly/internal/garden"
	"github.com/alsoknownaszac/tendly/internal/reconcile"
	"github.com/alsoknownaszac/tendly/internal/server"
	"github.com/alsoknownaszac/tendly/internal/wallet"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Hydrate the garden and serve the JSON API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	store, err := cache.NewFileStore(cfg.DataDir)
	if err != nil {
		return err
	}

	bus := events.NewBus()
	defer bus.Close()

	// An account id turns on the remote mirror. The document store runs
	// in-process; swapping in a real chain transport only means handing the
	// client a different Execer/Querier pair.
	w := wallet.NewStatic(cfg.Wallet.AccountID)
	var remote reconcile.Remote
	if cfg.Wallet.AccountID != "" {
		w.Connect()
		mem := docustore.NewMemory()
		remote = docustore.NewClient(mem, mem, w, docustore.Fee{
			Amount: cfg.Docustore.FeeAmount,
			Denom:  cfg.Docustore.FeeDenom,
			Gas:    cfg.Docustore.Gas,
		}, log)
		log.Info().Str("account", cfg.Wallet.AccountID).Msg("remote mirror enabled")
	} else {
		log.Info().Msg("no wallet account configured, running local-only")
	}

	eng := reconcile.NewEngine(reconcile.Options{
		Owner:  cfg.Wallet.AccountID,
		Store:  store,
		Remote: remote,
		Wallet: w,
		Bus:    bus,
		Log:    log,
		Config: cfg.Sync,
	})
	eng.Start()
	defer eng.Close()

	svc := garden.NewService(garden.Options{
		Owner: cfg.Wallet.AccountID,
		Bus:   bus,
		Sink:  eng,
		Log:   log,
	})

	st, report, err := eng.Load(cmd.Context())
	if err != nil {
		log.Warn().Err(err).Msg("hydration degraded, continuing with fallback state")
	}
	svc.Replace(st)
	for agg, src := range report.Sources {
		log.Info().Str("aggregate", agg).Str("source", string(src)).Msg("loaded")
	}

	handler, err := server.NewHandler(&server.App{
		Garden:  svc,
		Sync:    eng,
		Wallet:  w,
		Config:  cfg,
		Log:     log,
		BootNow: time.Now(),
	})
	if err != nil {
		return err
	}

	return serveHTTP(cmd.Context(), cfg, handler, log)
}

func serveHTTP(parent context.Context, cfg config.Config, handler http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Listen).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
