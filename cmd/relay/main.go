package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/astromechza/inkboard/pkg/config"
	"github.com/astromechza/inkboard/pkg/relay"
	"github.com/astromechza/inkboard/pkg/storage"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	configVar := flag.String("config", "", "optional path to a config file")
	addrVar := flag.String("addr", "", "the address to listen on, overrides the config")
	flag.Parse()

	cfg, err := config.Load(*configVar)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	if *addrVar != "" {
		cfg.Relay.ListenAddress = *addrVar
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("Opening room store", "driver", cfg.Storage.Driver, "dsn", cfg.Storage.DSN)
	store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer store.Close()

	hub := relay.NewHub(
		relay.WithStore(store),
		relay.WithSendBuffer(cfg.Relay.SendBuffer),
		relay.WithReadLimit(cfg.Relay.ReadLimit),
		relay.WithAwarenessLimit(cfg.Relay.AwarenessRate, cfg.Relay.AwarenessBurst),
	)
	httpServer := &http.Server{Addr: cfg.Relay.ListenAddress, Handler: relay.NewRouter(hub)}

	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("Relay listening", "addr", cfg.Relay.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server listen failed", "err", err)
			cancel()
		}
	}()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-exit:
		slog.Info("Signal caught", "sig", sig)
	case <-ctx.Done():
	}
	cancel()
	_ = httpServer.Close()
	hub.Close()

	wg.Wait()
	return nil
}
