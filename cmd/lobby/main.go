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
	"syscall"

	"golang.org/x/sync/errgroup"

	"p2pong/internal/config"
	"p2pong/internal/lobby"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (default config.json)")
	flag.Parse()

	config.LoadConfig(*configPath)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(config.Config.LogLevel),
	})))

	fmt.Println("Starting p2pong lobby...")
	if err := run(); err != nil {
		slog.Error("lobby exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var registry lobby.Registry = lobby.NewMemoryRegistry()
	if config.Config.RedisURL != "" {
		rdb, err := lobby.ConnectRedis(ctx, config.Config.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rdb.Close()
		registry = lobby.NewRedisRegistry(rdb, config.Config.RoomTTL())
		slog.Info("room codes shared through redis")
	}

	l := lobby.CreateLobby(registry)
	srv := &http.Server{Addr: config.Config.LobbyHTTPAddr, Handler: l.WebSocketHandler()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return l.ListenTCP(gctx, config.Config.LobbyAddr)
	})
	g.Go(func() error {
		slog.Info("lobby listening", slog.String("transport", "ws"), slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown(context.Background())
	})

	fmt.Println("Lobby started")
	return g.Wait()
}
