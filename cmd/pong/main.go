package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"p2pong/internal/ansii"
	"p2pong/internal/config"
	"p2pong/internal/lobby"
	"p2pong/internal/loop"
	"p2pong/internal/netwrk"
	"p2pong/internal/renderer"
	"p2pong/internal/session"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: pong [-config file] host")
	fmt.Fprintln(os.Stderr, "       pong [-config file] join <room code>")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "path to a JSON config file (default config.json)")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 || (args[0] != "host" && args[0] != "join") || (args[0] == "join" && len(args) < 2) {
		usage()
		os.Exit(2)
	}

	config.LoadConfig(*configPath)

	// stdout is the game screen, so logs go to a file
	logFile, err := os.OpenFile(config.Config.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Sorry, could not open the log file:", err)
		os.Exit(1)
	}
	defer logFile.Close()
	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{
		Level: slog.Level(config.Config.LogLevel),
	})))

	if err := run(args); err != nil {
		slog.Error("pong exited", slog.Any("error", err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	codec, err := netwrk.CodecByName(config.Config.Codec)
	if err != nil {
		return err
	}
	network, err := lobby.NewNetwork(config.Config.Transport, config.Config.LobbyAddr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	inFd, outFd := int(os.Stdin.Fd()), int(os.Stdout.Fd())
	prev, err := ansii.MakeTermRaw(inFd)
	if err != nil {
		return fmt.Errorf("raw terminal: %w", err)
	}
	defer ansii.RestoreTerm(inFd, prev)
	defer os.Stdout.WriteString(string(ansii.Screen.ClearScreen + ansii.Screen.ShowCursor + ansii.Screen.PlaceCursor(ansii.Offset{X: 1, Y: 1})))

	screen := renderer.NewTerminal(os.Stdout, config.Config.Game, func() (int, int, error) {
		return ansii.GetTermSize(outFd)
	})
	keys := renderer.NewKeyboard(renderer.DefaultHold)

	n := session.NewNegotiator(session.Options{
		Network:     network,
		Codec:       codec,
		Settings:    config.Config.Game,
		SettleDelay: config.Config.SettleDelay(),
		Input:       keys,
		Renderer:    screen,
		OnStatus: func(s session.Status) {
			msg := s.Message
			if s.Retryable {
				msg += " (n to retry, q to quit)"
			}
			screen.SetStatus(msg)
		},
	})

	os.Stdout.WriteString(string(ansii.Screen.ClearScreen + ansii.Screen.HideCursor))
	switch args[0] {
	case "host":
		code, err := n.Host(ctx)
		if err != nil {
			return err
		}
		screen.SetRoomCode(code)
		screen.SetStatus(session.StatusWaiting)
	case "join":
		if err := n.Join(ctx, args[1]); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return n.Run(gctx, loop.NewTicker(config.Config.FPS))
	})

	// Stdin reads can't be interrupted, so this goroutine is left behind on exit.
	go keys.Read(os.Stdin, func(action renderer.UiAction) {
		switch action {
		case renderer.Quit, renderer.Interrupt:
			cancel()
		case renderer.Retry:
			n.Do(func() {
				code, err := n.Retry(ctx)
				if err != nil {
					slog.Debug("retry failed", slog.Any("error", err))
					return
				}
				if args[0] == "host" {
					screen.SetRoomCode(code)
				}
			})
		case renderer.Replay:
			n.Do(func() {
				if err := n.PlayAgain(); err != nil {
					slog.Debug("replay ignored", slog.Any("error", err))
				}
			})
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
