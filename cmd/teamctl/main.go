package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/teampanel/internal/adapter/driven/httpstore"
	"github.com/ericfisherdev/teampanel/internal/adapter/driving/cli"
	"github.com/ericfisherdev/teampanel/internal/domain/port/driven"
)

func main() {
	newStore := func(url string) (driven.CredentialStore, error) {
		return httpstore.NewClient(url)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args[1:], cli.Options{
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
		Logger:   slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
		NewStore: newStore,
	})
	stop()
	os.Exit(code)
}
