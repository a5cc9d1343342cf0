package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/app"
	"github.com/hailam/chesscore/internal/server"
)

func main() {
	flags := app.RegisterFlags(flag.CommandLine)
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	if err := app.SetupLogging(flags.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("bad -loglevel")
	}
	stopProfile, err := app.StartProfile(flags.CPUProfile)
	if err != nil {
		log.Fatal().Err(err).Msg("profiling")
	}

	err = run(flags, *addr)
	stopProfile()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server")
	}
}

func run(flags *app.Flags, addr string) error {
	eng, err := flags.Engine()
	if err != nil {
		return err
	}
	store, err := flags.OpenStorage()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	srv := server.New(eng, store)
	b, err := flags.OpenBook()
	if err != nil {
		return err
	}
	if b != nil {
		srv.UseBook(b)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return srv.ListenAndServe(ctx, addr)
}
