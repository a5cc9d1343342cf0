package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/hailam/chesscore/internal/app"
	"github.com/hailam/chesscore/internal/uci"
)

func main() {
	flags := app.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if err := app.SetupLogging(flags.LogLevel); err != nil {
		log.Fatal().Err(err).Msg("bad -loglevel")
	}
	stopProfile, err := app.StartProfile(flags.CPUProfile)
	if err != nil {
		log.Fatal().Err(err).Msg("profiling")
	}

	err = run(flags)
	stopProfile()
	var fatal *uci.FatalError
	if errors.As(err, &fatal) {
		log.Fatal().Err(err).Str("command", fatal.Command).Msg("uci session aborted")
	}
	if err != nil {
		log.Fatal().Err(err).Msg("uci")
	}
}

func run(flags *app.Flags) error {
	eng, err := flags.Engine()
	if err != nil {
		return err
	}
	protocol := uci.New(eng, os.Stdout)

	store, err := flags.OpenStorage()
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		if err := protocol.UseStorage(store); err != nil {
			return err
		}
	}

	// Explicit flags win over stored options.
	if flags.IsSet("hash") {
		if err := protocol.SetOption("Hash", strconv.Itoa(flags.Hash)); err != nil {
			return err
		}
	}
	if flags.IsSet("threads") {
		if err := protocol.SetOption("Threads", strconv.Itoa(flags.Threads)); err != nil {
			return err
		}
	}
	if flags.Book != "" {
		if err := protocol.SetOption("BookFile", flags.Book); err != nil {
			return err
		}
		if err := protocol.SetOption("OwnBook", "true"); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	log.Debug().Int("threads", eng.Threads()).Str("index", flags.Index).Msg("uci ready")
	return protocol.Run(ctx, os.Stdin)
}
