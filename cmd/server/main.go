package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"imposter/internal/config"
	"imposter/internal/logging"
	"imposter/internal/store"
	"imposter/internal/store/migrations"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

func main() {
	// A missing .env is normal outside development
	_ = godotenv.Load()

	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("imposter failed")
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "imposter",
		Usage:     "room server for the imposter party game",
		Writer:    out,
		ErrWriter: out,
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			roomCodeCommand(),
		},
		DefaultCommand: "serve",
	}
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to the YAML configuration file",
		EnvVars: []string{"IMPOSTER_CONFIG"},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP server",
		Flags: []cli.Flag{configFlag()},
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			logger, err := logging.New(cfg.Server.LogLevel, cfg.Server.LogFormat)
			if err != nil {
				return err
			}
			logger.Info().
				Int("min_players", cfg.Game.MinPlayers).
				Dur("discussion", cfg.Game.DiscussionDuration).
				Str("store", cfg.Store.Backend).
				Msg("loaded configuration")

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv, err := SetupServer(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := srv.Close(); err != nil {
					logger.Error().Err(err).Msg("failed to close store")
				}
			}()

			return srv.ListenAndServe(ctx)
		},
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "apply Postgres migrations",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:    "dsn",
				Usage:   "Postgres connection string, overrides the configuration",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Action: func(c *cli.Context) error {
			dsn := c.String("dsn")
			if dsn == "" {
				cfg, err := config.LoadConfig(c.String("config"))
				if err != nil {
					return fmt.Errorf("failed to load configuration: %w", err)
				}
				dsn = cfg.Store.PostgresDSN
			}
			if dsn == "" {
				return errors.New("no Postgres DSN: pass --dsn or set store.postgresDSN")
			}

			if err := migrations.Up(c.Context, dsn); err != nil {
				return err
			}
			version, err := migrations.Version(c.Context, dsn)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "database at migration version %d\n", version)
			return nil
		},
	}
}

func roomCodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "roomcode",
		Usage: "print random room codes",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "length",
				Value: store.DefaultCodeLength,
				Usage: "letters per code",
			},
			&cli.IntFlag{
				Name:  "count",
				Value: 1,
				Usage: "number of codes",
			},
		},
		Action: func(c *cli.Context) error {
			length := c.Int("length")
			if length < 1 {
				return fmt.Errorf("length must be positive, got %d", length)
			}
			for range c.Int("count") {
				fmt.Fprintln(c.App.Writer, store.NewRoomCode(nil, length))
			}
			return nil
		},
	}
}
