package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/source"
	"fintrack/internal/taxonomy"
)

var (
	plain    = flag.Bool("plain", false, "Print raw markdown instead of rendering it for the terminal.")
	logLevel = flag.String("log-level", "warn", "Log level: debug, info, warn or error.")
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	cli.LoadEnvFile()
	env := cli.NewEnv(taxonomy.Default(), nil, nil)
	cli.Register(commander, env)
	flag.Parse()

	logger := cli.SetupLogger(*logLevel, os.Stderr)
	cfg := cli.LoadAndValidateConfig(logger)

	tax, err := taxonomy.Load(cfg.CategoriesFile)
	if err != nil {
		logger.Error("Failed to load categories", log.FieldError, err, "path", cfg.CategoriesFile)
		os.Exit(1)
	}
	env.Taxonomy = tax
	env.Logger = logger.WithComponent(log.ComponentCLI)
	env.Plain = *plain
	env.Open = func(ctx context.Context) (source.Source, func() error, error) {
		bcfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
		if err != nil {
			return nil, nil, err
		}
		return res.Source, res.Cleanup, nil
	}

	// Mutations made here refresh running dashboards through the broker.
	var client *amqp.Client
	if cfg.AMQPURL != "" {
		client, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Refresh events disabled", log.FieldError, err)
		} else {
			env.Notifier = client
		}
	}

	status := commander.Execute(context.Background())
	if err := env.Close(); err != nil {
		logger.Warn("Failed to release transaction source", log.FieldError, err)
	}
	if client != nil {
		_ = client.Close()
	}
	os.Exit(int(status))
}
