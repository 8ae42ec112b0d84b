// Package main provides the CLI entrypoint for the domain expiry exporter.
// It wires subcommands (serve, probe), loads configuration, and initializes logging.
package main

import (
	"context"
	"domainprobe/internal/cache"
	"domainprobe/internal/config"
	"domainprobe/internal/probe"
	"domainprobe/internal/prober"
	"domainprobe/pkg/expiry"
	"domainprobe/pkg/logger"
	"domainprobe/pkg/whois"
	"domainprobe/pkg/whois/whoisclient"
	"flag"
	"log"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// getProber builds the probe engine from configuration: the server map, the
// WHOIS transport, the expiry parser, the retried probe and the cache in
// front of it.
func getProber(ctx context.Context, cfg *config.Config) (prober.Prober, *cache.Cache) {
	servers, err := whois.LoadServerMap(cfg.Whois.ServersFile)
	if err != nil {
		logger.Fatal(ctx, "could not load whois server map", zap.Error(err))
	}
	logger.Info(ctx, "loaded whois server map",
		zap.Int("servers", servers.Len()),
		zap.String("file", cfg.Whois.ServersFile))

	client := whoisclient.New(servers, cfg.Probe.WhoisTimeout)

	var parserOpts []expiry.Option
	if cfg.Probe.LenientDates {
		parserOpts = append(parserOpts, expiry.WithLenientDates())
	}

	p, err := probe.New(client, expiry.New(parserOpts...), probe.NewOptions(cfg))
	if err != nil {
		logger.Fatal(ctx, "could not create probe", zap.Error(err))
	}

	c := cache.New(cfg.Probe.CacheTTL)

	pr, err := prober.New(p, c, prober.NewOptions(cfg))
	if err != nil {
		logger.Fatal(ctx, "could not create prober", zap.Error(err))
	}

	return pr, c
}

// main sets up the root Cobra command, loads configuration and logging, and
// registers subcommands before executing the CLI.
func main() {
	rootCmd := &cobra.Command{
		Use:   "domainprobe",
		Short: "Exports days until domain expiry, read from WHOIS",
	}

	// there is no way to access flags before command execution in cobra.
	// configPath here is parsed using the standard flags package.
	// following line is just added to prevent errors when Cobra is parsing the flags.
	rootCmd.PersistentFlags().StringP("config", "c", "config.yml", "Config File Path")

	configPath := flag.String("c", "config.yml", "The config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("could not load config file", err)
	}

	logger.Setup(cfg.Environment)

	ctx := context.Background()

	defer func() {
		if p := recover(); p != nil {
			logger.Error(ctx, "captured panic, exiting...", zap.Any("panic", p))
			_ = logger.Get(ctx).Sync()

			panic(p)
		}
	}()

	rootCmd.AddCommand(
		serveCommand(cfg),
		probeCommand(cfg),
	)

	err = rootCmd.Execute()
	_ = logger.Get(ctx).Sync()
	if err != nil {
		os.Exit(1) //nolint: gocritic
	}
}
