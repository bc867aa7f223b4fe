// Command cheque-seed loads banks, layouts and checkbooks from a YAML file
// into the configured store.
package main

import (
	"context"
	"flag"
	"os"

	"imprimecheque/internal/backend"
	"imprimecheque/internal/cli"
	"imprimecheque/internal/log"
	"imprimecheque/internal/seed"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentSeed)

	file := flag.String("file", os.Getenv("SEED_FILE"), "seed file to apply")
	flag.Parse()
	if *file == "" {
		logger.Error("No seed file: pass -file or set SEED_FILE")
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	cfg.SeedFile = ""
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	if !backendCfg.Type.Durable() {
		logger.Warn("Seeding a non-durable backend, nothing will persist", "backend", backendCfg.Type)
	}

	ctx := context.Background()
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to open backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Cleanup()

	f, err := seed.Load(*file)
	if err != nil {
		logger.Error("Failed to load seed file", log.FieldError, err, "file", *file)
		os.Exit(1)
	}
	summary, err := seed.Apply(ctx, res.Store, f)
	if err != nil {
		logger.Error("Failed to apply seed file", log.FieldError, err, "file", *file)
		os.Exit(1)
	}
	logger.Info("Seed applied",
		"file", *file,
		"banks", summary.Banks,
		"checkbooks_created", summary.Checkbooks,
		"checkbooks_skipped", summary.Skipped)
}
