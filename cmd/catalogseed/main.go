// Command catalogseed loads categories and products from a YAML file into the storefront catalog.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/fastpix01-lab/fruitamruth/internal/di"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/config"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/observability"
	"github.com/fastpix01-lab/fruitamruth/internal/platform/secrets"
	"github.com/fastpix01-lab/fruitamruth/internal/services"
)

func main() {
	path := flag.String("file", "catalog.yaml", "YAML catalog file")
	dryRun := flag.Bool("dry-run", false, "log what would be created without writing")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	logger = logger.Named("catalogseed")

	if err := run(*path, *dryRun, *timeout, logger); err != nil {
		logger.Error("seed failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(path string, dryRun bool, timeout time.Duration, logger *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	file, err := parseCatalog(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	fetcher, err := secrets.NewFetcher(ctx, secrets.WithLogger(logger.Named("secrets")))
	if err != nil {
		return fmt.Errorf("initialise secret fetcher: %w", err)
	}
	defer fetcher.Close()

	cfg, err := config.Load(ctx, config.WithSecretResolver(fetcher))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	infra, err := di.NewInfrastructure(ctx, cfg, logger, services.BuildInfo{Version: "catalogseed", Environment: cfg.Environment})
	if err != nil {
		return err
	}
	container, err := di.NewContainer(ctx, cfg, infra)
	if err != nil {
		return err
	}
	defer func() {
		if err := container.Close(context.Background()); err != nil {
			logger.Warn("container close error", zap.Error(err))
		}
	}()

	result, err := newSeeder(container.Services.Catalog, filepath.Dir(path), dryRun, logger).Run(ctx, file)
	if err != nil {
		return err
	}
	logger.Info("seed complete",
		zap.Bool("dryRun", dryRun),
		zap.Int("categoriesCreated", result.CategoriesCreated),
		zap.Int("productsCreated", result.ProductsCreated),
		zap.Int("skipped", result.Skipped),
	)
	return nil
}
