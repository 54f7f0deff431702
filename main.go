package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bakery-storefront/bot"
	"bakery-storefront/config"
	"bakery-storefront/db"
	"bakery-storefront/logging"
	"bakery-storefront/services"
	"bakery-storefront/storage"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(cfg)
		return
	}

	if cfg.Telegram.Token == "" {
		logger.Fatal("TOKEN not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.UsesPostgres() {
		if err := db.Init(cfg.DB); err != nil {
			logger.Fatal("db", zap.Error(err))
		}
		defer db.Close()

		// Optional auto-migration (useful in production and for fresh DBs).
		// Set AUTO_MIGRATE=1 (or "true") to enable.
		if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
			if err := applyMigrations(ctx, false); err != nil {
				logger.Fatal("migrate", zap.Error(err))
			}
		}
	}

	store, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		logger.Fatal("storage", zap.Error(err))
	}
	defer closeStore()

	var served *services.Catalog
	if cfg.Storefront.CatalogFile != "" {
		c, ok, err := services.LoadCatalogFile(cfg.Storefront.CatalogFile)
		switch {
		case err != nil:
			logger.Warn("served catalog unavailable, using fallback", zap.Error(err))
		case ok:
			served = c
			logger.Info("served catalog loaded", zap.Int("items", c.Len()))
		}
	}

	var branding services.BrandingSource
	if cfg.Storefront.BrandingFile != "" {
		branding = services.BrandingFile(cfg.Storefront.BrandingFile)
	}

	jar, csrf, err := services.NewCookieJar(cfg.Storefront.BaseURL, cfg.Storefront.CSRFToken)
	if err != nil {
		logger.Fatal("cookie jar", zap.Error(err))
	}
	client := &http.Client{Jar: jar, Timeout: cfg.Storefront.HTTPTimeout}
	if cfg.Storefront.CSRFToken == "" {
		if err := services.PrimeCSRF(ctx, client, cfg.Storefront.BaseURL); err != nil {
			logger.Warn("could not fetch csrf cookie", zap.Error(err))
		}
	}
	checkout := services.NewCheckoutClient(cfg.Storefront.BaseURL, client, csrf, logger.Named("checkout"))

	var dataAPI services.DataAPI
	if cfg.Storefront.DataAPI == config.StoragePostgres {
		dataAPI = services.NewPostgresDataAPI(db.Pool, logger.Named("data_api"))
	}

	factory := func(ctx context.Context, chatID int64, n services.Notifier) (*services.Storefront, error) {
		deps := services.Deps{
			Store:         storage.NewScoped(store, "chat:"+strconv.FormatInt(chatID, 10)),
			ServedCatalog: served,
			Checkout:      checkout,
			Branding:      branding,
			Notifier:      n,
			Logger:        logger.With(zap.Int64("chat_id", chatID)),
			Now:           time.Now,
			DataAPI:       dataAPI,
		}
		return services.NewStorefront(ctx, deps)
	}

	b, err := bot.New(cfg, factory)
	if err != nil {
		logger.Fatal("bot", zap.Error(err))
	}
	logger.Info("storefront started",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("base_url", cfg.Storefront.BaseURL),
		zap.Bool("data_api", cfg.Storefront.DataAPI != ""),
	)
	b.Start(ctx)
}

// openStore opens the durable key-value store selected by STORAGE_DRIVER.
func openStore(cfg config.StorageConfig) (storage.Store, func(), error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return storage.NewMemory(), func() {}, nil
	case config.StoragePostgres:
		return storage.NewPostgres(db.Pool), func() {}, nil
	case config.StorageBolt, "":
		s, err := storage.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				zap.S().Warnf("close bolt: %v", err)
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Driver)
}

func runMigrate(cfg *config.Config) {
	if err := db.Init(cfg.DB); err != nil {
		fmt.Fprintln(os.Stderr, "db:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := applyMigrations(context.Background(), true); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}
