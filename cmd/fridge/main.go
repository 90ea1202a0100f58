package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fridge/frontend/additem"
	"fridge/frontend/inventory"
	"fridge/infrastructure/audit"
	"fridge/infrastructure/cache"
	"fridge/infrastructure/config"
	"fridge/infrastructure/fooddata"
	"fridge/infrastructure/fridgeapi"
	httpserver "fridge/infrastructure/http"
	"fridge/infrastructure/logging"
	"fridge/infrastructure/mediaparse"
	"fridge/infrastructure/scanner"
	"fridge/infrastructure/sqlite"
	"fridge/infrastructure/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	db, err := sqlite.OpenDB(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := sqlite.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	store := inventory.NewStore(db, audit.NewService())
	httpClient := &http.Client{Timeout: cfg.CallTimeout}

	deps := additem.Deps{
		Lookup:      productLookup(cfg, httpClient),
		Recorder:    store,
		CallTimeout: cfg.CallTimeout,
	}

	var creator additem.InventoryCreator = store
	var remote *fridgeapi.Client
	if cfg.InventoryAPIURL != "" || cfg.UploadAPIURL != "" {
		remote = fridgeapi.NewClient(cfg.InventoryAPIURL, cfg.UploadAPIURL, httpClient)
	}
	if cfg.UseRemoteInventory() {
		creator = remote
		slog.Info("inventory items are created through the remote api", slog.String("url", cfg.InventoryAPIURL))
	}
	deps.Submitter = additem.NewSubmitter(creator, cfg.CallTimeout)

	switch {
	case cfg.UploadAPIURL != "":
		deps.Parser = remote
	case cfg.GeminiAPIKey != "":
		parser, err := mediaparse.NewGeminiParser(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Fatalf("init gemini parser: %v", err)
		}
		defer parser.Close()
		deps.Parser = parser
	default:
		slog.Warn("no media parser configured; bulk upload is disabled")
	}

	if cfg.S3Bucket != "" {
		archive, err := storage.NewS3Archive(ctx, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			log.Fatalf("init s3 archive: %v", err)
		}
		deps.Archive = archive
	}

	registry := additem.NewRegistry(deps, scanner.NewHub(scanner.NewFrameDecoder()))
	server := httpserver.NewServer(cfg.Addr, db, cache.NewHouseholdCache(), store, registry, cfg.UploadMaxBytes)
	if err := server.Start(); err != nil {
		log.Fatalf("start server: %v", err)
	}
	slog.Info("fridge listening", slog.String("addr", cfg.Addr))

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go server.RunIdleSweeper(sweepCtx, sweepInterval(cfg.HouseholdIdleTTL), cfg.HouseholdIdleTTL)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	stopSweep()

	if err := server.Stop(); err != nil {
		slog.Error("graceful shutdown error", slog.Any("err", err))
	}
}

func sweepInterval(ttl time.Duration) time.Duration {
	if interval := ttl / 4; interval > time.Second {
		return interval
	}
	return time.Second
}

// productLookup wraps the FoodData Central client with redis when configured,
// otherwise with an in-process cache.
func productLookup(cfg *config.Config, httpClient *http.Client) additem.ProductLookup {
	client := fooddata.NewClient(cfg.FDCBaseURL, cfg.FDCAPIKey, httpClient)
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedisProductCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			return fooddata.NewCachedLookup(client, redisCache, cfg.LookupCacheTTL)
		}
		slog.Warn("redis unavailable; using in-memory lookup cache", slog.String("addr", cfg.RedisAddr), slog.Any("err", err))
	}
	return fooddata.NewCachedLookup(client, cache.NewProductCache(), cfg.LookupCacheTTL)
}
