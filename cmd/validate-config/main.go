package main

import (
	"fmt"
	"os"

	"fridge/infrastructure/config"
)

func main() {
	fmt.Println("Checking configuration...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Configuration is invalid:\n%v\n", err)
		os.Exit(1)
	}

	fmt.Println("Configuration is valid.")
	fmt.Println("Resolved values:")
	fmt.Printf("  - Listen address: %s\n", cfg.Addr)
	fmt.Printf("  - SQLite path: %s\n", cfg.SQLitePath)
	fmt.Printf("  - Log: %s (%s)\n", cfg.LogLevel, cfg.LogFormat)
	fmt.Printf("  - Call timeout: %s\n", cfg.CallTimeout)
	fmt.Printf("  - FoodData Central: %s key=%s\n", cfg.FDCBaseURL, maskToken(cfg.FDCAPIKey))
	fmt.Printf("  - Inventory API: %s\n", orLocal(cfg.InventoryAPIURL, "local sqlite store"))
	fmt.Printf("  - Upload API: %s\n", orLocal(cfg.UploadAPIURL, "not set"))
	fmt.Printf("  - Upload max bytes: %d\n", cfg.UploadMaxBytes)
	fmt.Printf("  - Gemini: %s key=%s\n", cfg.GeminiModel, maskToken(cfg.GeminiAPIKey))
	fmt.Printf("  - Redis: %s db=%d password=%s\n", orLocal(cfg.RedisAddr, "in-memory cache"), cfg.RedisDB, maskToken(cfg.RedisPassword))
	fmt.Printf("  - Lookup cache TTL: %s\n", cfg.LookupCacheTTL)
	fmt.Printf("  - S3: bucket=%s region=%s prefix=%s access=%s secret=%s\n",
		orLocal(cfg.S3Bucket, "disabled"), cfg.S3Region, cfg.S3Prefix, maskToken(cfg.S3AccessKey), maskToken(cfg.S3SecretKey))
}

func orLocal(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func maskToken(token string) string {
	if token == "" {
		return "<not set>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
