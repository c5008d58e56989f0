package config

import (
	"log"
	"os"
	"strconv"
)

type Config struct {
	Port                   string
	DBDSN                  string
	ProductsFile           string
	LogFile                string
	PickLogDir             string
	AutoModeThreshold      int
	PickTimeoutMinutes     int
	CleanupIntervalMinutes int
	AutoCleanupHours       int
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "pickhub.db"
	} // sqlite file in project root
	products := os.Getenv("PRODUCTS_FILE")
	if products == "" {
		products = "./data/products.json"
	}
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "./pickhub.log"
	}
	pickLogDir := os.Getenv("PICK_LOG_DIR")
	if pickLogDir == "" {
		pickLogDir = "./storage/logs" // completion logs per finished request
	}

	cfg := Config{
		Port:                   port,
		DBDSN:                  dsn,
		ProductsFile:           products,
		LogFile:                logFile,
		PickLogDir:             pickLogDir,
		AutoModeThreshold:      intEnv("AUTO_MODE_THRESHOLD", 10),
		PickTimeoutMinutes:     intEnv("PICK_TIMEOUT_MINUTES", 30),
		CleanupIntervalMinutes: intEnv("CLEANUP_INTERVAL_MINUTES", 60),
		AutoCleanupHours:       intEnv("AUTO_CLEANUP_HOURS", 24),
	}
	log.Printf("[config] PORT=%s DB_DSN=%s PRODUCTS_FILE=%s LOG_FILE=%s PICK_LOG_DIR=%s AUTO_MODE_THRESHOLD=%d",
		cfg.Port, cfg.DBDSN, cfg.ProductsFile, cfg.LogFile, cfg.PickLogDir, cfg.AutoModeThreshold)
	return cfg
}

func intEnv(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		log.Printf("[config] ignoring invalid %s=%q", key, s)
		return def
	}
	return n
}
