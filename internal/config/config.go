package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// AppConfig holds the process-level settings: where the case log lives and where
// logs and reports go. Run parameters live in Scenario.
type AppConfig struct {
	DataPath string
	LogDir   string
	// DatasetPath is the canonical case-event JSONL file.
	DatasetPath string
	ReportDir   string
	// OpenReports opens every written HTML report in the default browser.
	OpenReports bool
}

// Load reads .env files (binary directory first, then the working directory)
// and resolves paths from the environment.
func Load() (*AppConfig, error) {
	exeDir := loadDotEnv()

	dataPath := getEnv("DATA_PATH", exeDir)
	if dataPath == "" {
		dataPath = "."
	}

	cfg := &AppConfig{
		DataPath:    dataPath,
		LogDir:      resolve(dataPath, getEnv("LOGS_FOLDER", "logs")),
		DatasetPath: resolve(dataPath, getEnv("DATASET_PATH", "cases.jsonl")),
		ReportDir:   resolve(dataPath, getEnv("REPORTS_FOLDER", "reports")),
		OpenReports: getEnvBool("OPEN_REPORTS", false),
	}

	if err := os.MkdirAll(cfg.ReportDir, 0755); err != nil {
		log.Warn().Err(err).Str("path", cfg.ReportDir).Msg("Failed to create report directory")
	}
	if _, err := os.Stat(cfg.DatasetPath); err != nil {
		log.Debug().Str("path", cfg.DatasetPath).Msg("Case log not found yet; commands that need history will fail")
	}

	return cfg, nil
}

// loadDotEnv loads .env files without overriding variables already set and
// returns the executable's directory ("" when unknown).
func loadDotEnv() string {
	exeDir := ""
	if exePath, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}
	return exeDir
}

// resolve anchors relative paths at the data directory.
func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
