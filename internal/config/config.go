package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	WorkDir   string
	DBPath    string
	RawDir    string
	OutputDir string

	OSHWAAPIBaseURL        string
	OSHWAAPIToken          string
	OSHWARateLimitInterval int
	OSHWATimeoutMs         int
	OSHWABatchSize         int

	NormalizeWorkers int

	ListenerSchedule   string
	ListenerFetchers   []string
	ListenerAutoExport bool

	LogLevel string
	LogJSON  bool
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	workDir := getEnv("WORK_DIR", filepath.Join(cwd, "workdir"))
	cfg := Config{
		WorkDir:   workDir,
		DBPath:    getEnv("DB_PATH", filepath.Join(workDir, "krawler.db")),
		RawDir:    getEnv("RAW_DIR", filepath.Join(workDir, "raw")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		OSHWAAPIBaseURL:        getEnv("OSHWA_API_BASE_URL", "https://certificationapi.oshwa.org/api"),
		OSHWAAPIToken:          getEnv("OSHWA_API_TOKEN", ""),
		OSHWARateLimitInterval: getEnvInt("OSHWA_RATE_LIMIT_INTERVAL_MS", 1000),
		OSHWATimeoutMs:         getEnvInt("OSHWA_TIMEOUT_MS", 15000),
		OSHWABatchSize:         getEnvInt("OSHWA_BATCH_SIZE", 50),

		NormalizeWorkers: getEnvInt("NORMALIZE_WORKERS", 4),

		ListenerSchedule:   getEnv("LISTENER_SCHEDULE", "@every 6h"),
		ListenerFetchers:   getEnvList("LISTENER_FETCHERS", []string{"oshwa"}),
		ListenerAutoExport: getEnvBool("LISTENER_AUTO_EXPORT", true),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogJSON:  getEnvBool("LOG_JSON", false),
	}

	return cfg, nil
}

// StateDir holds the per-fetcher cursor files.
func (c Config) StateDir() string {
	return filepath.Join(c.WorkDir, "__fetcher__")
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := strings.TrimSpace(getEnv(key, ""))
	if value == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	if value == "1" || value == "true" || value == "yes" || value == "on" {
		return true
	}
	if value == "0" || value == "false" || value == "no" || value == "off" {
		return false
	}
	return fallback
}
