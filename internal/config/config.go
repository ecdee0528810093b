// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting the binary reads from the environment.
type Config struct {
	// Port is the HTTP listen port for the API server.
	Port int
	// DatabaseURL is the Postgres connection string. Empty disables
	// persistence.
	DatabaseURL string
	// Models are the candidate model identifiers fitted by default.
	Models []string
	// NullModel, when non-empty, names the null for likelihood-ratio tests.
	NullModel string
	// Corrected selects AICc instead of AIC.
	Corrected bool
	// Workers bounds concurrent fits; zero means GOMAXPROCS.
	Workers int
	// OutputDir is where report files are written.
	OutputDir string
}

// Load reads the environment into a Config. A .env file in the working
// directory is merged in first when present; real environment variables win.
func Load() (Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Printf("[Config] loaded .env")
	}

	cfg := Config{
		Port:        8080,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Models:      []string{"logseries", "mete", "trun_plognorm"},
		NullModel:   os.Getenv("MACROSAD_NULL_MODEL"),
		OutputDir:   ".",
	}

	if v := os.Getenv("MACROSAD_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("MACROSAD_PORT: %w", err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("MACROSAD_MODELS"); v != "" {
		cfg.Models = splitList(v)
	}
	if v := os.Getenv("MACROSAD_CORRECTED"); v != "" {
		corrected, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("MACROSAD_CORRECTED: %w", err)
		}
		cfg.Corrected = corrected
	}
	if v := os.Getenv("MACROSAD_WORKERS"); v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("MACROSAD_WORKERS: %w", err)
		}
		cfg.Workers = workers
	}
	if v := os.Getenv("MACROSAD_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	return cfg, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
