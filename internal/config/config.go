// Package config loads and holds all converter configuration.
// Settings start from built-in defaults, are overridden by
// medirecord-config.json (or the file given with --config), and finally by
// environment variables.
package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
	"strings"
)

// DefaultFile is read when no explicit config path is given.
const DefaultFile = "medirecord-config.json"

// Anonymization scopes.
const (
	ScopeDocument = "document" // substitute over the serialized JSON document
	ScopeFields   = "fields"   // substitute field by field before serializing
)

// Config holds the full converter configuration.
type Config struct {
	ReplacementListPath string `json:"replacementListPath"`
	AnonymizationSymbol string `json:"anonymizationSymbol"`
	Anonymize           bool   `json:"anonymize"`
	AnonymizeScope      string `json:"anonymizeScope"`
	ContinuationPolicy  string `json:"continuationPolicy"`
	LogLevel            string `json:"logLevel"`

	BindAddress     string `json:"bindAddress"`
	ManagementPort  int    `json:"managementPort"`
	ManagementToken string `json:"managementToken"`
	MaxInputBytes   int64  `json:"maxInputBytes"`
}

// Load returns config with defaults overridden by medirecord-config.json and
// env vars.
func Load() *Config {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file. An empty path means
// DefaultFile.
func LoadFrom(path string) *Config {
	if path == "" {
		path = DefaultFile
	}
	cfg := defaults()
	loadFile(cfg, path)
	loadEnv(cfg)
	normalize(cfg)
	return cfg
}

func defaults() *Config {
	return &Config{
		ReplacementListPath: "replacement_list.txt",
		AnonymizationSymbol: "●●",
		Anonymize:           true,
		AnonymizeScope:      ScopeDocument,
		ContinuationPolicy:  "heuristic",
		LogLevel:            "info",
		BindAddress:         "127.0.0.1",
		ManagementPort:      8090,
		MaxInputBytes:       4 << 20,
	}
}

func loadFile(cfg *Config, path string) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied config path
	if err != nil {
		return // file is optional
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Printf("[CONFIG] Warning: could not parse %s: %v", path, err)
	} else {
		log.Printf("[CONFIG] Loaded %s", path)
	}
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("REPLACEMENT_LIST_PATH"); v != "" {
		cfg.ReplacementListPath = v
	}
	if v := os.Getenv("ANONYMIZATION_SYMBOL"); v != "" {
		cfg.AnonymizationSymbol = v
	}
	if v := os.Getenv("ANONYMIZE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Anonymize = b
		}
	}
	if v := os.Getenv("ANONYMIZE_SCOPE"); v != "" {
		cfg.AnonymizeScope = v
	}
	if v := os.Getenv("CONTINUATION_POLICY"); v != "" {
		cfg.ContinuationPolicy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BIND_ADDRESS"); v != "" {
		cfg.BindAddress = v
	}
	if v := os.Getenv("MANAGEMENT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ManagementPort = n
		}
	}
	if v := os.Getenv("MANAGEMENT_TOKEN"); v != "" {
		cfg.ManagementToken = v
	}
	if v := os.Getenv("MAX_INPUT_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxInputBytes = n
		}
	}
}

// normalize folds case and resets unknown enum values to their defaults.
func normalize(cfg *Config) {
	d := defaults()

	cfg.AnonymizeScope = strings.ToLower(strings.TrimSpace(cfg.AnonymizeScope))
	if cfg.AnonymizeScope != ScopeDocument && cfg.AnonymizeScope != ScopeFields {
		log.Printf("[CONFIG] Warning: unknown anonymizeScope %q, using %q", cfg.AnonymizeScope, d.AnonymizeScope)
		cfg.AnonymizeScope = d.AnonymizeScope
	}

	cfg.ContinuationPolicy = strings.ToLower(strings.TrimSpace(cfg.ContinuationPolicy))
	if cfg.ContinuationPolicy != "heuristic" && cfg.ContinuationPolicy != "comment" {
		log.Printf("[CONFIG] Warning: unknown continuationPolicy %q, using %q", cfg.ContinuationPolicy, d.ContinuationPolicy)
		cfg.ContinuationPolicy = d.ContinuationPolicy
	}

	if cfg.AnonymizationSymbol == "" {
		cfg.AnonymizationSymbol = d.AnonymizationSymbol
	}
	if cfg.MaxInputBytes <= 0 {
		cfg.MaxInputBytes = d.MaxInputBytes
	}
}
