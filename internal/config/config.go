// Package config loads process configuration from an optional YAML file
// overlaid with FUNNEL_-prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Model     ModelConfig     `koanf:"model"`
	Storage   StorageConfig   `koanf:"storage"`
	Packs     PacksConfig     `koanf:"packs"`
	Inventory InventoryConfig `koanf:"inventory"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
}

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type ModelConfig struct {
	APIKey         string `koanf:"api_key"`
	BaseURL        string `koanf:"base_url"`
	Name           string `koanf:"name"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
}

type StorageConfig struct {
	// Path is the SQLite database file for the trace store.
	Path string `koanf:"path"`
}

type PacksConfig struct {
	Dir string `koanf:"dir"`
}

type InventoryConfig struct {
	Services    string `koanf:"services"`
	Members     string `koanf:"members"`
	Sectors     string `koanf:"sectors"`
	Departments string `koanf:"departments"`
}

type PipelineConfig struct {
	// ModelProposals selects the model-backed facet source instead of the
	// deterministic pack lookup.
	ModelProposals bool `koanf:"model_proposals"`

	// ModelRanking selects the model-assisted ranker instead of the
	// deterministic one.
	ModelRanking bool `koanf:"model_ranking"`

	MaxFacetQuestions int `koanf:"max_facet_questions"`
	MaxRefineRounds   int `koanf:"max_refine_rounds"`
}

// Load reads configPath (skipped when absent) and the environment.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		}
	}

	// Keys are two levels deep, so only the first underscore separates the
	// section: FUNNEL_MODEL_API_KEY -> model.api_key.
	if err := k.Load(env.Provider("FUNNEL_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "FUNNEL_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	defaults := map[string]any{
		"server.host":                  "0.0.0.0",
		"server.port":                  8000,
		"model.name":                   "o3-mini-2025-01-31",
		"model.timeout_seconds":        120,
		"storage.path":                 "./data/trace.db",
		"packs.dir":                    "./packs",
		"inventory.services":           "./inventory/services.json",
		"inventory.members":            "./inventory/members.json",
		"inventory.sectors":            "./inventory/sectors.json",
		"inventory.departments":        "./inventory/departments.json",
		"pipeline.model_proposals":     true,
		"pipeline.model_ranking":       false,
		"pipeline.max_facet_questions": 10,
		"pipeline.max_refine_rounds":   2,
	}
	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
