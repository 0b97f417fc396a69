package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("server port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Model.Name != "o3-mini-2025-01-31" {
		t.Errorf("model name = %q", cfg.Model.Name)
	}
	if cfg.Model.TimeoutSeconds != 120 {
		t.Errorf("model timeout = %d, want 120", cfg.Model.TimeoutSeconds)
	}
	if cfg.Storage.Path != "./data/trace.db" {
		t.Errorf("storage path = %q", cfg.Storage.Path)
	}
	if cfg.Packs.Dir != "./packs" {
		t.Errorf("packs dir = %q", cfg.Packs.Dir)
	}
	if !cfg.Pipeline.ModelProposals || cfg.Pipeline.ModelRanking {
		t.Errorf("pipeline switches = %+v, want proposals on, ranking off", cfg.Pipeline)
	}
	if cfg.Pipeline.MaxFacetQuestions != 10 || cfg.Pipeline.MaxRefineRounds != 2 {
		t.Errorf("pipeline limits = %+v, want 10/2", cfg.Pipeline)
	}
}

func TestLoad_FileAndEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9000
model:
  name: from-file
packs:
  dir: /srv/packs
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	// Env wins over the file.
	t.Setenv("FUNNEL_MODEL_NAME", "from-env")
	t.Setenv("FUNNEL_MODEL_API_KEY", "sk-env")
	t.Setenv("FUNNEL_PIPELINE_MAX_REFINE_ROUNDS", "4")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("server port = %d, want file value 9000", cfg.Server.Port)
	}
	if cfg.Model.Name != "from-env" {
		t.Errorf("model name = %q, want env override", cfg.Model.Name)
	}
	if cfg.Model.APIKey != "sk-env" {
		t.Errorf("api key = %q, want env value", cfg.Model.APIKey)
	}
	if cfg.Packs.Dir != "/srv/packs" {
		t.Errorf("packs dir = %q, want file value", cfg.Packs.Dir)
	}
	if cfg.Pipeline.MaxRefineRounds != 4 {
		t.Errorf("max refine rounds = %d, want env override 4", cfg.Pipeline.MaxRefineRounds)
	}
}

func TestLoad_MissingFileIsSkipped(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("server port = %d, want default", cfg.Server.Port)
	}
}
