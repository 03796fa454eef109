package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TRIAGE_DB", "TRIAGE_CATALOG_DIR", "TRIAGE_LLM", "TRIAGE_EMBED",
		"TRIAGE_EMBED_ENDPOINT", "TRIAGE_EMBED_API_KEY", "TRIAGE_MIN_SIMILARITY",
		"OPENROUTER_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestResolveConfig_FileLayer(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
db_path: /var/lib/triage/triage.db
llm:
  provider: google/gemini-2.5-flash
  api_key: file-key
embed:
  provider: ollama
  min_similarity: "0.7"
`)

	cfg, err := ResolveConfig(ResolveOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DBPath.Value != "/var/lib/triage/triage.db" || cfg.DBPath.Source != SourceConfig {
		t.Errorf("db path: %+v", cfg.DBPath)
	}
	if cfg.DBPath.From != path {
		t.Errorf("db path provenance: %q", cfg.DBPath.From)
	}
	if cfg.EmbedProvider.Value != "ollama" {
		t.Errorf("embed provider: %+v", cfg.EmbedProvider)
	}
	if cfg.MinSimilarity.Value != "0.7" {
		t.Errorf("min similarity: %+v", cfg.MinSimilarity)
	}
	key := cfg.APIKeyForProvider("google/gemini-2.5-flash")
	if key.Value != "file-key" || key.Source != SourceConfig {
		t.Errorf("llm key from file: %+v", key)
	}
}

func TestResolveConfig_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "db_path: /from/file.db\n")

	t.Setenv("TRIAGE_DB", "/from/env.db")
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, err := ResolveConfig(ResolveOptions{ConfigPath: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DBPath.Value != "/from/env.db" || cfg.DBPath.Source != SourceEnv || cfg.DBPath.From != "TRIAGE_DB" {
		t.Errorf("env must override file: %+v", cfg.DBPath)
	}
	if key := cfg.APIKeyForProvider("google"); key.Value != "env-key" || key.From != "GEMINI_API_KEY" {
		t.Errorf("google key: %+v", key)
	}
}

func TestResolveConfig_CLIOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TRIAGE_DB", "/from/env.db")
	t.Setenv("TRIAGE_LLM", "google")

	cfg, err := ResolveConfig(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		CLIDBPath:  "/from/cli.db",
		CLILLM:     "openrouter/openai/gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DBPath.Value != "/from/cli.db" || cfg.DBPath.Source != SourceCLI || cfg.DBPath.From != "--db" {
		t.Errorf("cli must override env: %+v", cfg.DBPath)
	}
	if cfg.LLMProvider.Value != "openrouter/openai/gpt-4o-mini" || cfg.LLMProvider.Source != SourceCLI {
		t.Errorf("llm provider: %+v", cfg.LLMProvider)
	}
}

func TestResolveConfig_MissingFileIsNotAnError(t *testing.T) {
	clearEnv(t)
	cfg, err := ResolveConfig(ResolveOptions{ConfigPath: filepath.Join(t.TempDir(), "nope.yaml")})
	if err != nil {
		t.Fatalf("missing config file must not fail: %v", err)
	}
	if cfg.DBPath.Value != "" {
		t.Errorf("expected empty db path, got %+v", cfg.DBPath)
	}
}

func TestResolveConfig_BadYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "db_path: [unclosed\n")
	if _, err := ResolveConfig(ResolveOptions{ConfigPath: path}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAPIKeyForProvider_Fallbacks(t *testing.T) {
	cfg := ResolvedConfig{LLMKeys: map[string]ResolvedValue{
		"default": {Value: "fallback-key", Source: SourceConfig},
	}}

	if key := cfg.APIKeyForProvider("openrouter/some/model"); key.Value != "fallback-key" {
		t.Errorf("expected default fallback, got %+v", key)
	}
	if key := cfg.APIKeyForProvider(""); key.Value != "" {
		t.Errorf("empty provider must yield empty key, got %+v", key)
	}
}

func TestExpandUserPath(t *testing.T) {
	clearEnv(t)
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}

	cfg, err := ResolveConfig(ResolveOptions{
		ConfigPath: filepath.Join(t.TempDir(), "missing.yaml"),
		CLIDBPath:  "~/.triage/triage.db",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(home, ".triage", "triage.db"); cfg.DBPath.Value != want {
		t.Errorf("expected %q, got %q", want, cfg.DBPath.Value)
	}
}
