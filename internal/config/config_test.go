package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, env, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "config", env+".yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(old) })
}

const minimalConfig = `
http:
  port: 8000
database:
  addrs: ["localhost:6379"]
catalog:
  cards_file: data/cards.json
`

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "test", minimalConfig)
	chdir(t, dir)

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Index.HNSWM != 16 {
		t.Errorf("HNSWM default: got %d, want 16", cfg.Index.HNSWM)
	}
	if cfg.Index.HNSWEFConstruct != 10000 {
		t.Errorf("HNSWEFConstruct default: got %d, want 10000", cfg.Index.HNSWEFConstruct)
	}
	if cfg.Index.CardsThreshold != 0.4 {
		t.Errorf("CardsThreshold default: got %v, want 0.4", cfg.Index.CardsThreshold)
	}
	if cfg.Index.RulesLasso != 0.05 {
		t.Errorf("RulesLasso default: got %v, want 0.05", cfg.Index.RulesLasso)
	}
	if cfg.Matcher.MinRatio != 85 {
		t.Errorf("MinRatio default: got %d, want 85", cfg.Matcher.MinRatio)
	}
	if cfg.Storage.KeyPrefix != "cardseer:" {
		t.Errorf("KeyPrefix default: got %q", cfg.Storage.KeyPrefix)
	}
	if cfg.Database.Driver != "valkey" {
		t.Errorf("Driver default: got %q, want valkey", cfg.Database.Driver)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "test", `
http:
  port: 8000
database:
  addrs: ["${CARDSEER_DB_ADDR:-localhost:6379}"]
  password: "${CARDSEER_DB_PASSWORD}"
catalog:
  cards_file: data/cards.json
embedding:
  provider:
    api_key: "${CARDSEER_API_KEY:-fallback-key}"
`)
	chdir(t, dir)
	t.Setenv("CARDSEER_DB_PASSWORD", "s3cret")

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Addrs[0] != "localhost:6379" {
		t.Errorf("default expansion: got %q", cfg.Database.Addrs[0])
	}
	if cfg.Database.Password != "s3cret" {
		t.Errorf("env expansion: got %q", cfg.Database.Password)
	}
	if cfg.Embedding.Provider.APIKey != "fallback-key" {
		t.Errorf("fallback expansion: got %q", cfg.Embedding.Provider.APIKey)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing port",
			body: "database:\n  addrs: [\"localhost:6379\"]\ncatalog:\n  cards_file: x.json\n",
			want: "http.port",
		},
		{
			name: "missing addrs",
			body: "http:\n  port: 8000\ncatalog:\n  cards_file: x.json\n",
			want: "database.addrs",
		},
		{
			name: "missing cards file",
			body: "http:\n  port: 8000\ndatabase:\n  addrs: [\"localhost:6379\"]\n",
			want: "catalog.cards_file",
		},
		{
			name: "ratio above 100",
			body: minimalConfig + "matcher:\n  min_ratio: 150\n",
			want: "matcher.min_ratio",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, "test", tc.body)
			chdir(t, dir)

			_, err := Load("test")
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("ENV", "")
	if env := GetEnv(); env != "local" {
		t.Errorf("default env: got %q, want local", env)
	}
	t.Setenv("ENV", "prod")
	if env := GetEnv(); env != "prod" {
		t.Errorf("env override: got %q, want prod", env)
	}
}
