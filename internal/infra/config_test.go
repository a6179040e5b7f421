package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

const minimalConfig = `
app:
  name: StockGo
feed:
  instruments:
    - { symbol: TCS, name: Tata Consultancy Services, price: 3900.0 }
`

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Engine.TickIntervalSec != 5 {
		t.Errorf("expected default tick interval 5, got %d", cfg.Engine.TickIntervalSec)
	}
	if cfg.Engine.Workers != 4 {
		t.Errorf("expected default workers 4, got %d", cfg.Engine.Workers)
	}
	if cfg.Feed.MinMoves != 5 || cfg.Feed.MaxMoves != 15 {
		t.Errorf("expected default move range 5-15, got %d-%d", cfg.Feed.MinMoves, cfg.Feed.MaxMoves)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %s", cfg.Server.Addr)
	}
	if cfg.Storage.Path == "" {
		t.Error("expected a default storage path")
	}
}

func TestLoadConfig_SecretFromEnv(t *testing.T) {
	t.Setenv("STOCKGO_TOKEN_KEY", "super-secret")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Secrets.TokenKey != "super-secret" {
		t.Errorf("expected secret from env, got %q", cfg.Secrets.TokenKey)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no instruments", "app:\n  name: x\n"},
		{"instrument without symbol", `
feed:
  instruments:
    - { name: Nameless, price: 100.0 }
`},
		{"non-positive seed price", `
feed:
  instruments:
    - { symbol: TCS, name: TCS, price: 0 }
`},
		{"inverted move range", `
feed:
  min_moves: 9
  max_moves: 3
  instruments:
    - { symbol: TCS, name: TCS, price: 100.0 }
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, tc.body)); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
