package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.World.Width != 5000 || cfg.World.Height != 5000 {
		t.Errorf("expected 5000x5000 world, got %vx%v", cfg.World.Width, cfg.World.Height)
	}
	if cfg.World.MaxFood != 1000 {
		t.Errorf("expected max_food 1000, got %d", cfg.World.MaxFood)
	}
	if cfg.Player.MergeCooldown != 15*time.Second {
		t.Errorf("expected 15s merge cooldown, got %v", cfg.Player.MergeCooldown)
	}
	if cfg.Portal.WaveInterval != 10*time.Second {
		t.Errorf("expected 10s wave interval, got %v", cfg.Portal.WaveInterval)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arena.yaml")
	data := []byte("world:\n  max_food: 12\nnetwork:\n  batch_size: 3\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.World.MaxFood != 12 {
		t.Errorf("expected overlay max_food 12, got %d", cfg.World.MaxFood)
	}
	if cfg.Network.BatchSize != 3 {
		t.Errorf("expected overlay batch_size 3, got %d", cfg.Network.BatchSize)
	}
	// Untouched keys keep their defaults
	if cfg.World.MaxVirus != 50 {
		t.Errorf("expected default max_virus 50, got %d", cfg.World.MaxVirus)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv(EnvAdminPass, "hunter2")
	t.Setenv(EnvAddr, ":9999")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Admin.Password != "hunter2" {
		t.Errorf("expected admin password from env, got %q", cfg.Admin.Password)
	}
	if cfg.Server.Addr != ":9999" {
		t.Errorf("expected addr from env, got %q", cfg.Server.Addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.World.Width = 0 }},
		{"oversized world", func(c *Config) { c.World.Height = 40000 }},
		{"zero tick rate", func(c *Config) { c.Network.TickRate = 0 }},
		{"zero batch", func(c *Config) { c.Network.BatchSize = 0 }},
		{"slow base", func(c *Config) { c.Player.SlowBase = 1 }},
		{"virus range", func(c *Config) { c.Virus.MassFrom = 200 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
