// Package config loads the arena configuration from embedded defaults, an
// optional YAML overlay and the process environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultAdminPassword is the shipped admin password. Deployments should
// override it.
const DefaultAdminPassword = "DEFAULT"

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds every tunable of the arena server.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	World   WorldConfig   `yaml:"world"`
	Player  PlayerConfig  `yaml:"player"`
	Virus   VirusConfig   `yaml:"virus"`
	Portal  PortalConfig  `yaml:"portal"`
	Network NetworkConfig `yaml:"network"`
	Admin   AdminConfig   `yaml:"admin"`
}

// ServerConfig holds process level settings.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	ClientDir    string `yaml:"client_dir"`
	DBPath       string `yaml:"db_path"`       // empty disables persistence
	PublicURL    string `yaml:"public_url"`    // encoded in /invite.png
	TelemetryDir string `yaml:"telemetry_dir"` // empty disables telemetry
}

// WorldConfig holds world dimensions and population caps.
type WorldConfig struct {
	Width         float64 `yaml:"width"`
	Height        float64 `yaml:"height"`
	GameMass      float64 `yaml:"game_mass"` // target total mass kept by balancing
	MaxFood       int     `yaml:"max_food"`
	MaxVirus      int     `yaml:"max_virus"`
	MaxPortal     int     `yaml:"max_portal"`
	MaxMassFood   int     `yaml:"max_mass_food"`
	MaxPlayers    int     `yaml:"max_players"`
	FoodMass      float64 `yaml:"food_mass"`
	FoodUniform   bool    `yaml:"food_uniform"`
	SpawnFarthest bool    `yaml:"spawn_farthest"`
}

// PlayerConfig holds cell and player rules.
type PlayerConfig struct {
	DefaultMass   float64       `yaml:"default_mass"`
	FireFood      float64       `yaml:"fire_food"`
	LimitSplit    int           `yaml:"limit_split"`
	SlowBase      float64       `yaml:"slow_base"`
	MassLossRate  float64       `yaml:"mass_loss_rate"` // per mille per balancing tick
	MinMassLoss   float64       `yaml:"min_mass_loss"`
	MergeCooldown time.Duration `yaml:"merge_cooldown"`
	MaxHeartbeat  time.Duration `yaml:"max_heartbeat"`
	MaxNameLength int           `yaml:"max_name_length"`
}

// VirusConfig holds virus spawn parameters.
type VirusConfig struct {
	MassFrom  float64 `yaml:"mass_from"`
	MassTo    float64 `yaml:"mass_to"`
	Uniform   bool    `yaml:"uniform"`
	SplitMass float64 `yaml:"split_mass"`
}

// PortalConfig holds portal wave timing.
type PortalConfig struct {
	MassFrom        float64       `yaml:"mass_from"`
	MassTo          float64       `yaml:"mass_to"`
	Uniform         bool          `yaml:"uniform"`
	WaveInterval    time.Duration `yaml:"wave_interval"`
	WarningDuration time.Duration `yaml:"warning_duration"`
	ActiveDuration  time.Duration `yaml:"active_duration"`
	MaxSimultaneous int           `yaml:"max_simultaneous"`
}

// NetworkConfig holds scheduler rates and broadcast tuning.
type NetworkConfig struct {
	TickRate      int     `yaml:"tick_rate"`    // physics ticks per second
	BalanceRate   int     `yaml:"balance_rate"` // balancing ticks per second
	UpdateRate    int     `yaml:"update_rate"`  // broadcast passes per second
	BatchSize     int     `yaml:"batch_size"`   // connections served per dispatch turn
	Delta         bool    `yaml:"delta"`
	ViewMargin    float64 `yaml:"view_margin"`
	MaxViolations int     `yaml:"max_violations"`
	SendBuffer    int     `yaml:"send_buffer"`
}

// AdminConfig holds admin credentials.
type AdminConfig struct {
	Password string        `yaml:"password"`
	TokenTTL time.Duration `yaml:"token_ttl"`
}

// Environment variables that override loaded values.
const (
	EnvAddr      = "ARENA_ADDR"
	EnvAdminPass = "ARENA_ADMIN_PASS"
	EnvDB        = "ARENA_DB"
	EnvPublicURL = "ARENA_PUBLIC_URL"
)

// Default returns the embedded defaults.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		panic("config: embedded defaults: " + err.Error())
	}
	return cfg
}

// Load starts from the embedded defaults, overlays the YAML file at path (if
// any) and applies environment overrides. A .env file in the working
// directory is loaded first when present.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only keys present in the file are overwritten
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvAdminPass); v != "" {
		c.Admin.Password = v
	}
	if v, ok := os.LookupEnv(EnvDB); ok {
		c.Server.DBPath = v
	}
	if v := os.Getenv(EnvPublicURL); v != "" {
		c.Server.PublicURL = v
	}
}

// Validate rejects configurations the simulation cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.World.Width <= 0 || c.World.Height <= 0:
		return fmt.Errorf("config: world size must be positive, got %vx%v", c.World.Width, c.World.Height)
	case c.World.Width > 32767 || c.World.Height > 32767:
		return fmt.Errorf("config: world size must fit the wire format (<= 32767)")
	case c.World.FoodMass <= 0:
		return fmt.Errorf("config: food_mass must be positive")
	case c.Player.DefaultMass <= 0:
		return fmt.Errorf("config: default_mass must be positive")
	case c.Player.SlowBase <= 1:
		return fmt.Errorf("config: slow_base must be greater than 1")
	case c.Player.LimitSplit < 1:
		return fmt.Errorf("config: limit_split must be at least 1")
	case c.Network.TickRate <= 0 || c.Network.BalanceRate <= 0 || c.Network.UpdateRate <= 0:
		return fmt.Errorf("config: tick, balance and update rates must be positive")
	case c.Network.BatchSize <= 0:
		return fmt.Errorf("config: batch_size must be positive")
	case c.Virus.MassTo < c.Virus.MassFrom || c.Portal.MassTo < c.Portal.MassFrom:
		return fmt.Errorf("config: mass ranges must satisfy mass_from <= mass_to")
	}
	return nil
}
