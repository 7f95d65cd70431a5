package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/cadvi/internal/application/pipeline"
	"github.com/sawpanic/cadvi/internal/backtest/montecarlo"
	"github.com/sawpanic/cadvi/internal/domain/market"
	httpapi "github.com/sawpanic/cadvi/internal/interfaces/http"
	applog "github.com/sawpanic/cadvi/internal/log"
	"github.com/sawpanic/cadvi/internal/providers/coinmarketcap"
)

// Environment variables read after the YAML file
const (
	EnvAPIKey   = "CMC_API_KEY"
	EnvLogLevel = "CADVI_LOG_LEVEL"
	EnvHTTPPort = "HTTP_PORT"
)

// DefaultPath is used when no --config flag is given
const DefaultPath = "config/cadvi.yaml"

// Config is the complete application configuration
type Config struct {
	Log        applog.Config         `yaml:"log"`
	Provider   coinmarketcap.Config  `yaml:"provider"`
	Universe   market.UniverseConfig `yaml:"universe"`
	Scan       *pipeline.Config      `yaml:"scan"`
	Simulation *montecarlo.Config    `yaml:"simulation"`
	Server     httpapi.ServerConfig  `yaml:"server"`

	// ListingLimit is how many listings one fetch requests
	ListingLimit int `yaml:"listing_limit"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Log:          applog.DefaultConfig(),
		Provider:     coinmarketcap.DefaultConfig(),
		Universe:     market.DefaultUniverseConfig(),
		Scan:         pipeline.DefaultConfig(),
		Simulation:   montecarlo.DefaultConfig(),
		Server:       httpapi.DefaultServerConfig(),
		ListingLimit: 200,
	}
}

// Load reads defaults, then the YAML file at path (if it exists), then the
// .env file and process environment. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
			log.Debug().Str("path", path).Msg("No config file, using defaults")
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Msg("Could not load .env file")
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnv overlays environment values using lookup
func (c *Config) applyEnv(lookup func(string) string) error {
	if key := strings.TrimSpace(lookup(EnvAPIKey)); key != "" {
		c.Provider.APIKey = key
	}
	if level := strings.TrimSpace(lookup(EnvLogLevel)); level != "" {
		c.Log.Level = level
	}
	if port := strings.TrimSpace(lookup(EnvHTTPPort)); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvHTTPPort, port, err)
		}
		c.Server.Port = p
	}
	return nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if c.Scan == nil {
		c.Scan = pipeline.DefaultConfig()
	}
	if c.Simulation == nil {
		c.Simulation = montecarlo.DefaultConfig()
	}

	if err := c.Scan.Validate(); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if err := c.Provider.Validate(); err != nil {
		return fmt.Errorf("provider: %w", err)
	}
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if c.ListingLimit <= 0 || c.ListingLimit > 5000 {
		return fmt.Errorf("listing limit %d outside [1,5000]", c.ListingLimit)
	}
	return nil
}

// Save writes the configuration as YAML; the API key is never written
func Save(c *Config, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
