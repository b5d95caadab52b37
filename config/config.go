// Package config loads run configuration from YAML with .env overrides,
// and turns it into the value types the pricing core and engine consume.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/qodelabs/chaingreeks/models"
	"github.com/qodelabs/chaingreeks/pricing"
)

// Config mirrors the YAML file. Zero fields take the defaults the
// historical pipeline always used.
type Config struct {
	RiskFreeRates       map[int]float64 `yaml:"risk_free_rates"`
	DefaultRate         float64         `yaml:"default_rate"`
	MarketClose         string          `yaml:"market_close"`
	MarketTimezone      string          `yaml:"market_timezone"`
	IVMaxIterations     int             `yaml:"iv_max_iterations"`
	IVTolerance         float64         `yaml:"iv_tolerance"`
	IVVolatilityCeiling float64         `yaml:"iv_volatility_ceiling"`
	IVVolatilityFloor   float64         `yaml:"iv_volatility_floor"`
	ChunkSize           int             `yaml:"chunk_size"`
	Workers             int             `yaml:"workers"`
	RedisAddr           string          `yaml:"redis_addr"`
}

func Default() Config {
	return Config{
		RiskFreeRates: map[int]float64{
			2020: 0.04, 2021: 0.035, 2022: 0.055,
			2023: 0.065, 2024: 0.070, 2025: 0.065,
		},
		DefaultRate:         models.DefaultRiskFreeRate,
		MarketClose:         "15:30",
		MarketTimezone:      "Asia/Kolkata",
		IVMaxIterations:     100,
		IVTolerance:         1e-6,
		IVVolatilityCeiling: 5.0,
		IVVolatilityFloor:   0.001,
		ChunkSize:           10000,
	}
}

// Load reads the YAML file at path over the defaults. An empty path
// returns the defaults. A .env file in the working directory is applied
// first so REDIS_ADDR and friends can come from the environment.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing config: %w", err)
		}
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}

	if _, _, err := parseClock(cfg.MarketClose); err != nil {
		return cfg, err
	}
	if _, err := time.LoadLocation(cfg.MarketTimezone); err != nil {
		return cfg, fmt.Errorf("market timezone: %w", err)
	}
	return cfg, nil
}

func parseClock(s string) (int, int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("market close %q: want HH:MM", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("market close %q out of range", s)
	}
	return hour, minute, nil
}

// Location returns the configured market timezone.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.MarketTimezone)
	if err != nil {
		return time.FixedZone("IST", int(5.5*3600))
	}
	return loc
}

// Clock builds the expiry calculator.
func (c Config) Clock() pricing.ExpiryClock {
	hour, minute, err := parseClock(c.MarketClose)
	if err != nil {
		hour, minute = 15, 30
	}
	return pricing.NewExpiryClock(hour, minute, c.Location())
}

// Solver builds the implied-volatility solver.
func (c Config) Solver() pricing.Solver {
	return pricing.NewSolver(c.IVMaxIterations, c.IVTolerance, c.IVVolatilityFloor, c.IVVolatilityCeiling)
}

// RateTable builds the year-keyed risk-free-rate lookup.
func (c Config) RateTable() *models.RateTable {
	return models.NewRateTable(c.RiskFreeRates, c.DefaultRate)
}
