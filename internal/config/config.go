// Package config loads the scenario and service configuration: a YAML
// file for the scenario and fleet, environment variables for deployment
// concerns (addresses, DSNs, auth).
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	Scenario Scenario `yaml:"scenario"`
	Fleet    Fleet    `yaml:"fleet"`
	Search   Search   `yaml:"search"`
	Server   Server   `yaml:"server"`
}

// Scenario names the input files and the simulated day.
type Scenario struct {
	Name         string `yaml:"name"`
	Day          string `yaml:"day"`   // YYYY-MM-DD
	Start        string `yaml:"start"` // HH:MM, fleet start time
	PackagesCSV  string `yaml:"packages_csv"`
	DistancesCSV string `yaml:"distances_csv"`
}

// Fleet sizes the vehicle pool.
type Fleet struct {
	Vehicles int     `yaml:"vehicles"`
	Capacity int     `yaml:"capacity"`
	SpeedMPH float64 `yaml:"speed_mph"`
}

// Search tunes the trial loop.
type Search struct {
	Trials   int   `yaml:"trials"`
	Seed     int64 `yaml:"seed"`
	Workers  int   `yaml:"workers"`
	BudgetMs int   `yaml:"budget_ms"`
}

// Server holds the HTTP surface settings.
type Server struct {
	Addr           string  `yaml:"addr"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// Load reads the YAML file, then applies environment overrides. A
// missing file is fine when the path is empty: defaults apply. A .env
// file, when present, is folded into the environment first.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Scenario: Scenario{Name: "default", Start: "08:00"},
		Fleet:    Fleet{Vehicles: 3, Capacity: 16, SpeedMPH: 18},
		Search:   Search{Trials: 20},
		Server:   Server{Addr: ":8080", RateLimitRPS: 10, RateLimitBurst: 20},
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("config %s: %w", path, err)
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("FLEETNAV_TRIALS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Search.Trials = n
		}
	}
	if v := os.Getenv("FLEETNAV_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Search.Seed = n
		}
	}
	if v := os.Getenv("FLEETNAV_PACKAGES_CSV"); v != "" {
		cfg.Scenario.PackagesCSV = v
	}
	if v := os.Getenv("FLEETNAV_DISTANCES_CSV"); v != "" {
		cfg.Scenario.DistancesCSV = v
	}
	return cfg, nil
}

// Day parses the scenario day, defaulting to today when unset.
func (s Scenario) DayTime() (time.Time, error) {
	if s.Day == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local), nil
	}
	d, err := time.ParseInLocation("2006-01-02", s.Day, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: scenario day %q: %w", s.Day, err)
	}
	return d, nil
}

// StartTime places the HH:MM fleet start on the scenario day.
func (s Scenario) StartTime() (time.Time, error) {
	day, err := s.DayTime()
	if err != nil {
		return time.Time{}, err
	}
	clock, err := time.Parse("15:04", s.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: scenario start %q: %w", s.Start, err)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, day.Location()), nil
}
