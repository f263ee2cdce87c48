// Package config loads service settings from an optional YAML file with
// environment variable overrides.
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rawblock/splitscore/internal/catdist"
	"github.com/rawblock/splitscore/internal/entropy"
	"github.com/rawblock/splitscore/internal/splitscore"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Split        SplitConfig        `yaml:"split"`
	Distribution DistributionConfig `yaml:"distribution"`
	Log          LogConfig          `yaml:"log"`
}

type ServerConfig struct {
	Port           string `yaml:"port"`
	RatePerMinute  int    `yaml:"ratePerMinute"`
	Burst          int    `yaml:"burst"`
	CacheSize      int    `yaml:"cacheSize"`
	AuthToken      string `yaml:"authToken"`
	AllowedOrigins string `yaml:"allowedOrigins"`
}

type DatabaseConfig struct {
	// URL is optional; without it runs are not persisted.
	URL string `yaml:"url"`
}

type SplitConfig struct {
	Criterion    string  `yaml:"criterion"`
	MinSplit     float64 `yaml:"minSplit"`
	SmoothFactor float64 `yaml:"smoothFactor"`
	SmoothWindow int     `yaml:"smoothWindow"`
	// ShadowCriterion is compared against Criterion by /split/compare.
	ShadowCriterion string `yaml:"shadowCriterion"`
}

type DistributionConfig struct {
	Correction     string  `yaml:"correction"`
	LaplaceK       float64 `yaml:"laplaceK"`
	EvidenceFactor float64 `yaml:"evidenceFactor"`
	AllowUnknown   bool    `yaml:"allowUnknown"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Type  string `yaml:"type"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:          "5339",
			RatePerMinute: 120,
			Burst:         20,
			CacheSize:     1024,
		},
		Split: SplitConfig{
			Criterion:       splitscore.MutualInfo.String(),
			MinSplit:        1,
			ShadowCriterion: splitscore.GainRatio.String(),
		},
		Distribution: DistributionConfig{
			Correction:     catdist.NoCorrection.String(),
			EvidenceFactor: catdist.DefaultEvidenceFactor,
		},
		Log: LogConfig{Level: "info", Type: "auto"},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "reading config %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parsing config %s", path)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnvOrDefault("SCORER_PORT", c.Server.Port)
	c.Server.AuthToken = getEnvOrDefault("API_AUTH_TOKEN", c.Server.AuthToken)
	c.Server.AllowedOrigins = getEnvOrDefault("ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Database.URL = getEnvOrDefault("DATABASE_URL", c.Database.URL)
	c.Split.Criterion = getEnvOrDefault("SCORER_CRITERION", c.Split.Criterion)
	c.Distribution.Correction = getEnvOrDefault("SCORER_CORRECTION", c.Distribution.Correction)
	c.Log.Level = getEnvOrDefault("SCORER_LOG_LEVEL", c.Log.Level)

	var err error
	if c.Split.MinSplit, err = getEnvFloat("SCORER_MIN_SPLIT", c.Split.MinSplit); err != nil {
		return err
	}
	if c.Distribution.EvidenceFactor, err = getEnvFloat("SCORER_EVIDENCE_FACTOR", c.Distribution.EvidenceFactor); err != nil {
		return err
	}
	if v := os.Getenv("SCORER_ALLOW_UNKNOWN"); v != "" {
		b, perr := strconv.ParseBool(v)
		if perr != nil {
			return errors.Wrap(perr, "SCORER_ALLOW_UNKNOWN")
		}
		c.Distribution.AllowUnknown = b
	}
	return nil
}

// Validate rejects settings the scoring core would refuse at call time.
func (c Config) Validate() error {
	if _, err := splitscore.ParseCriterion(c.Split.Criterion); err != nil {
		return errors.Wrap(err, "split.criterion")
	}
	if _, err := splitscore.ParseCriterion(c.Split.ShadowCriterion); err != nil {
		return errors.Wrap(err, "split.shadowCriterion")
	}
	if c.Split.MinSplit < 0 {
		return errors.Errorf("split.minSplit must be non-negative, got %g", c.Split.MinSplit)
	}
	if c.Split.SmoothFactor < 0 {
		return errors.Errorf("split.smoothFactor must be non-negative, got %g", c.Split.SmoothFactor)
	}
	if c.Split.SmoothWindow < 0 {
		return errors.Errorf("split.smoothWindow must be non-negative, got %d", c.Split.SmoothWindow)
	}
	if _, err := catdist.ParseCorrection(c.Distribution.Correction); err != nil {
		return errors.Wrap(err, "distribution.correction")
	}
	if c.Distribution.LaplaceK < 0 {
		return errors.Errorf("distribution.laplaceK must be non-negative, got %g", c.Distribution.LaplaceK)
	}
	if c.Distribution.EvidenceFactor <= 0 {
		return errors.Errorf("distribution.evidenceFactor must be positive, got %g", c.Distribution.EvidenceFactor)
	}
	if c.Server.CacheSize < 0 {
		return errors.Errorf("server.cacheSize must be non-negative, got %d", c.Server.CacheSize)
	}
	return nil
}

// Criterion returns the parsed production criterion. Call after Validate.
func (c Config) Criterion() splitscore.Criterion {
	crit, _ := splitscore.ParseCriterion(c.Split.Criterion)
	return crit
}

// ShadowCriterion returns the parsed shadow criterion. Call after Validate.
func (c Config) ShadowCriterion() splitscore.Criterion {
	crit, _ := splitscore.ParseCriterion(c.Split.ShadowCriterion)
	return crit
}

// SearchOptions maps the split section onto threshold search options.
func (c Config) SearchOptions() entropy.SearchOptions {
	return entropy.SearchOptions{
		MinSplit:     c.Split.MinSplit,
		SmoothFactor: c.Split.SmoothFactor,
		SmoothWindow: c.Split.SmoothWindow,
	}
}

// DistributionOptions maps the distribution section onto estimator options.
func (c Config) DistributionOptions() catdist.Options {
	corr, _ := catdist.ParseCorrection(c.Distribution.Correction)
	return catdist.Options{
		Correction:     corr,
		LaplaceK:       c.Distribution.LaplaceK,
		EvidenceFactor: c.Distribution.EvidenceFactor,
	}
}

// getEnvOrDefault returns the env var value or a default for non-secret settings.
func getEnvOrDefault(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback, errors.Wrap(err, key)
	}
	return f, nil
}
