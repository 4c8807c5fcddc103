package commands

import (
	"errors"
	"os"
	"time"

	"ddfeed/internal/components/configutil"
	"ddfeed/internal/extract"
	"ddfeed/internal/scrapers/doordash"
)

const configName = "ddfeed.json5"

type Config struct {
	BaseUrl string `json:"base_url"`
	// Timeout is in seconds.
	Timeout           int     `json:"timeout"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	Retries           int     `json:"retries"`
	CloudflareBypass  bool    `json:"cloudflare_bypass"`

	SectionTitle      string  `json:"section_title"`
	FuzzyThreshold    float64 `json:"fuzzy_threshold"`
	AddressQuery      string  `json:"address_query"`
	Onboarding        bool    `json:"onboarding"`
	LenientSetDefault bool    `json:"lenient_set_default"`

	OutputDir string `json:"output_dir"`
	Db        string `json:"db"`
}

func (c Config) withDefaults() Config {
	if c.BaseUrl == "" {
		c.BaseUrl = doordash.DefaultBaseUrl
	}
	if c.Timeout == 0 {
		c.Timeout = 30
	}
	if c.RequestsPerSecond == 0 {
		c.RequestsPerSecond = 2
	}
	if c.SectionTitle == "" {
		c.SectionTitle = extract.DefaultSectionTitle
	}
	if c.FuzzyThreshold == 0 {
		c.FuzzyThreshold = 0.9
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	return c
}

func (c Config) clientOptions() doordash.Options {
	return doordash.Options{
		BaseUrl:           c.BaseUrl,
		Timeout:           time.Duration(c.Timeout) * time.Second,
		RequestsPerSecond: c.RequestsPerSecond,
		Retries:           c.Retries,
		CloudflareBypass:  c.CloudflareBypass,
	}
}

// loadConfig reads the config given by --config, or searches for
// ddfeed.json5 upwards from the cwd. Not having a config file at all is
// fine when no path was given.
func loadConfig(path string) (Config, error) {
	if path != "" {
		cfg, err := configutil.ReadConfig[Config](path)
		if err != nil {
			return Config{}, err
		}
		return cfg.withDefaults(), nil
	}

	cfg, err := configutil.ReadRecursively[Config](configName)
	if errors.Is(err, os.ErrNotExist) {
		return Config{}.withDefaults(), nil
	}
	if err != nil {
		return Config{}, err
	}
	return cfg.withDefaults(), nil
}
