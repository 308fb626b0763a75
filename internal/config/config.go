// Package config loads ledger settings from defaults, an optional YAML file
// and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"budget-tracker/internal/logging"
	"budget-tracker/internal/models"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v2"
)

type Config struct {
	// Storage
	DBPath    string `yaml:"db_path"`
	ExportDir string `yaml:"export_dir"`

	// Currency conversion
	BaseCurrency string        `yaml:"base_currency"`
	RatesURL     string        `yaml:"rates_url"`
	RatesTimeout time.Duration `yaml:"rates_timeout"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the settings used when nothing else is configured.
func Default() *Config {
	return &Config{
		DBPath:       "ledger.db",
		ExportDir:    ".",
		BaseCurrency: models.DefaultCurrency,
		RatesURL:     "https://api.exchangerate-api.com/v4/latest",
		RatesTimeout: 5 * time.Second,
		LogLevel:     "info",
		LogFormat:    logging.FormatText,
	}
}

// Load builds the configuration. path may be empty; a missing file at path is
// not an error. The result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			err = cfg.decode(f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return nil, fmt.Errorf("config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.SetStrict(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"DB_PATH":       &c.DBPath,
		"EXPORT_DIR":    &c.ExportDir,
		"BASE_CURRENCY": &c.BaseCurrency,
		"RATES_URL":     &c.RatesURL,
		"LOG_LEVEL":     &c.LogLevel,
		"LOG_FORMAT":    &c.LogFormat,
	}
	for key, field := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*field = v
		}
	}

	if v, ok := lookup("RATES_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid RATES_TIMEOUT %q: %w", v, err)
		}
		c.RatesTimeout = d
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error

	if c.DBPath == "" {
		err = multierr.Append(err, errors.New("database path cannot be empty"))
	}
	if c.ExportDir == "" {
		err = multierr.Append(err, errors.New("export directory cannot be empty"))
	}

	if code, cerr := models.NormalizeCurrency(c.BaseCurrency); cerr != nil {
		err = multierr.Append(err, fmt.Errorf("base currency: %w", cerr))
	} else {
		c.BaseCurrency = code
	}

	if u, uerr := url.Parse(c.RatesURL); uerr != nil {
		err = multierr.Append(err, fmt.Errorf("invalid rates URL %q: %v", c.RatesURL, uerr))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		err = multierr.Append(err, fmt.Errorf("invalid rates URL scheme %q: must be http or https", u.Scheme))
	}
	if c.RatesTimeout <= 0 {
		err = multierr.Append(err, fmt.Errorf("rates timeout must be positive, got %s", c.RatesTimeout))
	}

	if _, lerr := logrus.ParseLevel(c.LogLevel); lerr != nil {
		err = multierr.Append(err, lerr)
	}
	if c.LogFormat != logging.FormatJSON && c.LogFormat != logging.FormatText {
		err = multierr.Append(err, fmt.Errorf("invalid log format %q: must be %s or %s", c.LogFormat, logging.FormatJSON, logging.FormatText))
	}

	return err
}
