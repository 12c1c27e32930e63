// Package config resolves where the prescription and remark logs live and how
// results are rendered.
//
// Precedence, lowest first: built-in defaults, the YAML config file, the
// process environment (a .env file only fills variables that are unset),
// then explicit command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPrescriptionLog = "presc.txt"
	DefaultRemarkLog       = "remark.txt"
	DefaultFormat          = "text"
)

// Environment variables read by Load.
const (
	EnvPrescriptionLog = "PRESCRIBE_PRESCRIPTION_LOG"
	EnvRemarkLog       = "PRESCRIBE_REMARK_LOG"
	EnvFormat          = "PRESCRIBE_FORMAT"
)

// Config is the resolved configuration.
type Config struct {
	PrescriptionLog string `yaml:"prescription_log"`
	RemarkLog       string `yaml:"remark_log"`
	Format          string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		PrescriptionLog: DefaultPrescriptionLog,
		RemarkLog:       DefaultRemarkLog,
		Format:          DefaultFormat,
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), the dotenv file at envFile (skipped when empty or missing)
// and the environment.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if envFile != "" {
		// godotenv.Load never overrides variables that are already set.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("loading env file %s: %w", envFile, err)
		}
	}
	cfg.mergeEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	c.override(fileCfg)
	return nil
}

func (c *Config) mergeEnv() {
	c.override(Config{
		PrescriptionLog: os.Getenv(EnvPrescriptionLog),
		RemarkLog:       os.Getenv(EnvRemarkLog),
		Format:          os.Getenv(EnvFormat),
	})
}

// override copies every non-empty field of o onto c.
func (c *Config) override(o Config) {
	if o.PrescriptionLog != "" {
		c.PrescriptionLog = o.PrescriptionLog
	}
	if o.RemarkLog != "" {
		c.RemarkLog = o.RemarkLog
	}
	if o.Format != "" {
		c.Format = o.Format
	}
}

// Validate returns an error if any value is unusable.
func (c Config) Validate() error {
	switch c.Format {
	case "text", "json", "md":
	default:
		return fmt.Errorf("format must be text, json or md, got %q", c.Format)
	}
	if c.PrescriptionLog == "" {
		return errors.New("prescription log path is empty")
	}
	if c.RemarkLog == "" {
		return errors.New("remark log path is empty")
	}
	if c.PrescriptionLog == c.RemarkLog {
		return fmt.Errorf("prescription and remark logs must differ, both are %q", c.PrescriptionLog)
	}
	return nil
}
