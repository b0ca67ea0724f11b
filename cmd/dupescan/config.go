package main

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config is the optional on-disk settings file, merged under whatever CLI
// flags the user actually passed (a flag the user set always wins). Any
// field left unset in the file is simply ignored.
type Config struct {
	DBPath          *string  `yaml:"db-path"`
	Chunksize       *int     `yaml:"chunksize"`
	Description     *string  `yaml:"description"`
	IgnorePathNames []string `yaml:"ignore-path-names"`
	Parallelism     *int     `yaml:"parallelism"`

	CandidatePath *string `yaml:"candidate-path"`
	UseBytes      *bool   `yaml:"use-bytes"`

	QuarantineRoot *string `yaml:"quarantine-root"`
	ShowTop        *int    `yaml:"show-top"`
	AutoConfirm    *bool   `yaml:"auto-confirm"`
}

// loadConfig reads and parses a YAML config file. A path of "" returns a
// zero-value Config (every field unset, so merging is a no-op).
func loadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config file %q", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parsing config file %q", path)
	}
	return cfg, nil
}
