package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/bankfeed-dev/bankfeed/internal/model"
)

// Config represents the top-level bankfeed.yaml configuration.
type Config struct {
	Family      FamilyConfig `yaml:"family"`
	Accounts    []Account    `yaml:"accounts,omitempty"`
	CardHolders []CardHolder `yaml:"card_holders,omitempty"`
	Git         GitConfig    `yaml:"git"`
	Log         LogConfig    `yaml:"log"`
}

// FamilyConfig identifies the household.
type FamilyConfig struct {
	Name string `yaml:"name"`
}

// Account is one tracked bank account.
type Account struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Bank string `yaml:"bank,omitempty"`
}

// CardHolder maps a card's last 4 digits to a family member. LastFour is a
// string so leading zeros survive YAML round-trips.
type CardHolder struct {
	LastFour string `yaml:"last_four"`
	Holder   string `yaml:"holder"`
}

// GitConfig controls git integration over the data directory.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// LogConfig controls logger verbosity.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads a bankfeed.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new data directory.
func Default(familyName string) *Config {
	return &Config{
		Family: FamilyConfig{Name: familyName},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "Bankfeed",
			AuthorEmail: "bankfeed@localhost",
		},
		Log: LogConfig{Level: "info"},
	}
}

// HasAccount reports whether an account ID is configured.
func (c *Config) HasAccount(id string) bool {
	for _, a := range c.Accounts {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Holders converts the configured card holders into directory entries.
func (c *Config) Holders() ([]model.AccountHolder, error) {
	hs := make([]model.AccountHolder, 0, len(c.CardHolders))
	for _, ch := range c.CardHolders {
		last4, err := strconv.Atoi(ch.LastFour)
		if err != nil {
			return nil, fmt.Errorf("card holder %q: invalid last_four %q", ch.Holder, ch.LastFour)
		}
		hs = append(hs, model.AccountHolder{Name: ch.Holder, LastFour: last4})
	}
	return hs, nil
}
