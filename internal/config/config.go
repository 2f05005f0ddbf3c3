package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type SourceConfig struct {
	Active bool   `yaml:"active" json:"active"`
	Method string `yaml:"method" json:"method"` // database | api
	Driver string `yaml:"driver" json:"driver"` // sqlite | postgres | auto
	DSNEnv string `yaml:"dsn_env" json:"dsn_env"`

	// When set, the DSN's ${password} marker is filled from the OS keychain.
	PasswordFromKeyring bool `yaml:"password_from_keyring" json:"password_from_keyring"`

	// Opaque query template for raw-SQL mode. The legacy schemas differ per
	// source; only these four names matter to the engine.
	Table          string `yaml:"table" json:"table"`
	EntityColumn   string `yaml:"entity_column" json:"entity_column"`
	SupplierColumn string `yaml:"supplier_column" json:"supplier_column"`
	DateColumn     string `yaml:"date_column" json:"date_column"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port" json:"port"`
		DataDir string `yaml:"data_dir" json:"data_dir"`
	} `yaml:"app" json:"app"`

	Query struct {
		UseStoredProcedures bool    `yaml:"use_stored_procedures" json:"use_stored_procedures"`
		TimeoutSeconds      int     `yaml:"timeout_seconds" json:"timeout_seconds"`
		RatePerSecond       float64 `yaml:"rate_per_second" json:"rate_per_second"`
		Burst               int     `yaml:"burst" json:"burst"`
	} `yaml:"query" json:"query"`

	Workers struct {
		Count     int `yaml:"count" json:"count"`
		QueueSize int `yaml:"queue_size" json:"queue_size"`
	} `yaml:"workers" json:"workers"`

	Retention struct {
		SearchHours  int `yaml:"search_hours" json:"search_hours"`
		LogDays      int `yaml:"log_days" json:"log_days"`
		SweepMinutes int `yaml:"sweep_minutes" json:"sweep_minutes"`
	} `yaml:"retention" json:"retention"`

	Sources struct {
		Secop1 SourceConfig `yaml:"secop1" json:"secop1"`
		Secop2 SourceConfig `yaml:"secop2" json:"secop2"`
		Tvec   SourceConfig `yaml:"tvec" json:"tvec"`
	} `yaml:"sources" json:"sources"`
}

// SourceOrder is the canonical, fixed order sources are queried in.
var SourceOrder = []string{"secop1", "secop2", "tvec"}

// SourceByName returns the block for a canonical source name.
func (c Config) SourceByName(name string) (SourceConfig, bool) {
	switch name {
	case "secop1":
		return c.Sources.Secop1, true
	case "secop2":
		return c.Sources.Secop2, true
	case "tvec":
		return c.Sources.Tvec, true
	}
	return SourceConfig{}, false
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
