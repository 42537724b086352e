// Package config defines the run configuration for dbstream: which databases
// to copy between, which tables, per-column overrides and value transforms,
// and the runtime and metrics knobs.
//
// A run file is JSON or YAML and may be overridden from the environment with
// the DBSTREAM_ prefix (DBSTREAM_SOURCE_DSN, DBSTREAM_RUNTIME_WORKERS, ...).
//
// Example (trimmed):
//
//	{
//	  "job":    "nightly-copy",
//	  "source": { "kind": "postgres", "dsn": "postgres://..." },
//	  "target": { "kind": "mysql",    "dsn": "user:pw@tcp(db:3306)/app" },
//	  "tables": { "include": ["users", "orders_*"], "exclude": ["*_tmp"] },
//	  "transforms": [ { "table": "users", "column": "password", "kind": "redact", "value": "***" } ]
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"dbstream/internal/storage"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DBSTREAM"

// Run is the top-level configuration of one copy run.
type Run struct {
	// Job names the run in logs, metrics and reports.
	Job string `mapstructure:"job" json:"job"`

	Source Endpoint `mapstructure:"source" json:"source"`
	Target Endpoint `mapstructure:"target" json:"target"`

	Tables     Tables           `mapstructure:"tables" json:"tables"`
	Columns    []ColumnOverride `mapstructure:"columns" json:"columns"`
	Transforms []Transform      `mapstructure:"transforms" json:"transforms"`

	Runtime RuntimeConfig `mapstructure:"runtime" json:"runtime"`
	Metrics Metrics       `mapstructure:"metrics" json:"metrics"`
}

// Endpoint is one side of the copy.
type Endpoint struct {
	// Kind selects the storage backend: postgres, mysql, mssql or sqlite.
	Kind string `mapstructure:"kind" json:"kind"`
	DSN  string `mapstructure:"dsn" json:"dsn"`

	MaxOpenConns    int           `mapstructure:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" json:"conn_max_lifetime"`

	// DisableChecks and EnableChecks replace the backend's statements for
	// suspending referential integrity. Only meaningful on the target.
	DisableChecks []string `mapstructure:"disable_checks" json:"disable_checks"`
	EnableChecks  []string `mapstructure:"enable_checks" json:"enable_checks"`
}

// StorageConfig converts e into the storage factory's config.
func (e Endpoint) StorageConfig() storage.Config {
	return storage.Config{
		Kind:            e.Kind,
		DSN:             e.DSN,
		MaxOpenConns:    e.MaxOpenConns,
		MaxIdleConns:    e.MaxIdleConns,
		ConnMaxLifetime: e.ConnMaxLifetime,
		DisableChecks:   e.DisableChecks,
		EnableChecks:    e.EnableChecks,
	}
}

// Tables selects which target tables are filled. Patterns use path.Match
// syntax. An empty Include selects every table; Exclude wins over Include.
type Tables struct {
	Include         []string `mapstructure:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" json:"exclude"`
	CaseInsensitive bool     `mapstructure:"case_insensitive" json:"case_insensitive"`
}

// ColumnOverride forces the type of one column. Type is a kind name
// (text, int64, decimal, ...) or any SQL type name the registry knows.
type ColumnOverride struct {
	Table  string `mapstructure:"table" json:"table"`
	Column string `mapstructure:"column" json:"column"`
	Type   string `mapstructure:"type" json:"type"`
}

// Transform rewrites one column's values in matching tables. Table is a
// pattern; empty matches every table.
type Transform struct {
	Table  string `mapstructure:"table" json:"table"`
	Column string `mapstructure:"column" json:"column"`
	// Kind is "redact" (replace with Value) or "nullify".
	Kind  string `mapstructure:"kind" json:"kind"`
	Value string `mapstructure:"value" json:"value"`
}

// RuntimeConfig controls concurrency, batching and buffer sizes. Zero values
// fall back to the DBSTREAM_WORKERS, DBSTREAM_BATCH_SIZE and
// DBSTREAM_BUFFER_SIZE environment variables, then to built-in defaults.
type RuntimeConfig struct {
	Workers    int `mapstructure:"workers" json:"workers"`
	BatchSize  int `mapstructure:"batch_size" json:"batch_size"`
	BufferSize int `mapstructure:"buffer_size" json:"buffer_size"`
}

// Resolved fills zero fields from the environment and defaults.
func (r RuntimeConfig) Resolved() RuntimeConfig {
	return RuntimeConfig{
		Workers:    pickInt(r.Workers, getenvInt(EnvPrefix+"_WORKERS", 6)),
		BatchSize:  pickInt(r.BatchSize, getenvInt(EnvPrefix+"_BATCH_SIZE", 10000)),
		BufferSize: pickInt(r.BufferSize, getenvInt(EnvPrefix+"_BUFFER_SIZE", 5000)),
	}
}

// Metrics selects the metrics backend: none, pushgateway or datadog.
type Metrics struct {
	Backend        string `mapstructure:"backend" json:"backend"`
	PushgatewayURL string `mapstructure:"pushgateway_url" json:"pushgateway_url"`
	DatadogAddr    string `mapstructure:"datadog_addr" json:"datadog_addr"`
}

// scalar keys registered with viper so that AutomaticEnv can override them
// during Unmarshal.
var defaults = map[string]any{
	"job":                      "dbstream",
	"source.kind":              "",
	"source.dsn":               "",
	"source.max_open_conns":    0,
	"source.max_idle_conns":    0,
	"source.conn_max_lifetime": "0s",
	"target.kind":              "",
	"target.dsn":               "",
	"target.max_open_conns":    0,
	"target.max_idle_conns":    0,
	"target.conn_max_lifetime": "0s",
	"tables.case_insensitive":  false,
	"runtime.workers":          0,
	"runtime.batch_size":       0,
	"runtime.buffer_size":      0,
	"metrics.backend":          "none",
	"metrics.pushgateway_url":  "",
	"metrics.datadog_addr":     "",
}

// NewViper returns a viper instance with dbstream's defaults and environment
// binding. Callers may bind flags to it before calling Decode.
func NewViper() *viper.Viper {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the run file at path (JSON or YAML by extension) with
// environment overrides. An empty path uses the environment alone.
func Load(path string) (Run, error) {
	return LoadWith(NewViper(), path)
}

// LoadWith is Load on a caller-prepared viper, typically one from NewViper
// with command flags bound.
func LoadWith(v *viper.Viper, path string) (Run, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var nf viper.ConfigFileNotFoundError
			if errors.As(err, &nf) || os.IsNotExist(err) {
				return Run{}, fmt.Errorf("config: %s not found", path)
			}
			return Run{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}
	return Decode(v)
}

// Decode unmarshals v into a Run.
func Decode(v *viper.Viper) (Run, error) {
	var r Run
	if err := v.Unmarshal(&r); err != nil {
		return Run{}, fmt.Errorf("config: decode: %w", err)
	}
	return r, nil
}

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
