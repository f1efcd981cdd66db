package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"

	"github.com/leonunix/docsearch/internal/wire"
)

// Config holds the complete application configuration.
type Config struct {
	Engine  EngineConfig  `koanf:"engine"`
	Search  SearchConfig  `koanf:"search"`
	Reindex ReindexConfig `koanf:"reindex"`
	Metrics MetricsConfig `koanf:"metrics"`
	Logging LoggingConfig `koanf:"logging"`
}

type EngineConfig struct {
	Dialect    string    `koanf:"dialect"` // "elasticsearch" or "opensearch".
	URLs       []string  `koanf:"urls"`
	Username   string    `koanf:"username"`
	Password   string    `koanf:"password"`
	TLS        TLSConfig `koanf:"tls"`
	MaxRetries int       `koanf:"max_retries"`
}

// TLSConfig configures certificate verification of engine connections.
type TLSConfig struct {
	SkipVerify bool   `koanf:"skip_verify"`
	CACert     string `koanf:"ca_cert"` // Path to a PEM CA bundle.
}

type SearchConfig struct {
	MaxResultWindow int           `koanf:"max_result_window"`
	ScrollKeepAlive time.Duration `koanf:"scroll_keep_alive"`
}

type ReindexConfig struct {
	LockIndex    string        `koanf:"lock_index"`
	LockTTL      time.Duration `koanf:"lock_ttl"`
	MetricsIndex string        `koanf:"metrics_index"`
	Jobs         []JobConfig   `koanf:"jobs"`
}

// JobConfig describes one scheduled server-side reindex.
type JobConfig struct {
	Name              string   `koanf:"name"`
	Schedule          string   `koanf:"schedule"` // Standard 5-field cron expression.
	Source            []string `koanf:"source"`
	Dest              string   `koanf:"dest"`
	Query             string   `koanf:"query"` // Raw JSON query; empty matches all.
	Slices            string   `koanf:"slices"`
	RequestsPerSecond float64  `koanf:"requests_per_second"`
	Conflicts         string   `koanf:"conflicts"` // "abort" or "proceed".
	MaxDocs           int64    `koanf:"max_docs"`
}

type MetricsConfig struct {
	Listen string `koanf:"listen"`
}

type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Load reads configuration from the given YAML file path.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Dialect returns the parsed engine dialect. Load has already validated it.
func (c *Config) Dialect() wire.Dialect {
	d, _ := wire.ParseDialect(c.Engine.Dialect)
	return d
}

// Job returns the reindex job called name.
func (c *Config) Job(name string) (JobConfig, bool) {
	for _, j := range c.Reindex.Jobs {
		if j.Name == name {
			return j, true
		}
	}
	return JobConfig{}, false
}

func setDefaults(cfg *Config) {
	if cfg.Engine.Dialect == "" {
		cfg.Engine.Dialect = "elasticsearch"
	}
	if len(cfg.Engine.URLs) == 0 {
		cfg.Engine.URLs = []string{"http://localhost:9200"}
	}
	if cfg.Engine.MaxRetries <= 0 {
		cfg.Engine.MaxRetries = 3
	}
	if cfg.Search.MaxResultWindow <= 0 {
		cfg.Search.MaxResultWindow = 10000
	}
	if cfg.Search.ScrollKeepAlive <= 0 {
		cfg.Search.ScrollKeepAlive = time.Minute
	}
	if cfg.Reindex.LockIndex == "" {
		cfg.Reindex.LockIndex = ".docsearch-locks"
	}
	if cfg.Reindex.LockTTL <= 0 {
		cfg.Reindex.LockTTL = 2 * time.Hour
	}
	if cfg.Reindex.MetricsIndex == "" {
		cfg.Reindex.MetricsIndex = ".docsearch-reindex-runs"
	}
	for i := range cfg.Reindex.Jobs {
		if cfg.Reindex.Jobs[i].Schedule == "" {
			cfg.Reindex.Jobs[i].Schedule = "0 2 * * *"
		}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func validate(cfg *Config) error {
	if _, err := wire.ParseDialect(cfg.Engine.Dialect); err != nil {
		return fmt.Errorf("invalid engine.dialect: %w", err)
	}
	for _, u := range cfg.Engine.URLs {
		parsed, err := url.Parse(u)
		if err != nil {
			return fmt.Errorf("invalid engine url %q: %w", u, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("invalid engine url %q: scheme must be http or https", u)
		}
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	seen := make(map[string]bool, len(cfg.Reindex.Jobs))
	for i, j := range cfg.Reindex.Jobs {
		if j.Name == "" {
			return fmt.Errorf("reindex.jobs[%d]: name is required", i)
		}
		if seen[j.Name] {
			return fmt.Errorf("reindex.jobs[%d]: duplicate job name %q", i, j.Name)
		}
		seen[j.Name] = true
		if len(j.Source) == 0 || j.Dest == "" {
			return fmt.Errorf("reindex job %q: source and dest are required", j.Name)
		}
		if _, err := parser.Parse(j.Schedule); err != nil {
			return fmt.Errorf("reindex job %q: invalid schedule: %w", j.Name, err)
		}
		switch j.Conflicts {
		case "", "abort", "proceed":
		default:
			return fmt.Errorf("reindex job %q: conflicts must be abort or proceed", j.Name)
		}
	}
	return nil
}
