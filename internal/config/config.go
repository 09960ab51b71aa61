// Package config loads trackqa settings from defaults, an optional YAML file
// and TRACKQA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"trackqa/internal/chunker"
	"trackqa/internal/document"
	"trackqa/internal/embedding"
	"trackqa/internal/index"
	"trackqa/internal/llm"
	"trackqa/internal/logging"
	"trackqa/internal/notify"
	"trackqa/internal/query"
	"trackqa/internal/storage"
)

// EnvPrefix prefixes every environment variable, e.g. TRACKQA_STORAGE_DRIVER.
const EnvPrefix = "TRACKQA"

// ErrInvalid is returned when loaded settings fail validation.
var ErrInvalid = errors.New("invalid configuration")

type DocumentConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

type QueryConfig struct {
	SampleRunes int `mapstructure:"sample_runes"`
}

// Config is the complete application configuration.
type Config struct {
	DataDir   string           `mapstructure:"data_dir"`
	Log       logging.Config   `mapstructure:"log"`
	Storage   storage.Config   `mapstructure:"storage"`
	Document  DocumentConfig   `mapstructure:"document"`
	Chunker   chunker.Options  `mapstructure:"chunker"`
	Index     index.Config     `mapstructure:"index"`
	Embedding embedding.Config `mapstructure:"embedding"`
	LLM       llm.Config       `mapstructure:"llm"`
	Query     QueryConfig      `mapstructure:"query"`
	NATS      notify.Config    `mapstructure:"nats"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DataDir:   "parsed_xmls",
		Log:       logging.DefaultConfig(),
		Storage:   storage.DefaultConfig(),
		Document:  DocumentConfig{BatchSize: document.DefaultBatchSize},
		Chunker:   chunker.DefaultOptions(),
		Index:     index.DefaultConfig(),
		Embedding: embedding.DefaultConfig(),
		LLM:       llm.DefaultConfig(),
		Query:     QueryConfig{SampleRunes: query.DefaultSampleRunes},
		NATS:      notify.DefaultConfig(),
	}
}

// NewViper returns a viper instance with every key defaulted and environment
// lookup enabled. Callers may bind flags before passing it to Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := Default()
	defaults := map[string]any{
		"data_dir": d.DataDir,

		"log.level":  d.Log.Level,
		"log.format": d.Log.Format,

		"storage.driver":              d.Storage.Driver,
		"storage.sqlite.path":         d.Storage.SQLite.Path,
		"storage.postgres.host":       d.Storage.Postgres.Host,
		"storage.postgres.port":       d.Storage.Postgres.Port,
		"storage.postgres.database":   d.Storage.Postgres.Database,
		"storage.postgres.user":       d.Storage.Postgres.User,
		"storage.postgres.password":   d.Storage.Postgres.Password,
		"storage.postgres.sslmode":    d.Storage.Postgres.SSLMode,
		"storage.clickhouse.host":     d.Storage.ClickHouse.Host,
		"storage.clickhouse.port":     d.Storage.ClickHouse.Port,
		"storage.clickhouse.database": d.Storage.ClickHouse.Database,
		"storage.clickhouse.user":     d.Storage.ClickHouse.User,
		"storage.clickhouse.password": d.Storage.ClickHouse.Password,

		"document.batch_size": d.Document.BatchSize,
		"chunker.size":        d.Chunker.Size,
		"chunker.overlap":     d.Chunker.Overlap,

		"index.kind": d.Index.Kind,
		"index.path": d.Index.Path,
		"index.k":    d.Index.K,

		"embedding.provider":  d.Embedding.Provider,
		"embedding.model":     d.Embedding.Model,
		"embedding.endpoint":  d.Embedding.Endpoint,
		"embedding.api_key":   d.Embedding.APIKey,
		"embedding.task_type": d.Embedding.TaskType,

		"llm.provider": d.LLM.Provider,
		"llm.model":    d.LLM.Model,
		"llm.endpoint": d.LLM.Endpoint,
		"llm.api_key":  d.LLM.APIKey,

		"query.sample_runes": d.Query.SampleRunes,

		"nats.url":            d.NATS.URL,
		"nats.subject_prefix": d.NATS.SubjectPrefix,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	return v
}

// Load reads the optional YAML file at path into v, unmarshals and validates.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem at once, wrapped in ErrInvalid.
func (c Config) Validate() error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, errors.New("data_dir is empty"))
	}
	if !slices.Contains(storage.Drivers(), strings.ToLower(c.Storage.Driver)) {
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of %v", c.Storage.Driver, storage.Drivers()))
	}
	if c.Document.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("document.batch_size %d must be positive", c.Document.BatchSize))
	}
	if err := c.Chunker.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("chunker: %w", err))
	}
	if !slices.Contains(index.Kinds(), strings.ToLower(c.Index.Kind)) {
		errs = append(errs, fmt.Errorf("index.kind %q is not one of %v", c.Index.Kind, index.Kinds()))
	}
	if c.Index.K <= 0 {
		errs = append(errs, fmt.Errorf("index.k %d must be positive", c.Index.K))
	}
	if !slices.Contains(embedding.Providers(), strings.ToLower(c.Embedding.Provider)) {
		errs = append(errs, fmt.Errorf("embedding.provider %q is not one of %v", c.Embedding.Provider, embedding.Providers()))
	}
	if !slices.Contains(llm.Providers(), strings.ToLower(c.LLM.Provider)) {
		errs = append(errs, fmt.Errorf("llm.provider %q is not one of %v", c.LLM.Provider, llm.Providers()))
	}
	if c.Query.SampleRunes <= 0 {
		errs = append(errs, fmt.Errorf("query.sample_runes %d must be positive", c.Query.SampleRunes))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}
