package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverQdrant = "qdrant"
	DriverRedis  = "redis"
)

// Config holds the vecrec configuration shared by the API server and the ingest CLI.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Recommend RecommendConfig `yaml:"recommend"`
	Auth      AuthConfig      `yaml:"auth"`
	Index     IndexConfig     `yaml:"index"`
	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	File       string `yaml:"file"` // optional rotated JSON log file
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"max_age_days" validate:"gte=0"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port" validate:"min=1,max=65535"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig selects and configures the vector store backend.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver" validate:"oneof=qdrant redis"`
	Addrs            []string `yaml:"addrs"`    // redis
	Password         string   `yaml:"password"` // redis
	URL              string   `yaml:"url" validate:"omitempty,url"`
	APIKey           string   `yaml:"api_key"` // qdrant
	Collection       string   `yaml:"collection" validate:"required"`
	RequestTimeoutMs int      `yaml:"request_timeout_ms"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds vector index settings applied when the schema is created.
type IndexConfig struct {
	Dimensions      int `yaml:"dimensions" validate:"gte=0"`
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// EmbeddingConfig holds embedding settings (ingestion path only).
type EmbeddingConfig struct {
	Providers   map[string]ProviderConfig   `yaml:"providers"`
	Vectorizers map[string]VectorizerConfig `yaml:"vectorizers"`
	// Cache keeps embeddings in Redis; it needs database.addrs even when the driver is qdrant.
	Cache         bool `yaml:"cache"`
	CacheTTLHours int  `yaml:"cache_ttl_hours" validate:"gte=0"`
	MaxBatchSize  int  `yaml:"max_batch_size" validate:"gte=0"`
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// VectorizerConfig holds vectorizer settings.
type VectorizerConfig struct {
	Provider            string `yaml:"provider"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	DocumentInstruction string `yaml:"document_instruction"`
}

// MetadataConfig configures the title metadata provider used for enrichment.
// An empty Provider disables enrichment.
type MetadataConfig struct {
	Provider          string        `yaml:"provider" validate:"omitempty,oneof=tmdb"`
	BaseURL           string        `yaml:"base_url" validate:"omitempty,url"`
	APIKey            string        `yaml:"api_key"`
	MediaType         string        `yaml:"media_type" validate:"omitempty,oneof=movie tv"`
	Language          string        `yaml:"language"`
	RequestsPerSecond float64       `yaml:"requests_per_second" validate:"gte=0"`
	Burst             int           `yaml:"burst" validate:"gte=0"`
	Breaker           BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the metadata provider.
type BreakerConfig struct {
	MaxRequests  uint32  `yaml:"max_requests"`
	IntervalSec  int     `yaml:"interval_sec"`
	TimeoutSec   int     `yaml:"timeout_sec"`
	MinRequests  uint32  `yaml:"min_requests"`
	FailureRatio float64 `yaml:"failure_ratio" validate:"gte=0,lte=1"`
}

// RecommendConfig tunes the fusion engine.
type RecommendConfig struct {
	OverfetchFactor   int `yaml:"overfetch_factor" validate:"min=2,max=3"`
	SearchConcurrency int `yaml:"search_concurrency" validate:"min=1,max=10"`
	EnrichConcurrency int `yaml:"enrich_concurrency" validate:"min=1,max=50"`
	SearchTimeoutMs   int `yaml:"search_timeout_ms" validate:"min=1"`
	EnrichTimeoutMs   int `yaml:"enrich_timeout_ms" validate:"min=1"`
	ScrollPageSize    int `yaml:"scroll_page_size" validate:"min=1"`
	MaxScrollPages    int `yaml:"max_scroll_pages" validate:"min=1"`
	YearWindow        int `yaml:"year_window" validate:"gte=0"`
}

// SearchTimeout returns the per-aspect search timeout.
func (c RecommendConfig) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutMs) * time.Millisecond
}

// EnrichTimeout returns the per-title enrichment timeout.
func (c RecommendConfig) EnrichTimeout() time.Duration {
	return time.Duration(c.EnrichTimeoutMs) * time.Millisecond
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML bytes, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	c.applyDatabaseDefaults()
	c.applyMetadataDefaults()
	c.applyRecommendDefaults()
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "vecrec:"
	}
}

func (c *Config) applyDatabaseDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = DriverQdrant
	}
	if c.Database.Collection == "" {
		c.Database.Collection = "title_profiles"
	}
	if c.Database.RequestTimeoutMs <= 0 {
		c.Database.RequestTimeoutMs = 5000
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
}

func (c *Config) applyMetadataDefaults() {
	m := &c.Metadata
	if m.Provider == "" {
		return
	}
	if m.BaseURL == "" {
		m.BaseURL = "https://api.themoviedb.org/3"
	}
	if m.MediaType == "" {
		m.MediaType = "movie"
	}
	if m.Language == "" {
		m.Language = "en-US"
	}
	if m.RequestsPerSecond <= 0 {
		m.RequestsPerSecond = 40
	}
	if m.Burst <= 0 {
		m.Burst = 20
	}
	if m.Breaker.MaxRequests == 0 {
		m.Breaker.MaxRequests = 3
	}
	if m.Breaker.IntervalSec <= 0 {
		m.Breaker.IntervalSec = 60
	}
	if m.Breaker.TimeoutSec <= 0 {
		m.Breaker.TimeoutSec = 30
	}
	if m.Breaker.MinRequests == 0 {
		m.Breaker.MinRequests = 10
	}
	if m.Breaker.FailureRatio <= 0 {
		m.Breaker.FailureRatio = 0.6
	}
}

func (c *Config) applyRecommendDefaults() {
	r := &c.Recommend
	if r.OverfetchFactor <= 0 {
		r.OverfetchFactor = 3
	}
	if r.SearchConcurrency <= 0 {
		r.SearchConcurrency = 4
	}
	if r.EnrichConcurrency <= 0 {
		r.EnrichConcurrency = 8
	}
	if r.SearchTimeoutMs <= 0 {
		r.SearchTimeoutMs = 2000
	}
	if r.EnrichTimeoutMs <= 0 {
		r.EnrichTimeoutMs = 1500
	}
	if r.ScrollPageSize <= 0 {
		r.ScrollPageSize = 16
	}
	if r.MaxScrollPages <= 0 {
		r.MaxScrollPages = 10
	}
	if r.YearWindow <= 0 {
		r.YearWindow = 20
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks struct-level constraints, then rules that span several fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%s failed %q constraint", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("validate: %w", err)
	}

	switch c.Database.Driver {
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", DriverRedis)
		}
	case DriverQdrant:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for driver %q", DriverQdrant)
		}
	}

	if c.Metadata.Provider != "" && c.Metadata.APIKey == "" {
		return fmt.Errorf("metadata.api_key is required when metadata.provider is set")
	}

	if c.Embedding.Cache && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("embedding.cache requires database.addrs")
	}

	for name, v := range c.Embedding.Vectorizers {
		if _, ok := c.Embedding.Providers[v.Provider]; !ok {
			return fmt.Errorf("embedding.vectorizers.%s references unknown provider %q", name, v.Provider)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
