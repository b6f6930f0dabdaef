package vecrec

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// EngineOptions tune the fusion engine. Zero fields keep the defaults.
type EngineOptions struct {
	OverfetchFactor   int // clamped to [2,3]
	SearchConcurrency int
	EnrichConcurrency int
	SearchTimeout     time.Duration
	EnrichTimeout     time.Duration
}

type clientConfig struct {
	driver     string // "qdrant" or "redis"
	url        string
	apiKey     string
	collection string
	addrs      []string
	password   string
	keyPrefix  string

	metadata   MetadataProvider
	tmdbKey    string
	tmdbMedia  string
	engine     EngineOptions
	yearWindow int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithQdrant stores profiles in a Qdrant collection reached over its REST API.
func WithQdrant(url, apiKey, collection string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "qdrant"
		c.url = url
		c.apiKey = apiKey
		c.collection = collection
	})
}

// WithRedis stores profiles as Redis hashes indexed by the search module.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the Redis key prefix. Default: "vecrec:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithMetadata enriches recommendations through a custom provider.
func WithMetadata(p MetadataProvider) Option {
	return optionFunc(func(c *clientConfig) {
		c.metadata = p
	})
}

// WithTMDB enriches recommendations from The Movie Database.
// mediaType is "movie" or "tv". Ignored when WithMetadata is also given.
func WithTMDB(apiKey, mediaType string) Option {
	return optionFunc(func(c *clientConfig) {
		c.tmdbKey = apiKey
		c.tmdbMedia = mediaType
	})
}

// WithEngine tunes over-fetching, concurrency and timeouts.
func WithEngine(e EngineOptions) Option {
	return optionFunc(func(c *clientConfig) {
		c.engine = e
	})
}

// WithYearWindow limits candidates to titles released within the given number
// of years of the seed. Default: 20.
func WithYearWindow(years int) Option {
	return optionFunc(func(c *clientConfig) {
		c.yearWindow = years
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
