package tmdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/vecrec/internal/domain"
	"github.com/kailas-cloud/vecrec/internal/domain/recommend"
	"github.com/kailas-cloud/vecrec/internal/metrics"
)

const (
	// DefaultBaseURL is the TMDB v3 API root.
	DefaultBaseURL = "https://api.themoviedb.org/3"
	breakerName    = "tmdb"
	maxErrorBody   = 256
)

// Media types supported by the details endpoint.
const (
	MediaMovie = "movie"
	MediaTV    = "tv"
)

// BreakerSettings tunes the circuit breaker around the TMDB API.
type BreakerSettings struct {
	MaxRequests  uint32        // requests allowed while half-open
	Interval     time.Duration // closed-state count reset period
	Timeout      time.Duration // open-state duration before half-open
	MinRequests  uint32        // requests before the failure ratio is considered
	FailureRatio float64
}

// Config holds TMDB client settings.
type Config struct {
	BaseURL           string
	APIKey            string
	MediaType         string
	Language          string
	RequestsPerSecond float64
	Burst             int
	Breaker           BreakerSettings
	HTTPClient        *http.Client
}

// Client is a read-only TMDB details client. It is rate limited and wrapped
// in a circuit breaker; both are shared by every caller of the client.
type Client struct {
	baseURL   string
	apiKey    string
	mediaType string
	language  string
	http      *http.Client
	limiter   *rate.Limiter
	cb        *gobreaker.CircuitBreaker[*recommend.Metadata]
	logger    *zap.Logger
}

// New creates a TMDB client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("tmdb: api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("tmdb: invalid base url: %w", err)
	}
	switch cfg.MediaType {
	case "":
		cfg.MediaType = MediaMovie
	case MediaMovie, MediaTV:
	default:
		return nil, fmt.Errorf("tmdb: unsupported media type %q", cfg.MediaType)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		mediaType: cfg.MediaType,
		language:  cfg.Language,
		http:      cfg.HTTPClient,
		limiter:   rate.NewLimiter(limit, burst),
		logger:    logger,
	}
	c.cb = gobreaker.NewCircuitBreaker[*recommend.Metadata](c.breakerSettings(cfg.Breaker))
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	return c, nil
}

func (c *Client) breakerSettings(b BreakerSettings) gobreaker.Settings {
	minRequests := b.MinRequests
	if minRequests == 0 {
		minRequests = 10
	}
	ratio := b.FailureRatio
	if ratio <= 0 {
		ratio = 0.6
	}

	return gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: b.MaxRequests,
		Interval:    b.Interval,
		Timeout:     b.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		// Unknown titles do not count as failures.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	}
}

// Lookup fetches display metadata for one title. Errors wrap
// domain.ErrNotFound for unknown titles and domain.ErrMetadataUnavailable otherwise.
func (c *Client) Lookup(ctx context.Context, externalID int64) (*recommend.Metadata, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("tmdb %d: rate limit wait: %w: %w", externalID, domain.ErrMetadataUnavailable, err)
	}

	md, err := c.cb.Execute(func() (*recommend.Metadata, error) {
		return c.fetch(ctx, externalID)
	})
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
		return md, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
		return nil, fmt.Errorf("tmdb %d: %w: %w", externalID, domain.ErrMetadataUnavailable, err)
	case errors.Is(err, domain.ErrNotFound):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
		return nil, err
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		return nil, err
	}
}

// HealthCheck reports the provider unavailable while the breaker is open.
func (c *Client) HealthCheck(_ context.Context) error {
	if c.cb.State() == gobreaker.StateOpen {
		return fmt.Errorf("tmdb: %w: circuit open", domain.ErrMetadataUnavailable)
	}
	return nil
}

type detailsResponse struct {
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
	Popularity   float64 `json:"popularity"`
}

func (c *Client) fetch(ctx context.Context, externalID int64) (*recommend.Metadata, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	reqURL := fmt.Sprintf("%s/%s/%d?%s", c.baseURL, c.mediaType, externalID, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("tmdb %d: create request: %w: %w", externalID, domain.ErrMetadataUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tmdb %d: %w: %w", externalID, domain.ErrMetadataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("tmdb %d: %w", externalID, domain.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("tmdb %d: status %d: %s: %w",
			externalID, resp.StatusCode, strings.TrimSpace(string(body)), domain.ErrMetadataUnavailable)
	}

	var d detailsResponse
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return nil, fmt.Errorf("tmdb %d: decode: %w: %w", externalID, domain.ErrMetadataUnavailable, err)
	}
	return d.toMetadata(), nil
}

func (d *detailsResponse) toMetadata() *recommend.Metadata {
	title := d.Title
	if title == "" {
		title = d.Name
	}
	date := d.ReleaseDate
	if date == "" {
		date = d.FirstAirDate
	}
	return &recommend.Metadata{
		Title:        title,
		Year:         yearOf(date),
		PosterPath:   emptyToNil(d.PosterPath),
		BackdropPath: emptyToNil(d.BackdropPath),
		Popularity:   d.Popularity,
	}
}

// yearOf extracts the year of a YYYY-MM-DD date.
func yearOf(date string) *int {
	if len(date) < 4 {
		return nil
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil || y <= 0 {
		return nil
	}
	return &y
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
