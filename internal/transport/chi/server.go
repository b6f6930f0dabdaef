package chi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecrec/internal/domain/recommend"
	healthuc "github.com/kailas-cloud/vecrec/internal/usecase/health"
)

// DefaultLimit is used when the request carries no limit.
const DefaultLimit = 20

// Recommender is the fusion engine contract consumed by the HTTP layer.
type Recommender interface {
	Recommend(ctx context.Context, titleID int64, limit int) recommend.Envelope
	RecommendWithMix(ctx context.Context, titleID int64, limit int, spec string) recommend.Envelope
}

// HealthReporter aggregates dependency health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}

// Server implements ServerInterface.
type Server struct {
	recommender Recommender
	health      HealthReporter
	metrics     http.Handler
	logger      *zap.Logger
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(recommender Recommender, health HealthReporter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		recommender: recommender,
		health:      health,
		metrics:     promhttp.Handler(),
		logger:      logger,
	}
}

// GetRecommendations handles GET /v1/titles/{titleId}/recommendations.
// Out-of-range values are passed through; the engine answers them with an empty envelope.
func (s *Server) GetRecommendations(
	w http.ResponseWriter,
	r *http.Request,
	titleID int64,
	params GetRecommendationsParams,
) {
	limit := DefaultLimit
	if params.Limit != nil {
		limit = *params.Limit
	}

	var env recommend.Envelope
	if params.Mix != nil && strings.TrimSpace(*params.Mix) != "" {
		env = s.recommender.RecommendWithMix(r.Context(), titleID, limit, *params.Mix)
	} else {
		env = s.recommender.Recommend(r.Context(), titleID, limit)
	}

	if err := writeJSON(w, http.StatusOK, envelopeToDTO(env)); err != nil {
		s.logger.Error("failed to encode recommendations",
			zap.Int64("title_id", titleID),
			zap.Error(err),
		)
	}
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	if err := writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	}); err != nil {
		s.logger.Error("failed to encode health report", zap.Error(err))
	}
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.ServeHTTP(w, r)
}

// BadRequestHandler answers parameter binding failures with a JSON 400.
func BadRequestHandler(logger *zap.Logger) func(w http.ResponseWriter, r *http.Request, err error) {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		msg := "invalid request"
		var pe *InvalidParamFormatError
		if errors.As(err, &pe) {
			msg = "invalid " + pe.ParamName
		}
		if logger != nil {
			logger.Debug("request binding failed", zap.String("path", r.URL.Path), zap.Error(err))
		}
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, msg)
	}
}

func envelopeToDTO(env recommend.Envelope) RecommendationResponse {
	items := make([]RecommendationItem, len(env.Results))
	for i, it := range env.Results {
		items[i] = RecommendationItem{
			TmdbID:       it.ExternalID,
			Score:        it.Score,
			SourceBucket: string(it.SourceBucket),
		}
		if md := it.Metadata; md != nil {
			items[i].Enrichment = &Enrichment{
				Title:        md.Title,
				Year:         md.Year,
				PosterPath:   md.PosterPath,
				BackdropPath: md.BackdropPath,
			}
		}
	}
	return RecommendationResponse{
		TitleID: env.TitleID,
		Count:   env.Count,
		Results: items,
	}
}

var internalErrorBody = []byte(`{"code":"internal_error","message":"internal error"}`)

// writeJSON encodes v before the status line goes out. A value that cannot be
// encoded is answered with a 500 error body and the encode error is returned.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		status, body = http.StatusInternalServerError, internalErrorBody
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
	return err
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	_ = writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
