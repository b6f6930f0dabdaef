package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest    ErrorCode = "bad_request"
	ErrorCodeUnauthorized  ErrorCode = "unauthorized"
	ErrorCodeInternalError ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// GetRecommendationsParams are the query parameters of GET /v1/titles/{titleId}/recommendations.
type GetRecommendationsParams struct {
	Limit *int    `form:"limit,omitempty" json:"limit,omitempty"`
	Mix   *string `form:"mix,omitempty" json:"mix,omitempty"`
}

// Enrichment carries display metadata. It is flattened into RecommendationItem
// and omitted entirely for bare entries.
type Enrichment struct {
	Title        string  `json:"title"`
	Year         *int    `json:"year,omitempty"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
}

// RecommendationItem is one ranked recommendation.
type RecommendationItem struct {
	TmdbID       int64   `json:"tmdb_id"`
	Score        float64 `json:"score"`
	SourceBucket string  `json:"source_bucket,omitempty"`
	*Enrichment
}

// RecommendationResponse is the recommendation envelope.
type RecommendationResponse struct {
	TitleID int64                `json:"titleId"`
	Count   int                  `json:"count"`
	Results []RecommendationItem `json:"results"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ServerInterface is implemented by the API handlers.
type ServerInterface interface {
	// GetRecommendations handles GET /v1/titles/{titleId}/recommendations.
	GetRecommendations(w http.ResponseWriter, r *http.Request, titleID int64, params GetRecommendationsParams)
	// HealthCheck handles GET /health.
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// Metrics handles GET /metrics.
	Metrics(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a path or query parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ServerInterfaceWrapper binds request parameters before calling the handlers.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// GetRecommendations binds titleId, limit and mix.
func (siw *ServerInterfaceWrapper) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	var titleID int64
	err := runtime.BindStyledParameterWithOptions("simple", "titleId", chi.URLParam(r, "titleId"), &titleID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "titleId", Err: err})
		return
	}

	var params GetRecommendationsParams
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &params.Limit); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "limit", Err: err})
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "mix", r.URL.Query(), &params.Mix); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "mix", Err: err})
		return
	}

	siw.Handler.GetRecommendations(w, r, titleID, params)
}

// HealthCheck passes through.
func (siw *ServerInterfaceWrapper) HealthCheck(w http.ResponseWriter, r *http.Request) {
	siw.Handler.HealthCheck(w, r)
}

// Metrics passes through.
func (siw *ServerInterfaceWrapper) Metrics(w http.ResponseWriter, r *http.Request) {
	siw.Handler.Metrics(w, r)
}

// ChiServerOptions configure HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerWithOptions mounts the API routes on the base router.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:          si,
		ErrorHandlerFunc: options.ErrorHandlerFunc,
	}

	r.Get(options.BaseURL+"/v1/titles/{titleId}/recommendations", wrapper.GetRecommendations)
	r.Get(options.BaseURL+"/health", wrapper.HealthCheck)
	r.Get(options.BaseURL+"/metrics", wrapper.Metrics)
	return r
}
