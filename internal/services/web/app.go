// Package web serves the Harvestify pages and routes each form to its
// prediction service.
package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/LeonardoBeccarini/harvestify/internal/model/entities"
	"github.com/LeonardoBeccarini/harvestify/internal/model/messages"
	"github.com/LeonardoBeccarini/harvestify/internal/services/community"
	"github.com/LeonardoBeccarini/harvestify/internal/services/crop"
	"github.com/LeonardoBeccarini/harvestify/internal/services/disease"
	"github.com/LeonardoBeccarini/harvestify/internal/services/event"
	"github.com/LeonardoBeccarini/harvestify/internal/services/fertilizer"
	"github.com/LeonardoBeccarini/harvestify/internal/services/weather"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/time/rate"
)

// Advisor is the fertilizer service as the handlers see it.
type Advisor interface {
	Recommend(ctx context.Context, crop string, n, p, k int) (fertilizer.Recommendation, error)
	Crops() []string
}

// Deps are built once in main and shared by every request.
type Deps struct {
	Weather   weather.Client
	Crop      crop.Predictor
	Disease   disease.Diagnoser
	Advisor   Advisor
	Community community.Store
	Recorder  *event.Recorder
	Readiness *Readiness
	Metrics   *Metrics
	Recent    http.Handler // optional GET /predictions/recent

	StaticDir      string
	MaxUploadBytes int64
	RateLimit      rate.Limit
	RateBurst      int
	CORSOrigins    []string
}

type App struct {
	Deps
	render  *Renderer
	limiter *rate.Limiter
}

func New(d Deps) (*App, error) {
	if d.Weather == nil || d.Crop == nil || d.Disease == nil || d.Advisor == nil {
		return nil, errors.New("web: weather, crop, disease and advisor are required")
	}
	if d.Community == nil {
		d.Community = community.NewMemoryStore()
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics()
	}
	if d.Readiness == nil {
		d.Readiness = NewReadiness(nil)
	}
	if d.MaxUploadBytes <= 0 {
		d.MaxUploadBytes = 10 << 20
	}
	if d.RateLimit <= 0 {
		d.RateLimit = rate.Inf
	}
	if d.RateBurst <= 0 {
		d.RateBurst = 1
	}
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"*"}
	}
	if d.StaticDir == "" {
		d.StaticDir = "./static"
	}
	r, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	return &App{Deps: d, render: r, limiter: rate.NewLimiter(d.RateLimit, d.RateBurst)}, nil
}

// Routes builds the router with logging and metrics middleware.
func (a *App) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(logRequests, a.Metrics.instrument)

	r.HandleFunc("/", a.home).Methods(http.MethodGet)
	r.HandleFunc("/crop-recommend", a.cropForm).Methods(http.MethodGet)
	r.HandleFunc("/fertilizer", a.fertilizerForm).Methods(http.MethodGet)
	r.HandleFunc("/disease-predict", a.diseaseForm).Methods(http.MethodGet)

	r.Handle("/crop-predict", rateLimit(a.limiter, http.HandlerFunc(a.cropPredict))).Methods(http.MethodPost)
	r.Handle("/fertilizer-predict", rateLimit(a.limiter, http.HandlerFunc(a.fertilizerPredict))).Methods(http.MethodPost)
	r.Handle("/disease-predict", rateLimit(a.limiter, http.HandlerFunc(a.diseasePredict))).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins: a.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	r.Handle("/community", c.Handler(http.HandlerFunc(a.community))).
		Methods(http.MethodGet, http.MethodPost, http.MethodOptions)

	if a.Recent != nil {
		r.Handle("/predictions/recent", a.Recent).Methods(http.MethodGet)
	}

	r.PathPrefix("/static/").
		Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(a.StaticDir)))).
		Methods(http.MethodGet, http.MethodHead)

	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	r.Handle("/readyz", a.Readiness).Methods(http.MethodGet)
	r.Handle("/metrics", a.Metrics.Handler()).Methods(http.MethodGet)
	return r
}

// record counts the outcome and hands it to the event sinks.
func (a *App) record(kind, outcome, label, detail string) {
	a.Metrics.Prediction(kind, outcome)
	a.Recorder.Record(messages.NewPredictionEvent(kind, outcome, label, detail))
}

func (a *App) crops() []string {
	if cs := a.Advisor.Crops(); len(cs) > 0 {
		return cs
	}
	return entities.CropLabels
}
