// Package httpapi exposes the engine over a JSON HTTP API: resolution,
// hierarchy introspection, health and Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lunglab/parcellate"
	"github.com/lunglab/parcellate/pkg/domain"
	"github.com/lunglab/parcellate/pkg/hierarchy"
	"github.com/lunglab/parcellate/pkg/registry"
)

// Engine defines the interface the HTTP surface needs from the core.
type Engine interface {
	Resolve(ctx context.Context, req parcellate.Request) (parcellate.Outcome, error)
	Hierarchy() *hierarchy.Registry
	Plugins() *registry.Registry
}

// Server wires the engine into a chi router.
type Server struct {
	engine   Engine
	gatherer prometheus.Gatherer
}

// Option configures the server.
type Option func(*Server)

// WithGatherer sets the Prometheus gatherer served on /metrics.
// Defaults to the process-wide default gatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{engine: engine, gatherer: prometheus.DefaultGatherer}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	r.Get("/regions", s.regions)
	r.Get("/regionsets", s.regionSets)
	r.Get("/plugins", s.plugins)
	r.Post("/resolve", s.resolve)
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type regionDTO struct {
	ID       string   `json:"id"`
	Set      string   `json:"set"`
	Parent   string   `json:"parent,omitempty"`
	Children []string `json:"children,omitempty"`
}

func (s *Server) regions(w http.ResponseWriter, r *http.Request) {
	var out []regionDTO
	for _, region := range s.engine.Hierarchy().Regions() {
		dto := regionDTO{ID: region.ID(), Set: region.Set().ID()}
		if p := region.Parent(); p != nil {
			dto.Parent = p.ID()
		}
		for _, c := range region.Children() {
			dto.Children = append(dto.Children, c.ID())
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

type regionSetDTO struct {
	ID     string `json:"id"`
	Parent string `json:"parent,omitempty"`
}

func (s *Server) regionSets(w http.ResponseWriter, r *http.Request) {
	var out []regionSetDTO
	for _, set := range s.engine.Hierarchy().Sets() {
		dto := regionSetDTO{ID: set.ID()}
		if p := set.Parent(); p != nil {
			dto.Parent = p.ID()
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) plugins(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Plugins().Names())
}

type resolveRequest struct {
	Plugin        string         `json:"plugin"`
	Target        string         `json:"target"`
	Dataset       string         `json:"dataset"`
	Args          map[string]any `json:"args,omitempty"`
	GenerateImage bool           `json:"generate_image,omitempty"`
	AllowCaching  *bool          `json:"allow_caching,omitempty"`
}

type imageDTO struct {
	Bounds  domain.Bounds `json:"bounds"`
	NonZero int           `json:"non_zero"`
}

type resolveResponse struct {
	Result    json.RawMessage   `json:"result"`
	Image     *imageDTO         `json:"image,omitempty"`
	WasRun    bool              `json:"was_run"`
	CacheInfo *domain.CacheInfo `json:"cache_info,omitempty"`
}

func (s *Server) resolve(w http.ResponseWriter, r *http.Request) {
	var body resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	allowCaching := true
	if body.AllowCaching != nil {
		allowCaching = *body.AllowCaching
	}

	out, err := s.engine.Resolve(r.Context(), parcellate.Request{
		Plugin:        body.Plugin,
		Target:        body.Target,
		Dataset:       body.Dataset,
		Args:          body.Args,
		GenerateImage: body.GenerateImage,
		AllowCaching:  allowCaching,
		Chain:         []string{"http"},
	})
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	raw, err := domain.EncodeResult(out.Result)
	if err != nil {
		http.Error(w, "Failed to encode result: "+err.Error(), http.StatusInternalServerError)
		return
	}

	resp := resolveResponse{Result: raw, WasRun: out.WasRun, CacheInfo: out.CacheInfo}
	if out.Image != nil {
		resp.Image = &imageDTO{Bounds: out.Image.Bounds(), NonZero: countNonZero(out.Image)}
	}
	writeJSON(w, http.StatusOK, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownPlugin),
		errors.Is(err, domain.ErrUnknownRequestedRegion),
		errors.Is(err, domain.ErrUnknownRegion),
		errors.Is(err, domain.ErrUnknownRegionSet):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnrelatedRegionSets),
		errors.Is(err, domain.ErrMissingAncestor):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func countNonZero(img domain.Image) int {
	if g, ok := img.(*domain.Grid); ok {
		return g.NonZero()
	}
	n := 0
	b := img.Bounds()
	for z := b.Min[2]; z < b.Max[2]; z++ {
		for y := b.Min[1]; y < b.Max[1]; y++ {
			for x := b.Min[0]; x < b.Max[0]; x++ {
				if img.At(x, y, z) != 0 {
					n++
				}
			}
		}
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
