package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"ShopCart/pkg/kit"
)

const defaultService = "catalog"

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	// MetricsToken protects /metrics; the endpoint is only mounted when a
	// Registry is set.
	MetricsToken string
}

// NewHandler wraps the catalog routes with request ids, panic recovery,
// access logs and, given a registry, request metrics.
func NewHandler(s *Server, deps HTTPDeps) http.Handler {
	service := deps.Service
	if service == "" {
		service = defaultService
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))

	if deps.Registry != nil {
		r.Use(kit.NewMetrics(deps.Registry).Middleware(service, kit.ChiRoutePatternOrPath))
		r.With(kit.MetricsAuth(deps.MetricsToken)).
			Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Mount("/", s.Routes())
	return r
}
