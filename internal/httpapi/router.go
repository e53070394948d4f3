package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	custommw "github.com/jcom-dev/ctod-go/internal/middleware"
)

// NewRouter builds the public tile-serving router: named-dataset and
// dynamic terrain/layer.json routes plus /status, behind the teacher's
// middleware stack and a configurable CORS policy.
func NewRouter(deps *Deps, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(custommw.RequestIDChi)
	r.Use(custommw.RealIP)
	r.Use(custommw.Logger)
	r.Use(custommw.Recoverer)
	r.Use(custommw.Timeout(30 * time.Second))
	r.Use(custommw.SecurityHeaders)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept"},
		MaxAge:         300,
	}))

	r.Get("/status", statusHandler(deps))

	r.Get("/tiles/dynamic/layer.json", layerHandler(deps, true))
	r.Get("/tiles/dynamic/{z}/{x}/{y}.terrain", terrainHandler(deps, true))

	r.Get("/tiles/{dataset}/layer.json", layerHandler(deps, false))
	r.Get("/tiles/{dataset}/{z}/{x}/{y}.terrain", terrainHandler(deps, false))

	return r
}
