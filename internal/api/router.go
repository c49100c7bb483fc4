package api

import (
	"net/http"
	"tripsynth/internal/api/handlers"
	"tripsynth/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// Deps are the collaborators the HTTP layer needs. Catalog and Mailer are optional.
type Deps struct {
	Planner     handlers.TripPlanner
	Store       ports.ItineraryStore
	Catalog     handlers.DestinationLister
	Mailer      handlers.ItineraryMailer
	Logger      zerolog.Logger
	CORSOrigins []string
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(d.Logger))
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Location"},
		MaxAge:         300,
	}).Handler)

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Get("/health", handlers.Health)

	if d.Catalog != nil {
		dest := &handlers.DestinationHandler{Catalog: d.Catalog}
		r.Get("/destinations", dest.List)
	}

	it := &handlers.ItineraryHandler{Planner: d.Planner, Store: d.Store, Mailer: d.Mailer}
	r.Route("/itineraries", func(r chi.Router) {
		r.Post("/", it.Create)
		r.Get("/{id}", it.Get)
		r.Get("/{id}/document", it.Document)
		r.Get("/{id}/calendar.ics", it.Calendar)
		r.Post("/{id}/email", it.Email)
	})

	return r
}
