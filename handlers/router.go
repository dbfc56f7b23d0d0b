package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// RouterOptions wires the handlers into one router
type RouterOptions struct {
	Store          StateReader
	Poller         PollStatusSource
	Control        Controller
	History        HistoryRepository
	Stream         http.Handler
	AllowedOrigins []string
	StaticDir      string
	CacheControl   string
}

// NewRouter builds the dashboard API
func NewRouter(opts RouterOptions) *chi.Mux {
	dashboard := NewDashboardHandler(opts.Store, opts.CacheControl)
	health := NewHealthHandler(opts.Poller, opts.Store)
	controlHandler := NewControlHandler(opts.Control)
	history := NewHistoryHandler(opts.History)
	feedHandler := NewFeedHandler(opts.Store)

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", health.GetHealth)
	r.Get("/healthz", health.Healthz)
	r.Get("/api/health/data", health.GetDataFreshness)

	r.Get("/init", dashboard.GetInit)
	r.Get("/api/state", dashboard.GetState)
	r.Get("/api/transports", dashboard.GetTransports)
	r.Get("/api/customers", dashboard.GetCustomers)
	r.Get("/api/stations", dashboard.GetStations)
	r.Get("/api/vehicles", dashboard.GetVehicles)
	r.Get("/api/paths", dashboard.GetPaths)
	r.Get("/api/stats", dashboard.GetStats)
	r.Get("/api/tree", dashboard.GetTree)
	r.Get("/api/markers/{id}", dashboard.GetMarker)

	controlRoutes := func(r chi.Router) {
		r.Get("/run", controlHandler.Run)
		r.Get("/stop", controlHandler.Stop)
		r.Get("/clean", controlHandler.Clean)
		r.Get("/generate/taxis/{taxis}/passengers/{passengers}", controlHandler.Generate)
	}
	// The dashboard page calls the bare paths; /api/control mirrors them.
	controlRoutes(r)
	r.Route("/api/control", controlRoutes)

	r.Get("/api/history/stats", history.GetStats)
	r.Get("/api/history/units/{id}", history.GetUnitTrail)

	r.Get("/api/feed/vehicle_positions.pb", feedHandler.GetVehiclePositions)

	if opts.Stream != nil {
		r.Handle("/ws", opts.Stream)
	}

	if opts.StaticDir != "" {
		fs := http.FileServer(http.Dir(opts.StaticDir))
		r.Handle("/*", fs)
	}

	return r
}
