package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"storycanvas/application/collab"
	"storycanvas/application/navigation"
	"storycanvas/domain/palette"
	"storycanvas/infrastructure/config"
	"storycanvas/infrastructure/realtime"
	"storycanvas/interfaces/http/rest/handlers"
	"storycanvas/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router
type Router struct {
	coordinator *collab.Coordinator
	navStore    *navigation.Store
	resolver    *palette.Resolver
	hub         *realtime.Hub
	cfg         *config.Config
	logger      *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	coordinator *collab.Coordinator,
	navStore *navigation.Store,
	resolver *palette.Resolver,
	hub *realtime.Hub,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		coordinator: coordinator,
		navStore:    navStore,
		resolver:    resolver,
		hub:         hub,
		cfg:         cfg,
		logger:      logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.storycanvas.app"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-User-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)

	canvasHandler := handlers.NewCanvasHandler(rt.coordinator, rt.cfg.ViewportBuffer, rt.logger)
	nodeHandler := handlers.NewNodeHandler(rt.coordinator, rt.logger)
	navHandler := handlers.NewNavigationHandler(rt.navStore, rt.coordinator, rt.logger)
	paletteHandler := handlers.NewPaletteHandler(rt.resolver, rt.coordinator, rt.logger)
	wsHandler := handlers.NewWSHandler(rt.hub, rt.coordinator, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Authenticate(rt.cfg))

		r.Post("/palettes/generate", paletteHandler.Generate)

		r.Route("/stories/{storyID}", func(r chi.Router) {
			r.Get("/canvases", canvasHandler.ListCanvases)
			r.Put("/palette", paletteHandler.SetProjectPalette)

			r.Route("/navigation", func(r chi.Router) {
				r.Get("/", navHandler.GetState)
				r.Post("/enter", navHandler.EnterFolder)
				r.Post("/breadcrumb/{index}", navHandler.JumpBreadcrumb)
			})

			r.Route("/canvases/{canvasID}", func(r chi.Router) {
				r.Get("/", canvasHandler.OpenCanvas)
				r.Delete("/session", canvasHandler.CloseCanvas)
				r.Post("/cull", canvasHandler.CullViewport)

				r.Get("/palette", paletteHandler.Resolve)
				r.Put("/palette", paletteHandler.SetCanvasPalette)

				r.Route("/nodes", func(r chi.Router) {
					r.Post("/", nodeHandler.CreateNode)
					r.Patch("/{nodeID}", nodeHandler.UpdateNode)
					r.Delete("/{nodeID}", nodeHandler.DeleteNode)
				})

				r.Route("/connections", func(r chi.Router) {
					r.Post("/", nodeHandler.CreateConnection)
					r.Delete("/{connectionID}", nodeHandler.DeleteConnection)
				})

				r.Get("/ws", wsHandler.Connect)
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
