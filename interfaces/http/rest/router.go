// Package rest wires the REST interface: routes, middleware and the
// SSE change feed.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"atelier/application/commands/bus"
	"atelier/application/ports"
	querybus "atelier/application/queries/bus"
	"atelier/interfaces/http/rest/handlers"
	"atelier/interfaces/http/rest/middleware"
)

// Router creates and configures the HTTP router
type Router struct {
	commandBus    *bus.CommandBus
	queryBus      *querybus.QueryBus
	eventBus      ports.EventBus
	logger        *zap.Logger
	enableCORS    bool
	enableMetrics bool
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	eventBus ports.EventBus,
	logger *zap.Logger,
	enableCORS, enableMetrics bool,
) *Router {
	return &Router{
		commandBus:    commandBus,
		queryBus:      queryBus,
		eventBus:      eventBus,
		logger:        logger,
		enableCORS:    enableCORS,
		enableMetrics: enableMetrics,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"http://localhost:*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	if rt.enableMetrics {
		router.Handle("/metrics", promhttp.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		workspaceHandler := handlers.NewWorkspaceHandler(rt.commandBus, rt.queryBus, rt.logger)
		r.Route("/workspace", func(r chi.Router) {
			r.Get("/", workspaceHandler.GetWorkspace)
			r.Put("/canvas", workspaceHandler.SetCanvas)
			r.Put("/selection", workspaceHandler.SetSelection)
			r.Get("/context", workspaceHandler.GetContext)
		})

		r.Route("/nodes", func(r chi.Router) {
			nodeHandler := handlers.NewNodeHandler(rt.commandBus, rt.queryBus, rt.logger)
			fileHandler := handlers.NewFileHandler(rt.commandBus, rt.queryBus, rt.logger)

			r.Post("/", nodeHandler.CreateNode)
			r.Get("/{nodeID}", nodeHandler.GetNode)
			r.Delete("/{nodeID}", nodeHandler.DeleteNode)
			r.Put("/{nodeID}/name", nodeHandler.RenameNode)
			r.Put("/{nodeID}/position", nodeHandler.MoveNode)
			r.Put("/{nodeID}/selection", nodeHandler.SelectFile)

			r.Route("/{nodeID}/files", func(r chi.Router) {
				r.Post("/", fileHandler.AddFile)
				r.Get("/{fileID}", fileHandler.GetFile)
				r.Put("/{fileID}", fileHandler.UpdateFile)
				r.Put("/{fileID}/name", fileHandler.RenameFile)
				r.Delete("/{fileID}", fileHandler.DeleteFile)
			})
		})

		r.Route("/connections", func(r chi.Router) {
			connectionHandler := handlers.NewConnectionHandler(rt.commandBus, rt.logger)
			r.Post("/", connectionHandler.Connect)
			r.Delete("/", connectionHandler.Disconnect)
		})

		r.Get("/events", handlers.NewEventsHandler(rt.eventBus, rt.logger).Stream)
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
