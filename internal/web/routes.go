package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/Abhigyan126/Make-FaceDB/internal/catalog"
	"github.com/Abhigyan126/Make-FaceDB/internal/embedder"
	"github.com/Abhigyan126/Make-FaceDB/internal/pipeline"
	"github.com/Abhigyan126/Make-FaceDB/internal/web/handlers"
)

func (s *Server) setupRoutes(controller *pipeline.Controller, store catalog.Store, emb embedder.Embedder) {
	// Create handlers
	runsHandler := handlers.NewRunsHandler(controller, store)
	catalogHandler := handlers.NewCatalogHandler(controller, store, emb)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Runs
		r.Post("/runs", runsHandler.Start)
		r.Get("/runs/current", runsHandler.Status)
		r.Delete("/runs/current", runsHandler.Cancel)
		r.Get("/runs/current/events", runsHandler.Events)

		// Catalog
		r.Get("/catalog", catalogHandler.Stats)
		r.Post("/catalog/save", catalogHandler.Save)
		r.Post("/catalog/similar", catalogHandler.Similar)
	})
}
