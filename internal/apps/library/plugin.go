package library

import (
	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/apps"
)

type LibraryPlugin struct{}

func New() *LibraryPlugin {
	return &LibraryPlugin{}
}

func (p *LibraryPlugin) ID() string { return "library" }

func (p *LibraryPlugin) RegisterRoutes(router fiber.Router, deps apps.Deps) {
	svc := NewLibraryService(deps)
	handler := NewLibraryHandler(svc)

	router.Get("/pieces", handler.List)
	router.Post("/pieces", handler.Create)
	router.Put("/pieces/:id", handler.Update)
	router.Delete("/pieces/:id", handler.Delete)
	router.Get("/pieces/:id/download-url", handler.DownloadURL)
	router.Post("/pieces/:id/share/:student_id", handler.Share)
	router.Get("/students/:student_id/pieces", handler.StudentPieces)
}
