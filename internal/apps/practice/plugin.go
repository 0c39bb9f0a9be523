package practice

import (
	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/apps"
)

type PracticePlugin struct{}

func New() *PracticePlugin {
	return &PracticePlugin{}
}

func (p *PracticePlugin) ID() string { return "practice" }

func (p *PracticePlugin) RegisterRoutes(router fiber.Router, deps apps.Deps) {
	svc := NewPracticeService(deps)
	handler := NewPracticeHandler(svc)

	router.Post("/sessions", handler.Start)
	router.Get("/sessions", handler.List)
	// Static segments before /sessions/:id.
	router.Get("/sessions/calendar", handler.Calendar)
	router.Get("/sessions/completions", handler.Completions)
	router.Get("/sessions/:id", handler.Get)
	router.Put("/sessions/:id/complete", handler.Complete)
	router.Post("/sessions/:id/exercises/:exercise_id/complete", handler.CompleteExercise)
	router.Patch("/sessions/:id/exercises/:exercise_id", handler.ToggleExercise)
}
