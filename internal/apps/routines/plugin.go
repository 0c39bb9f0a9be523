package routines

import (
	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/apps"
)

type RoutinesPlugin struct{}

func New() *RoutinesPlugin {
	return &RoutinesPlugin{}
}

func (p *RoutinesPlugin) ID() string { return "routines" }

func (p *RoutinesPlugin) RegisterRoutes(router fiber.Router, deps apps.Deps) {
	svc := NewRoutineService(deps)
	handler := NewRoutineHandler(svc)

	router.Get("/routines", handler.List)
	router.Post("/routines", handler.Create)
	router.Get("/routines/:id", handler.Get)
	router.Put("/routines/:id", handler.Update)
	router.Delete("/routines/:id", handler.Delete)

	router.Post("/routines/:id/exercises", handler.AddExercise)
	router.Put("/routines/:id/exercises/:exercise_id", handler.UpdateExercise)
	router.Delete("/routines/:id/exercises/:exercise_id", handler.DeleteExercise)
	router.Put("/routines/:id/reorder", handler.Reorder)

	router.Post("/students/:student_id/assign-routine", handler.Assign)
	router.Get("/students/:student_id/current-routine", handler.StudentCurrentRoutine)
	router.Get("/my-current-routine", handler.MyCurrentRoutine)
}
