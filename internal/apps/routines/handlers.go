package routines

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/loopflow/cadenza/internal/apperr"
	"github.com/loopflow/cadenza/internal/apps"
	"github.com/loopflow/cadenza/internal/authctx"
	"github.com/loopflow/cadenza/internal/dto"
)

type RoutineHandler struct {
	service *RoutineService
}

func NewRoutineHandler(service *RoutineService) *RoutineHandler {
	return &RoutineHandler{service: service}
}

func (h *RoutineHandler) List(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	routines, err := h.service.List(user)
	if err != nil {
		return err
	}
	return c.JSON(routines)
}

func (h *RoutineHandler) Create(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	var req RoutineRequest
	if err := apps.ParseBody(c, &req); err != nil {
		return err
	}
	routine, err := h.service.Create(user, req)
	if err != nil {
		return err
	}
	return c.JSON(routine)
}

func (h *RoutineHandler) Get(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.service.Get(user, id)
	if err != nil {
		return err
	}
	return c.JSON(detail)
}

func (h *RoutineHandler) Update(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req RoutineRequest
	if err := apps.ParseBody(c, &req); err != nil {
		return err
	}
	routine, err := h.service.Update(user, id, req)
	if err != nil {
		return err
	}
	return c.JSON(routine)
}

func (h *RoutineHandler) Delete(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(user, id); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Routine deleted successfully"})
}

func (h *RoutineHandler) AddExercise(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req CreateExerciseRequest
	if err := apps.ParseBody(c, &req); err != nil {
		return err
	}
	exercise, err := h.service.AddExercise(user, id, req)
	if err != nil {
		return err
	}
	return c.JSON(exercise)
}

func (h *RoutineHandler) UpdateExercise(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	exerciseID, err := apps.UUIDParam(c, "exercise_id")
	if err != nil {
		return err
	}
	var req UpdateExerciseRequest
	if err := apps.ParseBody(c, &req); err != nil {
		return err
	}
	exercise, err := h.service.UpdateExercise(user, id, exerciseID, req)
	if err != nil {
		return err
	}
	return c.JSON(exercise)
}

func (h *RoutineHandler) DeleteExercise(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	exerciseID, err := apps.UUIDParam(c, "exercise_id")
	if err != nil {
		return err
	}
	if err := h.service.DeleteExercise(user, id, exerciseID); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Exercise removed successfully"})
}

func (h *RoutineHandler) Reorder(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req ReorderRequest
	if err := apps.ParseBody(c, &req); err != nil {
		return err
	}
	if err := h.service.Reorder(user, id, req.ExerciseIDs); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Exercises reordered successfully"})
}

// Assign accepts routine_id either as a query parameter or in a JSON body.
func (h *RoutineHandler) Assign(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	studentID, err := apps.UUIDParam(c, "student_id")
	if err != nil {
		return err
	}

	var req AssignRequest
	req.RoutineID = c.Query("routine_id")
	if req.RoutineID == "" {
		if err := apps.ParseBody(c, &req); err != nil {
			return err
		}
	}
	routineID, err := uuid.Parse(req.RoutineID)
	if err != nil {
		return apperr.BadRequest("Invalid routine_id")
	}

	resp, err := h.service.Assign(user, studentID, routineID)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *RoutineHandler) StudentCurrentRoutine(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	studentID, err := apps.UUIDParam(c, "student_id")
	if err != nil {
		return err
	}
	current, err := h.service.StudentCurrentRoutine(user, studentID)
	if err != nil {
		return err
	}
	return c.JSON(current)
}

func (h *RoutineHandler) MyCurrentRoutine(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	current, err := h.service.CurrentRoutine(user.ID)
	if err != nil {
		return err
	}
	return c.JSON(current)
}
