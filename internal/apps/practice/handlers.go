package practice

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/loopflow/cadenza/internal/apperr"
	"github.com/loopflow/cadenza/internal/apps"
	"github.com/loopflow/cadenza/internal/authctx"
)

type PracticeHandler struct {
	service *PracticeService
}

func NewPracticeHandler(service *PracticeService) *PracticeHandler {
	return &PracticeHandler{service: service}
}

func (h *PracticeHandler) Start(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}

	var req StartSessionRequest
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

	session, err := h.service.Start(user, routineID)
	if err != nil {
		return err
	}
	return c.JSON(session)
}

func (h *PracticeHandler) List(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	sessions, err := h.service.List(user)
	if err != nil {
		return err
	}
	return c.JSON(sessions)
}

func (h *PracticeHandler) Get(c *fiber.Ctx) error {
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

func (h *PracticeHandler) Complete(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	id, err := apps.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	session, err := h.service.Complete(user, id)
	if err != nil {
		return err
	}
	return c.JSON(session)
}

func (h *PracticeHandler) CompleteExercise(c *fiber.Ctx) error {
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
	var req CompleteExerciseRequest
	if err := apps.ParseBody(c, &req); err != nil {
		return err
	}
	row, err := h.service.CompleteExercise(user, id, exerciseID, req)
	if err != nil {
		return err
	}
	return c.JSON(row)
}

func (h *PracticeHandler) ToggleExercise(c *fiber.Ctx) error {
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
	var req ToggleExerciseRequest
	if err := apps.ParseBody(c, &req); err != nil {
		return err
	}
	row, err := h.service.ToggleExercise(user, id, exerciseID, req)
	if err != nil {
		return err
	}
	return c.JSON(row)
}

func (h *PracticeHandler) Calendar(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	days, err := h.service.Calendar(user)
	if err != nil {
		return err
	}
	return c.JSON(days)
}

func (h *PracticeHandler) Completions(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	completions, err := h.service.Completions(user)
	if err != nil {
		return err
	}
	return c.JSON(completions)
}
