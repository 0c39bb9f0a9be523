package accounts

import (
	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/authctx"
	"github.com/loopflow/cadenza/internal/dto"
)

type AccountHandler struct {
	service *AccountService
}

func NewAccountHandler(service *AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

func (h *AccountHandler) SetTeacher(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}

	var req SetTeacherRequest
	if err := c.QueryParser(&req); err != nil {
		return ErrInvalidEmail
	}
	if req.TeacherEmail == "" && len(c.Body()) > 0 {
		_ = c.BodyParser(&req)
	}
	if err := dto.Validate(&req); err != nil {
		return ErrInvalidEmail
	}

	teacher, err := h.service.SetTeacher(user, req.TeacherEmail)
	if err != nil {
		return err
	}
	return c.JSON(SetTeacherResponse{Message: "Teacher set successfully", Teacher: teacher})
}

func (h *AccountHandler) RemoveTeacher(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	if err := h.service.RemoveTeacher(user); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Teacher removed successfully"})
}

func (h *AccountHandler) MyTeacher(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	teacher, err := h.service.MyTeacher(user)
	if err != nil {
		return err
	}
	return c.JSON(teacher)
}

func (h *AccountHandler) MyStudents(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	students, err := h.service.MyStudents(user)
	if err != nil {
		return err
	}
	return c.JSON(students)
}
