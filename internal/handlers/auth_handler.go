package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/apperr"
	"github.com/loopflow/cadenza/internal/authctx"
	"github.com/loopflow/cadenza/internal/dto"
	"github.com/loopflow/cadenza/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) DevLogin(c *fiber.Ctx) error {
	var req dto.DevLoginRequest
	if err := c.QueryParser(&req); err != nil {
		return apperr.BadRequest("Invalid query parameters")
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}

	resp, err := h.authService.DevLogin(req.Email)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *AuthHandler) AppleSignIn(c *fiber.Ctx) error {
	var req dto.AppleSignInRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	if req.Token() == "" {
		return apperr.Validation("id_token is required")
	}

	resp, err := h.authService.AppleSignIn(c.UserContext(), req.Token())
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := authctx.RequireUser(c)
	if err != nil {
		return err
	}
	return c.JSON(user)
}
