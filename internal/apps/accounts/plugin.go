package accounts

import (
	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/apps"
)

type AccountsPlugin struct{}

func New() *AccountsPlugin {
	return &AccountsPlugin{}
}

func (p *AccountsPlugin) ID() string { return "accounts" }

func (p *AccountsPlugin) RegisterRoutes(router fiber.Router, deps apps.Deps) {
	svc := NewAccountService(deps.DB)
	handler := NewAccountHandler(svc)

	router.Post("/users/set-teacher", handler.SetTeacher)
	router.Delete("/users/remove-teacher", handler.RemoveTeacher)
	router.Get("/users/my-teacher", handler.MyTeacher)
	router.Get("/users/my-students", handler.MyStudents)
}
