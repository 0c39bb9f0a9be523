package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/database"
	"github.com/loopflow/cadenza/internal/dto"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(dto.MessageResponse{Message: "Cadenza API"})
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(h.db); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
	})
}
