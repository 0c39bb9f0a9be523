package apps

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/loopflow/cadenza/internal/config"
	"github.com/loopflow/cadenza/internal/storage"
	"gorm.io/gorm"
)

// Deps is everything a feature plugin may use. Plugins hold no globals.
type Deps struct {
	DB      *gorm.DB
	Config  *config.Config
	Storage storage.Store
	Keys    storage.Keys
	// Now stamps every domain timestamp; tests substitute a fixed clock.
	Now func() time.Time
}

// Clock returns Now in UTC, defaulting to the wall clock.
func (d Deps) Clock() func() time.Time {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return func() time.Time { return now().UTC() }
}

// Plugin defines the interface every feature area implements.
type Plugin interface {
	// ID returns the unique feature identifier used in logs.
	ID() string

	// RegisterRoutes mounts the feature's routes on the given Fiber group.
	// The group already resolves the caller and applies rate limits.
	RegisterRoutes(router fiber.Router, deps Deps)
}
