package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-lms-api/internal/config"
	"github.com/noah-isme/gema-lms-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	Service       string    `json:"service"`
	Environment   string    `json:"environment"`
	CountedKinds  []string  `json:"counted_kinds"`
	CacheEnabled  bool      `json:"cache_enabled"`
	EventsEnabled bool      `json:"events_enabled"`
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:        "ok",
			Timestamp:     time.Now().UTC(),
			Service:       cfg.AppName,
			Environment:   cfg.AppEnv,
			CountedKinds:  cfg.ProgressCountedKinds,
			CacheEnabled:  cfg.RedisURL != "",
			EventsEnabled: cfg.NATSURL != "",
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
