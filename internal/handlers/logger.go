package handlers

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/vanpelt/sitecraft/internal/logger"
)

// statusSampleEvery controls how often polled status requests are logged
const statusSampleEvery = 10

// RequestLogger logs requests through zerolog. The status endpoint is polled
// constantly, so only every tenth hit is logged.
func RequestLogger() fiber.Handler {
	var (
		mu           sync.Mutex
		statusCounts uint64
	)
	log := logger.Component("preview-server")

	return func(c *fiber.Ctx) error {
		if c.Path() == statusPath {
			mu.Lock()
			statusCounts++
			sample := statusCounts%statusSampleEvery == 0
			mu.Unlock()
			if !sample {
				return c.Next()
			}
		}

		start := time.Now()
		err := c.Next()
		log.Debug().
			Int("status", c.Response().StatusCode()).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Dur("latency", time.Since(start)).
			AnErr("error", err).
			Msg("request")
		return err
	}
}
