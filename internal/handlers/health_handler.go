package handlers

import (
	"net/http"

	"github.com/labstack/echo/v5"
	"github.com/redis/go-redis/v9"

	"ticketd/internal/store"
)

// HealthHandler reports liveness of the two backing stores.
type HealthHandler struct {
	store store.Store
	redis redis.Cmdable
}

func NewHealthHandler(st store.Store, rdb redis.Cmdable) *HealthHandler {
	return &HealthHandler{store: st, redis: rdb}
}

func (h *HealthHandler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx := c.Request().Context()
	checks := map[string]string{"database": "ok", "redis": "ok"}
	healthy := true

	if err := h.store.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	}
	if err := h.redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		healthy = false
	}

	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]any{"healthy": healthy, "checks": checks})
}
