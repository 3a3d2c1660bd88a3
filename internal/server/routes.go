package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"artmarket/internal/config"
	"artmarket/internal/repository"
)

func RegisterRoutes(e *echo.Echo, cfg config.Config, users repository.UserRepository, handlers ...RouteRegistrar) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	for _, h := range handlers {
		h.RegisterRoutes(e, cfg, users)
	}
}
