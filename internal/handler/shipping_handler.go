package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"artmarket/internal/config"
	"artmarket/internal/middleware"
	"artmarket/internal/repository"
	"artmarket/internal/usecase"
	"artmarket/internal/validator"
)

type ShippingHandler struct {
	uc *usecase.ShippingUsecase
}

func NewShippingHandler(uc *usecase.ShippingUsecase) *ShippingHandler {
	return &ShippingHandler{uc: uc}
}

// 計算と一覧は公開、料金表の更新は管理者のみ
func (h *ShippingHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	e.POST("/shippingrates/calculate-shipping", h.calculate)
	e.GET("/shippingrates", h.list)

	admin := e.Group("/admin/shippingrates")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.PUT("/:country", h.upsert)
}

func (h *ShippingHandler) calculate(c echo.Context) error {
	var req validator.CalculateShippingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in, err := req.Input()
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Calculate(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ShippingHandler) list(c echo.Context) error {
	out, err := h.uc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ShippingHandler) upsert(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req validator.ShippingRateRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in, err := req.Input(c.Param("country"))
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Upsert(c.Request().Context(), adminID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
