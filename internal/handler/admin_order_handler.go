package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"artmarket/internal/config"
	"artmarket/internal/middleware"
	"artmarket/internal/repository"
	"artmarket/internal/usecase"
	"artmarket/internal/validator"
)

// /admin/orders（一覧・操作履歴）
type AdminOrderHandler struct {
	uc *usecase.AdminOrderUsecase
}

func NewAdminOrderHandler(uc *usecase.AdminOrderUsecase) *AdminOrderHandler {
	return &AdminOrderHandler{uc: uc}
}

func (h *AdminOrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	admin := e.Group("/admin")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.GET("/orders", h.list)
	admin.GET("/orders/:id/history", h.history)
}

func (h *AdminOrderHandler) list(c echo.Context) error {
	page, err := validator.ParseIntDefault(c.QueryParam("page"), 1, "page")
	if err != nil {
		return writeError(c, err)
	}
	limit, err := validator.ParseIntDefault(c.QueryParam("limit"), 50, "limit")
	if err != nil {
		return writeError(c, err)
	}

	f := repository.AdminOrderListFilter{
		Page:   page,
		Limit:  limit,
		Status: strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))),
	}

	if v := c.QueryParam("buyer_id"); v != "" {
		id, err := validator.ParseID(v, "buyer_id")
		if err != nil {
			return writeError(c, err)
		}
		f.BuyerID = &id
	}

	if v := c.QueryParam("from"); v != "" {
		tm, ok := usecase.ParseDateTimeRFC3339(v)
		if !ok {
			return badRequest(c, "invalid from")
		}
		f.From = tm
	}
	if v := c.QueryParam("to"); v != "" {
		tm, ok := usecase.ParseDateTimeRFC3339(v)
		if !ok {
			return badRequest(c, "invalid to")
		}
		f.To = tm
	}

	out, err := h.uc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 監査ログ（新しい順）
func (h *AdminOrderHandler) history(c echo.Context) error {
	orderID, err := validator.ParseID(c.Param("id"), "id")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.History(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
