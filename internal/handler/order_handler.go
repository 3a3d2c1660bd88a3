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

const idempotencyHeader = "X-Idempotency-Key"

type OrderHandler struct {
	uc    *usecase.OrderUsecase
	admin *usecase.AdminOrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase, admin *usecase.AdminOrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc, admin: admin}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/orders")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.POST("/create-order", h.create)
	g.POST("/create-payment-intent", h.createPaymentIntent)
	g.POST("/confirm-payment", h.confirmPayment)
	g.GET("", h.list)
	g.GET("/:id", h.detail)

	// 管理者のみ
	g.PUT("/update-order-status/:orderId", h.updateStatus, middleware.AdminRoleGuard())
	g.POST("/send-money/:artworkId", h.sendMoney, middleware.AdminRoleGuard())
}

func (h *OrderHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req validator.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	//二重送信防止キーはヘッダーから受け取る（bodyには入れない）
	in, err := req.Input(c.Request().Header.Get(idempotencyHeader))
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.CreateOrder(c.Request().Context(), userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) createPaymentIntent(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req validator.PaymentIntentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in, err := req.Input(c.Request().Header.Get(idempotencyHeader))
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.CreatePaymentIntent(c.Request().Context(), userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) confirmPayment(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req validator.ConfirmPaymentRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in, err := req.Input(c.Request().Header.Get(idempotencyHeader))
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.ConfirmPayment(c.Request().Context(), userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.ListMyOrders(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := validator.ParseID(c.Param("id"), "id")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.GetMyOrderDetail(c.Request().Context(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) updateStatus(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	orderID, err := validator.ParseID(c.Param("orderId"), "orderId")
	if err != nil {
		return writeError(c, err)
	}

	var req validator.OrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in, err := req.Input()
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.admin.UpdateStatus(c.Request().Context(), adminID, orderID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 出品者へ送金。レスポンスは transfer_id
func (h *OrderHandler) sendMoney(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	artworkID, err := validator.ParseID(c.Param("artworkId"), "artworkId")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.admin.SendSellerPayout(c.Request().Context(), adminID, artworkID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
