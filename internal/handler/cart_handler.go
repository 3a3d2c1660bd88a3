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

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

// /cart, /cart/add, /cart/{artworkId} を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/cart")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))

	g.GET("", h.getCart)
	g.POST("/add", h.add)
	g.DELETE("/:artworkId", h.remove)
}

func (h *CartHandler) getCart(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) add(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req validator.AddToCartRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	artworkID, err := req.Validate()
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Reserve(c.Request().Context(), userID, artworkID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// 押さえ解除（無くても200）
func (h *CartHandler) remove(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	artworkID, err := validator.ParseID(c.Param("artworkId"), "artworkId")
	if err != nil {
		return writeError(c, err)
	}

	if err := h.uc.Release(c.Request().Context(), userID, artworkID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "released"})
}
