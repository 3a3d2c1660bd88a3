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

// 作品の出品・編集・審査
type ArtworkHandler struct {
	uc *usecase.ArtworkUsecase
}

func NewArtworkHandler(uc *usecase.ArtworkUsecase) *ArtworkHandler {
	return &ArtworkHandler{uc: uc}
}

func (h *ArtworkHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	e.GET("/artworks/:id", h.detail)

	seller := e.Group("/artworks")
	seller.Use(middleware.AuthJWT(cfg))
	seller.Use(middleware.TokenVersionGuard(userRepo))
	seller.Use(middleware.SellerRoleGuard())

	seller.POST("", h.create)
	seller.PUT("/:id", h.update)
	seller.DELETE("/:id", h.delete)

	admin := e.Group("/admin/artworks")
	admin.Use(middleware.AuthJWT(cfg))
	admin.Use(middleware.TokenVersionGuard(userRepo))
	admin.Use(middleware.AdminRoleGuard())

	admin.PUT("/:id/verify", h.verify)
	admin.PUT("/:id/reject", h.reject)
}

func (h *ArtworkHandler) detail(c echo.Context) error {
	id, err := validator.ParseID(c.Param("id"), "id")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ArtworkHandler) create(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req validator.ArtworkRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in, err := req.Input()
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Create(c.Request().Context(), sellerID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ArtworkHandler) update(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := validator.ParseID(c.Param("id"), "id")
	if err != nil {
		return writeError(c, err)
	}

	var req validator.ArtworkRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in, err := req.Input()
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Update(c.Request().Context(), sellerID, id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ArtworkHandler) delete(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := validator.ParseID(c.Param("id"), "id")
	if err != nil {
		return writeError(c, err)
	}

	if err := h.uc.Delete(c.Request().Context(), sellerID, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ArtworkHandler) verify(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := validator.ParseID(c.Param("id"), "id")
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Verify(c.Request().Context(), adminID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ArtworkHandler) reject(c echo.Context) error {
	adminID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	id, err := validator.ParseID(c.Param("id"), "id")
	if err != nil {
		return writeError(c, err)
	}

	var req validator.RejectArtworkRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	reason, err := req.Validate()
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Reject(c.Request().Context(), adminID, id, reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
