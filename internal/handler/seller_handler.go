package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"artmarket/internal/config"
	"artmarket/internal/domain/model"
	"artmarket/internal/middleware"
	"artmarket/internal/repository"
	"artmarket/internal/usecase"
	"artmarket/internal/validator"
)

type SellerHandler struct {
	uc *usecase.SellerUsecase
}

func NewSellerHandler(uc *usecase.SellerUsecase) *SellerHandler {
	return &SellerHandler{uc: uc}
}

func (h *SellerHandler) RegisterRoutes(e *echo.Echo, cfg config.Config, userRepo repository.UserRepository) {
	g := e.Group("/sellers")
	g.Use(middleware.AuthJWT(cfg))
	g.Use(middleware.TokenVersionGuard(userRepo))
	g.Use(middleware.RoleGuard(model.RoleSeller))

	g.POST("/payout-account", h.createPayoutAccount)
}

// 既にあれば200、新規作成なら201
func (h *SellerHandler) createPayoutAccount(c echo.Context) error {
	sellerID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req validator.PayoutAccountRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in, err := req.Input()
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.CreatePayoutAccount(c.Request().Context(), sellerID, in)
	if err != nil {
		return writeError(c, err)
	}
	if out.Created {
		return c.JSON(http.StatusCreated, out)
	}
	return c.JSON(http.StatusOK, out)
}
