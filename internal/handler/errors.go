package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"artmarket/internal/middleware"
	"artmarket/internal/usecase"
)

// {"error": "CONFLICT", "message": "..."}
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Kind == usecase.KindInternal {
			c.Logger().Error(err)
		}
		return c.JSON(he.Status, ErrorResponse{Error: string(he.Kind), Message: he.Message})
	}

	//500
	c.Logger().Error(err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: string(usecase.KindInternal), Message: "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: string(usecase.KindValidation), Message: msg})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: string(usecase.KindUnauthorized), Message: "unauthorized"})
}

// AuthJWTが入れたuser_id
func getUserIDFromContext(c echo.Context) (int64, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return 0, false
	}
	return id, true
}

type MessageResponse struct {
	Message string `json:"message"`
}
