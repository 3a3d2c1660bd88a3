package middleware

import (
	"github.com/labstack/echo/v4"

	"artmarket/internal/repository"
)

// JWTのtvとDBのtoken_versionが一致するか確認。無効化されたユーザーも弾く。
func TokenVersionGuard(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := c.Get(CtxUserIDKey).(int64)
			if !ok || userID <= 0 {
				return unauthorized(c)
			}
			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return unauthorized(c)
			}

			user, err := users.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil {
				return unauthorized(c)
			}

			//強制ログアウト扱い（401）
			if !user.IsActive || user.TokenVersion != tv {
				return unauthorized(c)
			}

			return next(c)
		}
	}
}
