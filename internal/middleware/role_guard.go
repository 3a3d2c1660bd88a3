package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"artmarket/internal/domain/model"
)

// contextのroleが許可リストに入っているか確認する。
func RoleGuard(allowed ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxUserRoleKey).(string)
			if !ok || role == "" {
				return unauthorized(c)
			}

			for _, r := range allowed {
				if model.Role(role) == r {
					return next(c)
				}
			}
			return forbidden(c, strings.ToLower(string(allowed[0]))+" only")
		}
	}
}

func AdminRoleGuard() echo.MiddlewareFunc {
	return RoleGuard(model.RoleAdmin)
}

// 出品は管理者も可
func SellerRoleGuard() echo.MiddlewareFunc {
	return RoleGuard(model.RoleSeller, model.RoleAdmin)
}
