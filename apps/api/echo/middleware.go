package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/gradebook/core/user"
)

// adminMiddleware only lets active admins through.
func adminMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if !claims.IsAdmin {
				return errHttpForbidden
			}
			// role changes take effect before the token expires
			usr, err := getContextUser(ctx, svc, claims)
			if err != nil {
				return err
			}
			if !usr.IsAdmin() {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// activeUserMiddleware rejects tokens of deleted or deactivated users.
func activeUserMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if _, err := getContextUser(ctx, svc); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// ctxUserOrAdminMiddleware sets the user of the `:id` path param as the "object" of the request
// when it is the context user, or when the context user is an admin.
func ctxUserOrAdminMiddleware(svc user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ctxUsr, err := getContextUser(ctx, svc)
			if err != nil {
				return err
			}

			id := ctx.Param("id")
			if id == ctxUsr.ID {
				ctx.Set(contextObjectKey, ctxUsr)
				return next(ctx)
			}
			if ctxUsr.IsAdmin() {
				usr, err := svc.GetByID(ctx.Request().Context(), id)
				if err != nil {
					return err
				}
				ctx.Set(contextObjectKey, usr)
				return next(ctx)
			}
			return errHttpNotFound
		}
	}
}
