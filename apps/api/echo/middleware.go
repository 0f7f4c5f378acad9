package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/stream"
)

// sessionMiddleware keeps the subscription set aligned with the caller's
// scope. Reconcile no-ops once converged, so only the first request of a
// session (or the first after a child-link change) pays for it.
func sessionMiddleware(mgr *stream.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			scope, err := contextScope(ctx)
			if err != nil {
				return errors.Wrap(err, "deriving session scope")
			}
			mgr.Reconcile(scope)
			return next(ctx)
		}
	}
}
