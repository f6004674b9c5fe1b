package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/core/domain"
)

// ctxUserID returns the authenticated account id. An empty value means the
// middleware did not run, which is reported as unauthenticated.
func ctxUserID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.CtxUserID).(string)
	if id == "" {
		return "", domain.ErrUnauthenticated
	}
	return id, nil
}
