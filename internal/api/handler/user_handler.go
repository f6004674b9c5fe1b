package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

// UserHandler serves the admin user-management endpoints.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

type editUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

type listUsersResponse struct {
	Data  []*domain.User `json:"data"`
	Total int            `json:"total"`
}

// List returns every account, oldest first.
//
// @Summary   List accounts
// @Tags      users
// @Produce   json
// @Security  BearerAuth
// @Success   200  {object}  listUsersResponse
// @Failure   401  {object}  map[string]string
// @Failure   403  {object}  map[string]string
// @Router    /users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	if users == nil {
		users = []*domain.User{}
	}
	return c.JSON(http.StatusOK, listUsersResponse{Data: users, Total: len(users)})
}

// Get returns one account.
//
// @Summary   Get account
// @Tags      users
// @Produce   json
// @Security  BearerAuth
// @Param     id   path      string  true  "Account ID"
// @Success   200  {object}  domain.User
// @Failure   404  {object}  map[string]string
// @Router    /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Update edits the profile fields of an account.
//
// @Summary   Edit account
// @Tags      users
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     id    path      string           true  "Account ID"
// @Param     body  body      editUserRequest  true  "Profile fields"
// @Success   200   {object}  domain.User
// @Failure   400   {object}  map[string]string
// @Failure   404   {object}  map[string]string
// @Failure   409   {object}  map[string]string
// @Router    /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	actorID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req editUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.Update(c.Request().Context(), actorID, ports.UpdateUserInput{
		ID:        c.Param("id"),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Delete removes an account. Admins cannot delete themselves.
//
// @Summary   Delete account
// @Tags      users
// @Security  BearerAuth
// @Param     id   path  string  true  "Account ID"
// @Success   204
// @Failure   403  {object}  map[string]string
// @Failure   404  {object}  map[string]string
// @Router    /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	actorID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), actorID, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
