package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/account-service/internal/api/metrics"
	"github.com/99minutos/account-service/internal/api/middleware"
	"github.com/99minutos/account-service/internal/core/domain"
	"github.com/99minutos/account-service/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
	now         func() time.Time
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService, now: time.Now}
}

type registerRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
	FirstName       string `json:"first_name" validate:"max=100"`
	LastName        string `json:"last_name" validate:"max=100"`
}

type loginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Register creates a new account and signs it in.
//
// @Summary      Register a new account
// @Description  The first account ever registered becomes Admin; all others are User.
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration form"
// @Success      201   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /account/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}

	metrics.RegistrationsTotal.WithLabelValues(string(res.User.Role)).Inc()
	metrics.TokensIssuedTotal.WithLabelValues("register").Inc()

	c.SetCookie(newTokenCookie(res.Token, res.TTL, h.now()))
	return c.JSON(http.StatusCreated, authResponse{Token: res.Token, User: res.User})
}

// Login authenticates an account and returns a bearer token.
//
// @Summary      Login
// @Description  remember_me extends the token lifetime from 4 to 30 days.
// @Tags         account
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /account/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), ports.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		RememberMe: req.RememberMe,
	})
	if err != nil {
		metrics.LoginsTotal.WithLabelValues(loginResult(err)).Inc()
		return err
	}

	reason := "login"
	if req.RememberMe {
		reason = "login_remember"
	}
	metrics.LoginsTotal.WithLabelValues("success").Inc()
	metrics.TokensIssuedTotal.WithLabelValues(reason).Inc()

	c.SetCookie(newTokenCookie(res.Token, res.TTL, h.now()))
	return c.JSON(http.StatusOK, authResponse{Token: res.Token, User: res.User})
}

// Logout clears the token cookie. Issued tokens stay valid until they expire.
//
// @Summary   Logout
// @Tags      account
// @Security  BearerAuth
// @Success   204
// @Failure   401  {object}  map[string]string
// @Router    /account/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(expiredTokenCookie())
	return c.NoContent(http.StatusNoContent)
}

// RefreshToken issues a new default-lifetime token for the caller.
//
// @Summary   Refresh token
// @Tags      account
// @Produce   json
// @Security  BearerAuth
// @Success   200  {object}  tokenResponse
// @Failure   401  {object}  map[string]string
// @Router    /account/refresh-token [get]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	res, err := h.authService.Refresh(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	return c.JSON(http.StatusOK, tokenResponse{Token: res.Token})
}

// Me returns the authenticated account.
//
// @Summary   Current account
// @Tags      account
// @Produce   json
// @Security  BearerAuth
// @Success   200  {object}  domain.User
// @Failure   401  {object}  map[string]string
// @Router    /account/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	user, err := h.authService.CurrentUser(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// newTokenCookie expires together with the token it carries.
func newTokenCookie(token string, ttl time.Duration, now time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(ttl).UTC(),
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func expiredTokenCookie() *http.Cookie {
	return &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return "throttled"
	default:
		return "error"
	}
}
