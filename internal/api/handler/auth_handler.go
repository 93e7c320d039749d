package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/trustgate/internal/core/domain"
	"github.com/99minutos/trustgate/internal/core/ports"
)

type AuthHandler struct {
	authService ports.AuthService
}

func NewAuthHandler(authService ports.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register creates a new user account with the USER role.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Username and password"
// @Success      200   {object}  registerResponse    "Created, or success=false when the username is taken"
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/v1/auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	req, err := bindCredentials(c)
	if err != nil {
		return err
	}

	res, err := h.authService.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, registerResponse{
		Success:  res.Success,
		UserID:   res.UserID,
		Username: res.Username,
		Message:  res.Message,
	})
}

// Login authenticates a user and issues a bearer token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      credentialsRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse  "INVALID_CREDENTIALS"
// @Failure      404   {object}  errorResponse  "USER_NOT_FOUND"
// @Router       /api/v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	req, err := bindCredentials(c)
	if err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{
		Success:   true,
		Token:     res.Token,
		TokenType: res.TokenType,
		UserID:    res.User.ID,
		Username:  res.User.Username,
		Role:      res.User.Role,
		ExpiresAt: res.ExpiresAt,
		Message:   "Login successful",
	})
}

// Verify reports whether the bearer token in the Authorization header is
// valid. Invalid and expired tokens are answered with 200 and valid=false.
//
// @Summary      Verify a bearer token
// @Tags         auth
// @Produce      json
// @Param        Authorization  header    string  true  "Bearer <token>"
// @Success      200            {object}  verifyResponse
// @Failure      400            {object}  verifyResponse  "Missing or malformed header"
// @Failure      500            {object}  errorResponse
// @Router       /api/v1/auth/verify [post]
func (h *AuthHandler) Verify(c echo.Context) error {
	v, err := h.authService.VerifyHeader(c.Request().Context(), c.Request().Header.Get(domain.HeaderAuthorization))
	if errors.Is(err, domain.ErrMalformedToken) {
		return c.JSON(http.StatusBadRequest, v)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, v)
}

func bindCredentials(c echo.Context) (credentialsRequest, error) {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return req, nil
}
