package handlers

import (
	"net/http"
	"strings"

	"money-tracker/internal/dto"
	"money-tracker/internal/errors"
	"money-tracker/internal/services"

	"github.com/labstack/echo/v4"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService services.AuthServiceInterface
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authService services.AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// SignUp handles email/password registration
// @Summary Register a new user
// @Description Create an account with email and password and sign in immediately
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.SignUpRequest true "Registration details"
// @Success 201 {object} SuccessResponse{data=dto.SignUpResponse} "User created successfully"
// @Failure 400 {object} errors.ErrorResponse "Validation error - VALIDATION_001"
// @Failure 409 {object} errors.ErrorResponse "Email already registered - AUTH_007"
// @Failure 500 {object} errors.ErrorResponse "System error - SYSTEM_001"
// @Router /auth/signup [post]
func (h *AuthHandler) SignUp(c echo.Context) error {
	var req dto.SignUpRequest

	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if fields := validateRequest(c, req); fields != nil {
		return SendValidationError(c, fields)
	}

	user, tokens, err := h.authService.SignUp(c.Request().Context(), &req, requestMeta(c))
	if err != nil {
		return SendDomainError(c, err)
	}

	return c.JSON(http.StatusCreated, SuccessResponse{
		Data: dto.SignUpResponse{
			User:   dto.ToUserProfileResponse(user),
			Tokens: *tokens,
		},
		Message: "User registered successfully",
	})
}

// SignIn handles email/password authentication
// @Summary Sign in
// @Description Authenticate with email and password, receive JWT access and refresh tokens
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.SignInRequest true "Login credentials"
// @Success 200 {object} dto.TokenResponse "Login successful with JWT tokens"
// @Failure 400 {object} errors.ErrorResponse "Validation error - VALIDATION_001"
// @Failure 401 {object} errors.ErrorResponse "Invalid credentials - AUTH_001"
// @Failure 403 {object} errors.ErrorResponse "Account locked - AUTH_006"
// @Failure 500 {object} errors.ErrorResponse "System error - SYSTEM_001"
// @Router /auth/signin [post]
func (h *AuthHandler) SignIn(c echo.Context) error {
	var req dto.SignInRequest

	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if fields := validateRequest(c, req); fields != nil {
		return SendValidationError(c, fields)
	}

	tokens, err := h.authService.SignIn(c.Request().Context(), &req, requestMeta(c))
	if err != nil {
		return SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, tokens)
}

// Google handles federated sign-in with a Google ID token
// @Summary Sign in with Google
// @Description Exchange a Google ID token for JWT access and refresh tokens. Unknown users are created.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.GoogleSignInRequest true "Google credential"
// @Success 200 {object} dto.TokenResponse "Login successful with JWT tokens"
// @Failure 400 {object} errors.ErrorResponse "Validation error - VALIDATION_001"
// @Failure 401 {object} errors.ErrorResponse "Credential rejected - AUTH_005"
// @Failure 403 {object} errors.ErrorResponse "Account locked - AUTH_006"
// @Failure 503 {object} errors.ErrorResponse "Google sign-in not configured - SYSTEM_003"
// @Router /auth/google [post]
func (h *AuthHandler) Google(c echo.Context) error {
	var req dto.GoogleSignInRequest

	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if fields := validateRequest(c, req); fields != nil {
		return SendValidationError(c, fields)
	}

	tokens, err := h.authService.SignInWithGoogle(c.Request().Context(), req.Credential, requestMeta(c))
	if err != nil {
		return SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, tokens)
}

// RefreshToken handles token refresh
// @Summary Refresh access token
// @Description Get a new access token and refresh token pair using a valid refresh token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.TokenResponse "Token refreshed successfully"
// @Failure 400 {object} errors.ErrorResponse "Validation error - VALIDATION_001"
// @Failure 401 {object} errors.ErrorResponse "Invalid refresh token - AUTH_004"
// @Failure 500 {object} errors.ErrorResponse "System error - SYSTEM_001"
// @Router /auth/refresh [post]
func (h *AuthHandler) RefreshToken(c echo.Context) error {
	var req dto.RefreshTokenRequest

	if err := c.Bind(&req); err != nil {
		return SendError(c, errors.ValidationGeneral, errors.WithDetails("Invalid request body"))
	}

	if fields := validateRequest(c, req); fields != nil {
		return SendValidationError(c, fields)
	}

	tokens, err := h.authService.RefreshTokens(c.Request().Context(), req.RefreshToken, requestMeta(c))
	if err != nil {
		return SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, tokens)
}

// SignOut handles user logout
// @Summary Sign out
// @Description Invalidate the access token and every refresh token of the user. Requires Bearer token in Authorization header.
// @Tags Authentication
// @Security BearerAuth
// @Produce json
// @Success 200 {object} SuccessResponse{message=string} "Logout successful"
// @Failure 401 {object} errors.ErrorResponse "Unauthorized - AUTH_002 or AUTH_004"
// @Router /auth/signout [post]
func (h *AuthHandler) SignOut(c echo.Context) error {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return SendError(c, errors.AuthMissingToken)
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
		return SendError(c, errors.AuthInvalidTokenFormat)
	}

	// sign-out always reports success so callers learn nothing about token state
	_ = h.authService.SignOut(c.Request().Context(), tokenParts[1], requestMeta(c))

	return c.JSON(http.StatusOK, SuccessResponse{
		Message: "Logout successful",
	})
}

// Me returns the authenticated user's profile
// @Summary Current user
// @Description Profile of the signed-in user
// @Tags Authentication
// @Security BearerAuth
// @Produce json
// @Success 200 {object} SuccessResponse{data=dto.UserProfileResponse} "Current user"
// @Failure 401 {object} errors.ErrorResponse "Unauthorized - AUTH_002"
// @Router /me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return SendError(c, errors.AuthMissingToken)
	}

	user, err := h.authService.CurrentUser(c.Request().Context(), userID)
	if err != nil {
		return SendDomainError(c, err)
	}

	return c.JSON(http.StatusOK, SuccessResponse{Data: dto.ToUserProfileResponse(user)})
}
