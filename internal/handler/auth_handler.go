package handler

import (
	"errors"
	"net/http"

	"pharmacy/internal/auth"
	"pharmacy/internal/middleware"
	"pharmacy/internal/service"
	"pharmacy/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService   service.AuthService
	tenantService service.TenantService
	userService   service.UserService
	pipeline      *middleware.Pipeline
}

func NewAuthHandler(authService service.AuthService, tenantService service.TenantService, userService service.UserService, pipeline *middleware.Pipeline) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		tenantService: tenantService,
		userService:   userService,
		pipeline:      pipeline,
	}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup) {
	authGroup := router.Group("/api/v1/auth")
	{
		// Login, refresh and register are on the unauthenticated allow-list;
		// the refresh credential is the refresh token itself.
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/register", h.Register)
		authGroup.POST("/logout", h.pipeline.Authorize(""), h.Logout)
		authGroup.POST("/logout-all", h.pipeline.Authorize(""), h.LogoutAll)
		authGroup.POST("/change-password", h.pipeline.Authorize(""), h.ChangePassword)
		authGroup.GET("/me", h.pipeline.Authorize(""), h.Me)
	}
}

// Login authenticates a user with email and password
// @Summary      Login
// @Description  Verifies credentials and issues an access/refresh token pair
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.LoginRequest  true  "Credentials"
// @Success      200      {object}  response.Response{data=service.TokenPairResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredential) {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "invalid email or password"))
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pair))
}

// Register signs up a new pharmacy organization
// @Summary      Register tenant
// @Description  Creates a tenant with its first admin account and logs the admin in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterRequest  true  "Organization and admin account"
// @Success      201      {object}  response.Response{data=service.TokenPairResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	tenant, err := h.tenantService.Create(c.Request.Context(), service.CreateTenantRequest{
		Name:      req.TenantName,
		Subdomain: req.Subdomain,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	if _, err := h.userService.Create(c.Request.Context(), tenant.ID, service.CreateUserRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     string(auth.RoleAdmin),
	}); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), service.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, pair))
}

// Refresh rotates a refresh token into a new token pair
// @Summary      Refresh tokens
// @Description  Exchanges a valid refresh token for a new pair; the presented refresh token is invalidated
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RefreshRequest  true  "Refresh token"
// @Success      200      {object}  response.Response{data=service.TokenPairResponse}
// @Failure      401      {object}  response.Response
// @Router       /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req service.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	pair, err := h.authService.Refresh(c.Request.Context(), req)
	if err != nil {
		status, code, msg := refreshFailure(err)
		c.JSON(status, response.ErrorCode(status, code, msg, middleware.CorrelationID(c)))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pair))
}

func refreshFailure(err error) (int, string, string) {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized, response.CodeTokenExpired, "refresh token expired, log in again"
	case errors.Is(err, auth.ErrTokenRevoked):
		return http.StatusUnauthorized, response.CodeTokenRevoked, "refresh token no longer valid"
	case errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized, response.CodeWrongTokenType, "not a refresh token"
	case errors.Is(err, auth.ErrInvalidSignature), errors.Is(err, auth.ErrTokenMalformed):
		return http.StatusUnauthorized, response.CodeTokenMalformed, "invalid refresh token"
	default:
		return http.StatusInternalServerError, response.CodeInternal, "internal error"
	}
}

// Logout revokes the current session
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "not authenticated"))
		return
	}

	// The refresh token is optional; without it only the access token is
	// revoked and the refresh token dies at its next (rotating) use.
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.ShouldBindJSON(&body)

	if err := h.authService.Logout(c.Request.Context(), principal, body.RefreshToken); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "logged out"}))
}

// LogoutAll revokes every session of the current user
// @Summary      Logout everywhere
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/v1/auth/logout-all [post]
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "not authenticated"))
		return
	}
	if err := h.authService.LogoutAll(c.Request.Context(), principal.SubjectID); err != nil {
		fail(c, err)
		return
	}
	// The current access token stays valid until expiry unless also revoked.
	if err := h.authService.Logout(c.Request.Context(), principal, ""); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "all sessions revoked"}))
}

// ChangePassword updates the password and revokes all sessions
// @Summary      Change password
// @Tags         auth
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ChangePasswordRequest  true  "Passwords"
// @Success      200      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /api/v1/auth/change-password [post]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "not authenticated"))
		return
	}
	var req service.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	if err := h.authService.ChangePassword(c.Request.Context(), principal, req); err != nil {
		if errors.Is(err, auth.ErrInvalidCredential) {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "current password is wrong"))
			return
		}
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "password changed, log in again"}))
}

// Me returns the authenticated user's profile and permissions
// @Summary      Current user
// @Tags         auth
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.MeResponse}
// @Router       /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "not authenticated"))
		return
	}
	me, err := h.authService.Me(c.Request.Context(), principal)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, me))
}
