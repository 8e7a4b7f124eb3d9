package handler

import (
	"net/http"

	"pharmacy/internal/auth"
	"pharmacy/internal/middleware"
	"pharmacy/internal/service"
	"pharmacy/pkg/pagination"
	"pharmacy/pkg/response"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	userService service.UserService
	branches    *auth.BranchEvaluator
	pipeline    *middleware.Pipeline
}

func NewUserHandler(userService service.UserService, branches *auth.BranchEvaluator, pipeline *middleware.Pipeline) *UserHandler {
	return &UserHandler{userService: userService, branches: branches, pipeline: pipeline}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/api/v1/users")
	{
		users.GET("", h.pipeline.Authorize("users:read"), h.List)
		users.POST("", h.pipeline.Authorize("users:create"), h.Create)
		users.GET("/:id", h.pipeline.Authorize("users:read"), h.Get)
		users.PUT("/:id", h.pipeline.Authorize("users:update"), h.Update)
		users.DELETE("/:id", h.pipeline.Authorize("users:delete"), h.Delete)
		users.POST("/:id/branch-access/:grantBranchId", h.pipeline.Authorize("users:update"), h.GrantBranchAccess)
		users.DELETE("/:id/branch-access/:grantBranchId", h.pipeline.Authorize("users:update"), h.RevokeBranchAccess)
	}
}

// Create provisions a staff account in the tenant
// @Summary      Create user
// @Tags         users
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateUserRequest  true  "User"
// @Success      201      {object}  response.Response{data=model.User}
// @Failure      400      {object}  response.Response
// @Router       /api/v1/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	var req service.CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	user, err := h.userService.Create(c.Request.Context(), scope.TenantID, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, user))
}

func (h *UserHandler) List(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	params := pagination.Parse(c)
	users, total, err := h.userService.List(c.Request.Context(), scope.TenantID, params.Page, params.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, pagination.NewPage(users, total, params)))
}

func (h *UserHandler) Get(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	user, err := h.userService.GetByID(c.Request.Context(), scope.TenantID, id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

func (h *UserHandler) Update(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	user, err := h.userService.Update(c.Request.Context(), scope.TenantID, id, req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, user))
}

func (h *UserHandler) Delete(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), scope.TenantID, id, scope.Principal); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "user deleted"}))
}

// GrantBranchAccess lets the user operate on an additional branch
// @Summary      Grant branch access
// @Tags         users
// @Security     BearerAuth
// @Produce      json
// @Param        id             path  string  true  "User id"
// @Param        grantBranchId  path  string  true  "Branch id"
// @Success      200  {object}  response.Response
// @Router       /api/v1/users/{id}/branch-access/{grantBranchId} [post]
func (h *UserHandler) GrantBranchAccess(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	branchID, ok := parseID(c, "grantBranchId")
	if !ok {
		return
	}
	if err := h.userService.GrantBranchAccess(c.Request.Context(), scope.TenantID, userID, branchID, scope.Principal); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "branch access granted"}))
}

func (h *UserHandler) RevokeBranchAccess(c *gin.Context) {
	scope, ok := getScope(c, h.branches)
	if !ok {
		return
	}
	userID, ok := parseID(c, "id")
	if !ok {
		return
	}
	branchID, ok := parseID(c, "grantBranchId")
	if !ok {
		return
	}
	if err := h.userService.RevokeBranchAccess(c.Request.Context(), scope.TenantID, userID, branchID, scope.Principal); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "branch access revoked"}))
}
