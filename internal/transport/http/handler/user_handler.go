package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tenant-console-api/internal/domain"
	"tenant-console-api/internal/service"
	mdw "tenant-console-api/internal/transport/http/middleware"
	resp "tenant-console-api/internal/transport/http/response"
)

type UserHandler struct {
	lifecycle *service.Lifecycle
	rls       *service.RLSBuilder
	embed     service.EmbedURLProvider
	log       *zap.Logger
}

func NewUserHandler(lifecycle *service.Lifecycle, rls *service.RLSBuilder, embed service.EmbedURLProvider, log *zap.Logger) *UserHandler {
	return &UserHandler{lifecycle: lifecycle, rls: rls, embed: embed, log: log}
}

func (h *UserHandler) Mount(g *gin.RouterGroup) {
	g.GET("/users", h.List)
	g.POST("/users", h.Create)
	g.GET("/users/:userId", h.Get)
	g.PUT("/users/:userId/role", h.UpdateRole)
	g.DELETE("/users/:userId", h.Delete)
	g.GET("/dashboards/embed-url", h.EmbedURL)
}

// GET /users
func (h *UserHandler) List(c *gin.Context) {
	rc, _ := mdw.GetRequestContext(c)
	users, err := h.lifecycle.List(c.Request.Context(), rc)
	if err != nil {
		resp.WriteError(c, err)
		return
	}
	resp.OK(c, http.StatusOK, gin.H{"users": users, "count": len(users)})
}

type createUserReq struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	Role          string `json:"role"`
	Region        string `json:"region"`
	StoreID       string `json:"storeId"`
	IsTenantAdmin bool   `json:"isTenantAdmin"`
}

// POST /users
func (h *UserHandler) Create(c *gin.Context) {
	rc, _ := mdw.GetRequestContext(c)
	var req createUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.WriteError(c, domain.ValidationErr("", "malformed request body"))
		return
	}
	u, err := h.lifecycle.Create(c.Request.Context(), rc, &service.CreateUserCommand{
		Email:         req.Email,
		Password:      req.Password,
		Role:          req.Role,
		Region:        req.Region,
		StoreID:       req.StoreID,
		IsTenantAdmin: req.IsTenantAdmin,
	})
	if err != nil {
		resp.WriteError(c, err)
		return
	}
	resp.OK(c, http.StatusCreated, gin.H{
		"userId":    u.UserID,
		"email":     u.Email,
		"role":      u.Role,
		"status":    u.Status,
		"createdAt": u.CreatedAt.UTC().Format(time.RFC3339),
	})
}

// GET /users/:userId
func (h *UserHandler) Get(c *gin.Context) {
	rc, _ := mdw.GetRequestContext(c)
	u, err := h.lifecycle.Get(c.Request.Context(), rc, c.Param("userId"))
	if err != nil {
		resp.WriteError(c, err)
		return
	}
	resp.OK(c, http.StatusOK, u)
}

type updateRoleReq struct {
	Role string `json:"role"`
}

// PUT /users/:userId/role
func (h *UserHandler) UpdateRole(c *gin.Context) {
	rc, _ := mdw.GetRequestContext(c)
	var req updateRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.WriteError(c, domain.ValidationErr("", "malformed request body"))
		return
	}
	userID := c.Param("userId")
	if err := h.lifecycle.UpdateRole(c.Request.Context(), rc, userID, req.Role); err != nil {
		resp.WriteError(c, err)
		return
	}
	resp.OK(c, http.StatusOK, gin.H{"success": true, "userId": userID, "role": req.Role})
}

// DELETE /users/:userId
func (h *UserHandler) Delete(c *gin.Context) {
	rc, _ := mdw.GetRequestContext(c)
	userID := c.Param("userId")
	if err := h.lifecycle.Delete(c.Request.Context(), rc, userID); err != nil {
		resp.WriteError(c, err)
		return
	}
	resp.OK(c, http.StatusOK, gin.H{"success": true, "userId": userID})
}

// GET /dashboards/embed-url
//
// Builds the caller's RLS session context and trades it for a time-boxed
// viewing URL. The context is always tenant-scoped by construction.
func (h *UserHandler) EmbedURL(c *gin.Context) {
	rc, _ := mdw.GetRequestContext(c)
	ctx := c.Request.Context()

	caller, err := h.lifecycle.CallerProfile(ctx, rc)
	if err != nil {
		resp.WriteError(c, err)
		return
	}
	tags, err := h.rls.SessionContext(ctx, rc.TenantID, caller.UserID)
	if err != nil {
		resp.WriteError(c, err)
		return
	}
	url, expiresAt, err := h.embed.EmbedURL(ctx, rc.TenantID, caller.Role, tags)
	if err != nil {
		h.log.Error("embed session failed", zap.String("tenant_id", rc.TenantID), zap.Error(err))
		resp.WriteError(c, domain.Transient("embedding service unavailable", err))
		return
	}
	resp.OK(c, http.StatusOK, gin.H{"url": url, "expiresAt": expiresAt.UTC().Format(time.RFC3339)})
}
