package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tenant-console-api/internal/domain"
	"tenant-console-api/internal/service"
	resp "tenant-console-api/internal/transport/http/response"
)

// AdminHandler is the operator surface: tenants are created out-of-band here,
// never through the tenant-facing API.
type AdminHandler struct {
	tenants   domain.TenantRepository
	lifecycle *service.Lifecycle
	log       *zap.Logger
}

func NewAdminHandler(tenants domain.TenantRepository, lifecycle *service.Lifecycle, log *zap.Logger) *AdminHandler {
	return &AdminHandler{tenants: tenants, lifecycle: lifecycle, log: log}
}

func (h *AdminHandler) Mount(g *gin.RouterGroup) {
	g.POST("/tenants", h.CreateTenant)
	g.GET("/tenants", h.ListTenants)
	g.POST("/tenants/:tenantId/deactivate", h.DeactivateTenant)
}

type createTenantReq struct {
	TenantID string `json:"tenantId"`
	Name     string `json:"name"`
	// optional bootstrap admin for the fresh tenant
	AdminEmail    string `json:"adminEmail"`
	AdminPassword string `json:"adminPassword"`
}

// POST /tenants
func (h *AdminHandler) CreateTenant(c *gin.Context) {
	var req createTenantReq
	if err := c.ShouldBindJSON(&req); err != nil {
		resp.WriteError(c, domain.ValidationErr("", "malformed request body"))
		return
	}
	req.TenantID = strings.TrimSpace(req.TenantID)
	if req.TenantID == "" {
		resp.WriteError(c, domain.ValidationErr("tenantId", "tenantId is required"))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		resp.WriteError(c, domain.ValidationErr("name", "name is required"))
		return
	}

	ctx := c.Request.Context()
	if existing, err := h.tenants.FindByID(ctx, req.TenantID); err != nil {
		resp.WriteError(c, err)
		return
	} else if existing != nil {
		resp.WriteError(c, domain.ValidationErr("tenantId", "tenant already exists"))
		return
	}

	t := &domain.Tenant{TenantID: req.TenantID, Name: req.Name, IsActive: true}
	if err := h.tenants.Create(ctx, t); err != nil {
		resp.WriteError(c, err)
		return
	}
	h.log.Info("tenant created", zap.String("tenant_id", t.TenantID))

	out := gin.H{"tenantId": t.TenantID, "name": t.Name, "isActive": t.IsActive}
	if req.AdminEmail != "" {
		admin, err := h.lifecycle.Bootstrap(ctx, t.TenantID, &service.CreateUserCommand{
			Email:    req.AdminEmail,
			Password: req.AdminPassword,
			Role:     domain.RoleAdmin,
		})
		if err != nil {
			// the tenant row stays; the bootstrap can be retried
			resp.WriteError(c, err)
			return
		}
		out["admin"] = gin.H{"userId": admin.UserID, "email": admin.Email}
	}
	resp.OK(c, http.StatusCreated, out)
}

// GET /tenants
func (h *AdminHandler) ListTenants(c *gin.Context) {
	tenants, err := h.tenants.List(c.Request.Context())
	if err != nil {
		resp.WriteError(c, err)
		return
	}
	resp.OK(c, http.StatusOK, gin.H{"tenants": tenants, "count": len(tenants)})
}

// POST /tenants/:tenantId/deactivate
func (h *AdminHandler) DeactivateTenant(c *gin.Context) {
	tenantID := c.Param("tenantId")
	if err := h.tenants.Deactivate(c.Request.Context(), tenantID); err != nil {
		resp.WriteError(c, err)
		return
	}
	resp.OK(c, http.StatusOK, gin.H{"success": true, "tenantId": tenantID})
}
