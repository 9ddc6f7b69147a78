package router

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tenant-console-api/internal/transport/http/handler"
	mdw "tenant-console-api/internal/transport/http/middleware"
)

// NewAdminEngine builds the operator server. A static service token guards
// every route; this surface is never exposed to tenants.
func NewAdminEngine(l *zap.Logger, serviceToken string, admin *handler.AdminHandler) *gin.Engine {
	r := gin.New()

	r.Use(
		mdw.RequestID(),
		mdw.RateLimitPerIP(20, 40),
		mdw.MaxBodyBytes(1<<20),
		mdw.Timeout(30*time.Second),
		ginzap.RecoveryWithZap(l, true),
		mdw.Metrics(),
		mdw.AccessLog(l),
	)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": 1}) })

	g := r.Group("/admin/v1")
	g.Use(mdw.ServiceToken(serviceToken))
	admin.Mount(g)

	return r
}
