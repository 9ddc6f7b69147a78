package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tenant-console-api/internal/domain"
	"tenant-console-api/internal/identity"
	"tenant-console-api/internal/service"
	"tenant-console-api/internal/transport/http/handler"
	"tenant-console-api/internal/transport/http/router"
)

type memTenants struct {
	rows map[string]*domain.Tenant
}

func newMemTenants() *memTenants { return &memTenants{rows: map[string]*domain.Tenant{}} }

func (m *memTenants) Create(_ context.Context, t *domain.Tenant) error {
	m.rows[t.TenantID] = t
	return nil
}

func (m *memTenants) FindByID(_ context.Context, tenantID string) (*domain.Tenant, error) {
	return m.rows[tenantID], nil
}

func (m *memTenants) List(_ context.Context) ([]domain.Tenant, error) {
	var out []domain.Tenant
	for _, t := range m.rows {
		out = append(out, *t)
	}
	return out, nil
}

func (m *memTenants) Deactivate(_ context.Context, tenantID string) error {
	t := m.rows[tenantID]
	if t == nil {
		return domain.NotFound("tenant " + tenantID)
	}
	t.IsActive = false
	return nil
}

func newAdminEngine(t *testing.T) (*gin.Engine, *memTenants, *memUsers) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	tenants := newMemTenants()
	users := newMemUsers()
	lifecycle := service.NewLifecycle(identity.NewLocal(), users, service.NewGuard(users, log), log)
	h := handler.NewAdminHandler(tenants, lifecycle, log)
	return router.NewAdminEngine(log, "operator-token", h), tenants, users
}

func adminDo(t *testing.T, e *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAdminServiceToken(t *testing.T) {
	e, _, _ := newAdminEngine(t)

	rec := adminDo(t, e, http.MethodGet, "/admin/v1/tenants", "", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = adminDo(t, e, http.MethodGet, "/admin/v1/tenants", "wrong", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = adminDo(t, e, http.MethodGet, "/admin/v1/tenants", "operator-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminCreateTenant(t *testing.T) {
	t.Run("bare tenant", func(t *testing.T) {
		e, tenants, _ := newAdminEngine(t)
		rec := adminDo(t, e, http.MethodPost, "/admin/v1/tenants", "operator-token",
			`{"tenantId":"T010","name":"Initech"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		created, _ := tenants.FindByID(context.Background(), "T010")
		require.NotNil(t, created)
		require.True(t, created.IsActive)
	})

	t.Run("with bootstrap admin", func(t *testing.T) {
		e, _, users := newAdminEngine(t)
		rec := adminDo(t, e, http.MethodPost, "/admin/v1/tenants", "operator-token",
			`{"tenantId":"T010","name":"Initech","adminEmail":"root@initech.test","adminPassword":"Sup3rSecret"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		body := decode(t, rec)
		admin, ok := body["admin"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "root@initech.test", admin["email"])

		row, err := users.FindByID(context.Background(), "T010", admin["userId"].(string))
		require.NoError(t, err)
		require.True(t, row.IsTenantAdmin)
	})

	t.Run("tenant row survives a failed bootstrap", func(t *testing.T) {
		e, tenants, _ := newAdminEngine(t)
		rec := adminDo(t, e, http.MethodPost, "/admin/v1/tenants", "operator-token",
			`{"tenantId":"T010","name":"Initech","adminEmail":"root@initech.test","adminPassword":"weak"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		created, _ := tenants.FindByID(context.Background(), "T010")
		require.NotNil(t, created)
	})

	t.Run("missing fields", func(t *testing.T) {
		e, _, _ := newAdminEngine(t)
		rec := adminDo(t, e, http.MethodPost, "/admin/v1/tenants", "operator-token", `{"name":"Initech"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, "tenantId", decode(t, rec)["field"])
	})

	t.Run("duplicate tenant id", func(t *testing.T) {
		e, _, _ := newAdminEngine(t)
		body := `{"tenantId":"T010","name":"Initech"}`
		require.Equal(t, http.StatusCreated, adminDo(t, e, http.MethodPost, "/admin/v1/tenants", "operator-token", body).Code)
		require.Equal(t, http.StatusBadRequest, adminDo(t, e, http.MethodPost, "/admin/v1/tenants", "operator-token", body).Code)
	})
}

func TestAdminDeactivateTenant(t *testing.T) {
	e, tenants, _ := newAdminEngine(t)
	require.NoError(t, tenants.Create(context.Background(), &domain.Tenant{TenantID: "T010", Name: "Initech", IsActive: true}))

	rec := adminDo(t, e, http.MethodPost, "/admin/v1/tenants/T010/deactivate", "operator-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	row, _ := tenants.FindByID(context.Background(), "T010")
	require.False(t, row.IsActive)

	rec = adminDo(t, e, http.MethodPost, "/admin/v1/tenants/T999/deactivate", "operator-token", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}
