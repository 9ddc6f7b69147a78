package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"tenant-console-api/internal/domain"
)

func writeOn(t *testing.T, method string, err error) (int, ErrorBody) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, "/api/v1/users", nil)

	WriteError(c, err)

	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		method string
		err    error
		status int
		code   string
	}{
		{"validation", http.MethodPost, domain.ValidationErr("email", "bad"), 400, "validation"},
		{"duplicate email", http.MethodPost, domain.DuplicateEmail("x"), 400, "duplicate_email"},
		{"missing tenant claim", http.MethodGet, domain.MissingTenantClaim(), 401, "missing_tenant_claim"},
		{"missing subject claim", http.MethodGet, domain.MissingSubjectClaim(), 401, "missing_subject_claim"},
		{"caller not found", http.MethodPost, domain.CallerNotFound("T001"), 403, "caller_not_found"},
		{"insufficient privilege", http.MethodPost, domain.InsufficientPrivilege(), 403, "insufficient_privilege"},
		{"self deletion", http.MethodDelete, domain.SelfDeletionForbidden(), 403, "self_deletion_forbidden"},
		{"cross tenant read hides existence", http.MethodGet, domain.CrossTenantAccess("U002"), 404, "cross_tenant_access"},
		{"cross tenant mutation reports denial", http.MethodDelete, domain.CrossTenantAccess("U002"), 403, "cross_tenant_access"},
		{"not found", http.MethodGet, domain.NotFound("user U002"), 404, "not_found"},
		{"allocation conflict", http.MethodPost, domain.AllocationConflict("T001"), 409, "allocation_conflict"},
		{"throttled", http.MethodPost, domain.Throttled(nil), 429, "throttled"},
		{"orphaned identity", http.MethodPost, domain.OrphanedIdentity("idp-42", nil), 500, "orphaned_identity_record"},
		{"transient", http.MethodGet, domain.Transient("db down", nil), 503, "transient"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := writeOn(t, tc.method, tc.err)
			require.Equal(t, tc.status, status)
			require.Equal(t, tc.code, body.Error)
		})
	}
}

func TestWriteErrorUntagged(t *testing.T) {
	status, body := writeOn(t, http.MethodGet, errors.New("boom"))
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Equal(t, "transient", body.Error)
	require.True(t, body.Retryable)
	require.NotContains(t, body.Error, "boom")
}

func TestWriteErrorCarriesFieldAndRetryable(t *testing.T) {
	_, body := writeOn(t, http.MethodPost, domain.ValidationErr("password", "too short"))
	require.Equal(t, "password", body.Field)
	require.False(t, body.Retryable)

	_, body = writeOn(t, http.MethodPost, domain.Throttled(errors.New("429")))
	require.True(t, body.Retryable)
}
