package auth_test

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"tenant-console-api/internal/core/auth"
	"tenant-console-api/internal/domain"
)

func TestVerifierParse(t *testing.T) {
	secret := []byte("unit-test-secret")
	v := &auth.Verifier{Secret: secret, Issuer: "console-idp"}

	sign := func(t *testing.T, claims jwt.MapClaims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		require.NoError(t, err)
		return s
	}

	t.Run("valid token", func(t *testing.T) {
		token := sign(t, jwt.MapClaims{
			"iss":       "console-idp",
			"tenant_id": "T001",
			"sub":       "idp-abc",
		})
		claims, err := v.Parse(token)
		require.NoError(t, err)
		require.Equal(t, "T001", claims["tenant_id"])
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token := sign(t, jwt.MapClaims{"iss": "someone-else", "sub": "idp-abc"})
		_, err := v.Parse(token)
		require.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"iss": "console-idp"}).
			SignedString([]byte("not-the-secret"))
		require.NoError(t, err)
		_, err = v.Parse(token)
		require.Error(t, err)
	})
}

func TestContextFromClaims(t *testing.T) {
	t.Run("full claims", func(t *testing.T) {
		rc, err := auth.ContextFromClaims(jwt.MapClaims{
			"tenant_id": "T001",
			"sub":       "idp-abc",
			"role":      "Admin",
			"email":     "admin@acme.test",
		})
		require.NoError(t, err)
		require.Equal(t, "T001", rc.TenantID)
		require.Equal(t, "idp-abc", rc.UserID)
		require.Equal(t, "Admin", rc.Role)
		require.Equal(t, "admin@acme.test", rc.Email)
	})

	t.Run("missing tenant claim", func(t *testing.T) {
		_, err := auth.ContextFromClaims(jwt.MapClaims{"sub": "idp-abc"})
		require.Error(t, err)
		require.Equal(t, domain.KindMissingTenantClaim, domain.KindOf(err))
	})

	t.Run("empty tenant claim", func(t *testing.T) {
		_, err := auth.ContextFromClaims(jwt.MapClaims{"tenant_id": "", "sub": "idp-abc"})
		require.Equal(t, domain.KindMissingTenantClaim, domain.KindOf(err))
	})

	t.Run("missing subject claim", func(t *testing.T) {
		_, err := auth.ContextFromClaims(jwt.MapClaims{"tenant_id": "T001"})
		require.Equal(t, domain.KindMissingSubjectClaim, domain.KindOf(err))
	})

	t.Run("role defaults to Finance", func(t *testing.T) {
		rc, err := auth.ContextFromClaims(jwt.MapClaims{"tenant_id": "T001", "sub": "idp-abc"})
		require.NoError(t, err)
		require.Equal(t, domain.RoleFinance, rc.Role)
	})

	t.Run("non-string tenant claim", func(t *testing.T) {
		_, err := auth.ContextFromClaims(jwt.MapClaims{"tenant_id": 42, "sub": "idp-abc"})
		require.Equal(t, domain.KindMissingTenantClaim, domain.KindOf(err))
	})
}
