package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tenant-console-api/internal/domain"
)

// Verifier re-parses the bearer token the upstream identity provider already
// verified. Parsing with the issuer key again is cheap; the real contract of
// this package is ContextFromClaims below.
type Verifier struct {
	Secret []byte
	Issuer string
}

func (v *Verifier) Parse(tokenStr string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	t, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return v.Secret, nil
	}, jwt.WithIssuer(v.Issuer), jwt.WithLeeway(60*time.Second))
	if err != nil {
		return nil, err
	}
	if !t.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// ContextFromClaims converts the loosely-typed claims map into the typed
// RequestContext at the trust boundary. This is the sole source of tenant
// identity for everything downstream; raw claims never travel past here.
//
// Required: tenant_id, sub. Role defaults to Finance when absent.
func ContextFromClaims(claims jwt.MapClaims) (domain.RequestContext, error) {
	tenantID := stringClaim(claims, "tenant_id")
	if tenantID == "" {
		return domain.RequestContext{}, domain.MissingTenantClaim()
	}
	sub := stringClaim(claims, "sub")
	if sub == "" {
		return domain.RequestContext{}, domain.MissingSubjectClaim()
	}
	role := stringClaim(claims, "role")
	if role == "" {
		role = domain.RoleFinance
	}
	return domain.RequestContext{
		TenantID: tenantID,
		UserID:   sub,
		Role:     role,
		Email:    stringClaim(claims, "email"),
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	v, ok := claims[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
