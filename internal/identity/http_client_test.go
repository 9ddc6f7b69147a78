package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"tenant-console-api/internal/identity"
)

func TestHTTPClientCreateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		var gotAuth string
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/admin/users", r.URL.Path)
			gotAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"idp-42"}`))
		}))
		defer srv.Close()

		c := identity.NewHTTPClient(srv.URL, "svc-token", srv.Client())
		id, err := c.CreateUser(ctx, "user@acme.test", identity.Attributes{TenantID: "T001", Role: "Finance"}, "Sup3rSecret")
		require.NoError(t, err)
		require.Equal(t, "idp-42", id)
		require.Equal(t, "Bearer svc-token", gotAuth)

		attrs, ok := gotBody["attributes"].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "T001", attrs["tenant_id"])
		require.Equal(t, "Finance", attrs["role"])
	})

	t.Run("status mapping", func(t *testing.T) {
		cases := []struct {
			status int
			want   error
		}{
			{http.StatusConflict, identity.ErrAlreadyExists},
			{http.StatusNotFound, identity.ErrNotFound},
			{http.StatusTooManyRequests, identity.ErrThrottled},
		}
		for _, tc := range cases {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			c := identity.NewHTTPClient(srv.URL, "", srv.Client())
			_, err := c.CreateUser(ctx, "user@acme.test", identity.Attributes{TenantID: "T001"}, "Sup3rSecret")
			require.ErrorIs(t, err, tc.want, "status %d", tc.status)
			srv.Close()
		}
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := identity.NewHTTPClient(srv.URL, "", srv.Client())
		_, err := c.CreateUser(ctx, "user@acme.test", identity.Attributes{TenantID: "T001"}, "Sup3rSecret")
		require.Error(t, err)
	})
}

func TestHTTPClientUpdateUserAttribute(t *testing.T) {
	ctx := context.Background()

	t.Run("tenant attribute never leaves the process", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Error("no request expected")
		}))
		defer srv.Close()

		c := identity.NewHTTPClient(srv.URL, "", srv.Client())
		err := c.UpdateUserAttribute(ctx, "idp-42", identity.AttrTenantID, "T002")
		require.ErrorIs(t, err, identity.ErrImmutableAttribute)
	})

	t.Run("role update", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPut, r.Method)
			require.Equal(t, "/admin/users/idp-42/attributes/role", r.URL.Path)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "Operations", body["value"])
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		c := identity.NewHTTPClient(srv.URL, "", srv.Client())
		require.NoError(t, c.UpdateUserAttribute(ctx, "idp-42", identity.AttrRole, "Operations"))
	})
}

func TestHTTPClientDeleteUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/admin/users/idp-42", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := identity.NewHTTPClient(srv.URL, "", srv.Client())
	require.NoError(t, c.DeleteUser(context.Background(), "idp-42"))
}
