package embed_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tenant-console-api/internal/domain"
	"tenant-console-api/internal/embed"
)

func TestClientEmbedURL(t *testing.T) {
	ctx := context.Background()
	tags := []domain.SessionTag{
		{Key: "tenant_id", Value: "T001"},
		{Key: "region", Value: "EMEA"},
	}

	t.Run("success", func(t *testing.T) {
		expires := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Second)
		var gotBody map[string]any
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/sessions", r.URL.Path)
			require.Equal(t, "Bearer embed-token", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"url":       "https://dash.example.test/embedded/abc",
				"expiresAt": expires,
			})
		}))
		defer srv.Close()

		c := embed.NewClient(srv.URL, "embed-token", 10*time.Minute, srv.Client())
		url, expiresAt, err := c.EmbedURL(ctx, "T001", "Admin", tags)
		require.NoError(t, err)
		require.Equal(t, "https://dash.example.test/embedded/abc", url)
		require.True(t, expiresAt.Equal(expires))

		require.Equal(t, "T001", gotBody["tenant_id"])
		require.Equal(t, "Admin", gotBody["role"])
		require.EqualValues(t, 600, gotBody["ttl_seconds"])
		sent, ok := gotBody["session_tags"].([]any)
		require.True(t, ok)
		require.Len(t, sent, 2)
		first, ok := sent[0].(map[string]any)
		require.True(t, ok)
		require.Equal(t, "tenant_id", first["key"])
	})

	t.Run("server failure", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		c := embed.NewClient(srv.URL, "", 0, srv.Client())
		_, _, err := c.EmbedURL(ctx, "T001", "Admin", tags)
		require.Error(t, err)
	})

	t.Run("missing url in response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{}`))
		}))
		defer srv.Close()

		c := embed.NewClient(srv.URL, "", 0, srv.Client())
		_, _, err := c.EmbedURL(ctx, "T001", "Admin", tags)
		require.Error(t, err)
	})
}
