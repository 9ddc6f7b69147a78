package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/vault/api"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Credentials is the secret shape the credential source returns for the
// relational store. Values are never logged.
type Credentials struct {
	Username string
	Password string
	Host     string
	Port     int
	DBName   string
}

// Source retrieves the store credentials. Implemented by the vault client
// below and by test fakes.
type Source interface {
	Fetch(ctx context.Context) (Credentials, error)
}

// Cache wraps a Source with a TTL cache so rotation stays visible without
// hammering the credential source on every pool (re)build.
type Cache struct {
	src Source
	ttl time.Duration
	log *zap.Logger

	sf sync.Mutex // guards cached/fetchedAt
	g  singleflight.Group

	cached    *Credentials
	fetchedAt time.Time
}

func NewCache(src Source, ttl time.Duration, log *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{src: src, ttl: ttl, log: log}
}

// Get returns the cached credentials, refreshing from the source when the TTL
// has lapsed. Concurrent refreshes collapse into one source call.
func (c *Cache) Get(ctx context.Context) (Credentials, error) {
	c.sf.Lock()
	if c.cached != nil && time.Since(c.fetchedAt) < c.ttl {
		creds := *c.cached
		c.sf.Unlock()
		return creds, nil
	}
	c.sf.Unlock()

	v, err, _ := c.g.Do("db-credentials", func() (any, error) {
		creds, err := c.src.Fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.sf.Lock()
		c.cached = &creds
		c.fetchedAt = time.Now()
		c.sf.Unlock()
		c.log.Debug("db credentials refreshed", zap.String("host", creds.Host), zap.String("dbname", creds.DBName))
		return creds, nil
	})
	if err != nil {
		return Credentials{}, err
	}
	return v.(Credentials), nil
}

// Invalidate drops the cached entry so the next Get re-reads the source.
// Called after an authentication failure, which usually means rotation.
func (c *Cache) Invalidate() {
	c.sf.Lock()
	c.cached = nil
	c.sf.Unlock()
}

// VaultSource reads the credentials from a Vault KV path.
type VaultSource struct {
	client *api.Client
	path   string
}

func NewVaultSource(addr, token, path string) (*VaultSource, error) {
	cfg := api.DefaultConfig()
	if addr != "" {
		cfg.Address = addr
	}
	client, err := api.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}
	return &VaultSource{client: client, path: path}, nil
}

func (s *VaultSource) Fetch(ctx context.Context) (Credentials, error) {
	sec, err := s.client.Logical().ReadWithContext(ctx, s.path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read secret %s: %w", s.path, err)
	}
	if sec == nil || sec.Data == nil {
		return Credentials{}, fmt.Errorf("secret %s is empty", s.path)
	}
	data := sec.Data
	// KV v2 nests the payload one level down.
	if inner, ok := data["data"].(map[string]any); ok {
		data = inner
	}

	creds := Credentials{
		Username: str(data["username"]),
		Password: str(data["password"]),
		Host:     str(data["host"]),
		Port:     num(data["port"]),
		DBName:   str(data["dbname"]),
	}
	if creds.Username == "" || creds.Host == "" || creds.DBName == "" {
		return Credentials{}, fmt.Errorf("secret %s is missing required fields", s.path)
	}
	if creds.Port == 0 {
		creds.Port = 5432
	}
	return creds, nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) int {
	switch n := v.(type) {
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	case float64:
		return int(n)
	case int:
		return n
	case string:
		var i int
		_, _ = fmt.Sscanf(n, "%d", &i)
		return i
	}
	return 0
}
