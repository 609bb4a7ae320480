package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/http/cookiejar"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/awesome-blog/internal/config"
	"github.com/sakif/awesome-blog/internal/db"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Default()
	cfg.DB.Database = filepath.Join(t.TempDir(), "server.db")
	cfg.JWTSecret = "server-test-secret-0123456789"
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := db.Open(cfg.DB, logger)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })

	srv, err := New(cfg, engine, logger)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

func send(t *testing.T, c *http.Client, method, url, body string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	status, body := send(t, ts.Client(), http.MethodGet, ts.URL+"/healthz", "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestEndToEnd(t *testing.T) {
	ts := newTestServer(t, nil)
	c := newClient(t)

	status, body := send(t, c, http.MethodPost, ts.URL+"/api/users",
		`{"email":"gus@example.com","name":"Gus","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, status, body)

	status, body = send(t, c, http.MethodGet, ts.URL+"/api/users/me", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"name":"Gus"`)

	status, body = send(t, c, http.MethodPost, ts.URL+"/api/blogs",
		`{"name":"Post","summary":"About","content":"Text"}`)
	require.Equal(t, http.StatusCreated, status, body)

	status, body = send(t, c, http.MethodGet, ts.URL+"/api/blogs", "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"total":1`)
	assert.Contains(t, body, `"userName":"Gus"`)

	status, _ = send(t, c, http.MethodPost, ts.URL+"/api/signout", "")
	require.Equal(t, http.StatusOK, status)

	status, _ = send(t, c, http.MethodPost, ts.URL+"/api/blogs",
		`{"name":"Again","summary":"s","content":"c"}`)
	assert.Equal(t, http.StatusUnauthorized, status, "cookie cleared by signout")
}

func TestReadOnlyWithoutSecret(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.JWTSecret = "" })

	status, _ := send(t, ts.Client(), http.MethodGet, ts.URL+"/api/blogs", "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = send(t, ts.Client(), http.MethodPost, ts.URL+"/api/users",
		`{"email":"h@example.com","name":"H","password":"secret1"}`)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = send(t, ts.Client(), http.MethodGet, ts.URL+"/auth/github/login", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestGitHubRoutesOnlyWhenConfigured(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.GitHub = config.GitHubConfig{ClientID: "id", ClientSecret: "secret", CallbackURL: "http://localhost/cb"}
	})

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	status, _ := send(t, client, http.MethodGet, ts.URL+"/auth/github/login", "")
	assert.Equal(t, http.StatusTemporaryRedirect, status)
}

func TestNew_WithoutAutoMigrate(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.AutoMigrate = false })

	status, _ := send(t, ts.Client(), http.MethodGet, ts.URL+"/api/blogs", "")
	assert.Equal(t, http.StatusInternalServerError, status, "no tables without migration")
}
