package commonroutes

import (
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"github.com/janhoon/vizor/querier/config"
)

func newCommonApp(t *testing.T) *mux.Router {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.HTTP.BasicAuth.Username = "admin"
	cfg.HTTP.BasicAuth.Password = "topsecret"
	cfg.DataSources = []config.DataSourceSettings{{
		Name: "ch", Type: "clickhouse", URL: "http://localhost:8123",
		AuthConfig: map[string]interface{}{"password": "topsecret"},
	}}
	app := mux.NewRouter()
	RegisterCommonRoutes(app, cfg)
	return app
}

func TestReady(t *testing.T) {
	app := newCommonApp(t)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest("GET", "/ready", nil))
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}

func TestConfigRedactsSecrets(t *testing.T) {
	app := newCommonApp(t)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest("GET", "/config", nil))
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"admin"`)
	assert.NotContains(t, w.Body.String(), "topsecret")
}

func TestBuildInfo(t *testing.T) {
	app := newCommonApp(t)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest("GET", "/api/status/buildinfo", nil))
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), `"version"`)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newCommonApp(t)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
