package controllerv1

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"

	"github.com/janhoon/vizor/querier/model"
	"github.com/janhoon/vizor/querier/registry"
	"github.com/janhoon/vizor/querier/service"
)

type captureAdapter struct {
	lastQuery  string
	lastSignal string
	lastStart  time.Time
	lastEnd    time.Time
	lastStep   time.Duration
	lastLimit  int64
	err        error
}

func (c *captureAdapter) Query(ctx context.Context, q string, start, end time.Time,
	step time.Duration, limit int64) (*model.QueryResult, error) {
	return c.QueryWithSignal(ctx, q, "", start, end, step, limit)
}

func (c *captureAdapter) QueryWithSignal(ctx context.Context, q, sig string, start, end time.Time,
	step time.Duration, limit int64) (*model.QueryResult, error) {
	c.lastQuery = q
	c.lastSignal = sig
	c.lastStart = start
	c.lastEnd = end
	c.lastStep = step
	c.lastLimit = limit
	if c.err != nil {
		return nil, c.err
	}
	return &model.QueryResult{
		Status:     "success",
		ResultType: model.ResultTypeMatrix,
		Data: model.QueryData{Result: []model.MetricResult{{
			Metric: map[string]string{"__name__": "cpu"},
			Values: []model.MetricPoint{{Timestamp: 1700000000, Value: "1"}},
		}}},
	}, nil
}

func (c *captureAdapter) TestConnection(ctx context.Context) error {
	return c.err
}

func newQueryApp(capture *captureAdapter) *mux.Router {
	registry.RegisterType("ctl-capture", func(ds model.DataSource) (model.Adapter, error) {
		return capture, nil
	})
	reg := registry.New([]model.DataSource{{Name: "main", Type: "ctl-capture", URL: "http://x"}})
	qc := &QueryController{
		Service: &service.QueryService{Registry: reg},
		Timeout: time.Minute,
	}
	app := mux.NewRouter()
	app.HandleFunc("/api/v1/datasources/{name}/query", qc.Query).Methods("GET", "POST")
	app.HandleFunc("/api/v1/query", qc.BatchQuery).Methods("POST")
	return app
}

func TestQueryGet(t *testing.T) {
	capture := &captureAdapter{}
	app := newQueryApp(capture)

	req := httptest.NewRequest("GET",
		"/api/v1/datasources/main/query?query=SELECT+1&signal=logs&start=1700000000&end=1700003600&step=30&limit=5", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"resultType":"matrix"`)
	assert.Contains(t, w.Body.String(), `[1700000000,"1"]`)

	assert.Equal(t, "SELECT 1", capture.lastQuery)
	assert.Equal(t, "logs", capture.lastSignal)
	assert.Equal(t, int64(1700000000), capture.lastStart.Unix())
	assert.Equal(t, int64(1700003600), capture.lastEnd.Unix())
	assert.Equal(t, 30*time.Second, capture.lastStep)
	assert.Equal(t, int64(5), capture.lastLimit)
}

func TestQueryPostForm(t *testing.T) {
	capture := &captureAdapter{}
	app := newQueryApp(capture)

	form := url.Values{}
	form.Set("query", "SELECT count() AS value")
	form.Set("step", "2m")
	req := httptest.NewRequest("POST", "/api/v1/datasources/main/query", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "SELECT count() AS value", capture.lastQuery)
	assert.Equal(t, 2*time.Minute, capture.lastStep)
}

func TestQueryDefaults(t *testing.T) {
	capture := &captureAdapter{}
	app := newQueryApp(capture)

	before := time.Now()
	req := httptest.NewRequest("GET", "/api/v1/datasources/main/query?query=x", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, time.Minute, capture.lastStep)
	assert.Equal(t, int64(0), capture.lastLimit)
	// start defaults to an hour before end
	assert.WithinDuration(t, before.Add(-time.Hour), capture.lastStart, 5*time.Second)
	assert.WithinDuration(t, before, capture.lastEnd, 5*time.Second)
}

func TestQueryMissingQuery(t *testing.T) {
	app := newQueryApp(&captureAdapter{})
	req := httptest.NewRequest("GET", "/api/v1/datasources/main/query", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)

	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "query is undefined")
}

func TestQueryUnknownDataSource(t *testing.T) {
	app := newQueryApp(&captureAdapter{})
	req := httptest.NewRequest("GET", "/api/v1/datasources/ghost/query?query=x", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
}

func TestQueryUpstreamErrorMapsToBadGateway(t *testing.T) {
	app := newQueryApp(&captureAdapter{err: &model.AuthError{Status: 401}})
	req := httptest.NewRequest("GET", "/api/v1/datasources/main/query?query=x", nil)
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)

	assert.Equal(t, 502, w.Code)
	assert.Contains(t, w.Body.String(), "authentication failed")
}

func TestBatchQuery(t *testing.T) {
	capture := &captureAdapter{}
	app := newQueryApp(capture)

	body := `{"queries":[
		{"refId":"A","datasource":"main","query":"SELECT 1","start":"1700000000","end":"1700003600"},
		{"refId":"B","datasource":"ghost","query":"SELECT 2"}
	]}`
	req := httptest.NewRequest("POST", "/api/v1/query", strings.NewReader(body))
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	var resp struct {
		Results map[string]jsoniter.RawMessage `json:"results"`
	}
	assert.NoError(t, jsoniter.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 2)
	assert.Contains(t, string(resp.Results["A"]), `"resultType":"matrix"`)
	assert.Contains(t, string(resp.Results["B"]), `"status":"error"`)
	assert.Contains(t, string(resp.Results["B"]), "not found")
}

func TestBatchQueryBadRequests(t *testing.T) {
	app := newQueryApp(&captureAdapter{})

	req := httptest.NewRequest("POST", "/api/v1/query", strings.NewReader("{broken"))
	w := httptest.NewRecorder()
	app.ServeHTTP(w, req)
	assert.Equal(t, 400, w.Code)

	req = httptest.NewRequest("POST", "/api/v1/query", strings.NewReader(`{"queries":[]}`))
	w = httptest.NewRecorder()
	app.ServeHTTP(w, req)
	assert.Equal(t, 400, w.Code)
	assert.Contains(t, w.Body.String(), "queries is empty")
}
