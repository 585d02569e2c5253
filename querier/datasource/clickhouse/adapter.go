package clickhouse

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fastjson"

	"github.com/janhoon/vizor/querier/datasource/authcfg"
	"github.com/janhoon/vizor/querier/datasource/signal"
	"github.com/janhoon/vizor/querier/model"
)

const maxErrorBody = 512

// formatClause matches an explicit FORMAT already present in the query, as a
// word, so "formatDateTime(...)" does not count.
var formatClause = regexp.MustCompile(`(?i)\bformat\b`)

// Adapter talks to ClickHouse over its HTTP interface: one synchronous POST
// with the SQL text as the body. Configuration is immutable, instances are
// safe for concurrent use.
type Adapter struct {
	url      *url.URL
	database string
	user     string
	password string
	client   *http.Client
}

func NewAdapter(ds model.DataSource) (model.Adapter, error) {
	raw := strings.TrimSpace(ds.URL)
	if raw == "" {
		return nil, &model.ConfigError{Field: "url", Reason: "is required"}
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &model.ConfigError{Field: "url", Reason: "is not a valid base URL"}
	}
	cfg, err := authcfg.Parse(ds.AuthConfig)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		url:      u,
		database: cfg.String("database", "db", "default_database", "defaultDatabase"),
		user:     cfg.String("user", "username"),
		password: cfg.String("password", "pass"),
		// no client timeout, the caller context sets the deadline
		client: &http.Client{},
	}, nil
}

func (a *Adapter) Query(ctx context.Context, queryString string, start time.Time, end time.Time,
	step time.Duration, limit int64) (*model.QueryResult, error) {
	return a.QueryWithSignal(ctx, queryString, "", start, end, step, limit)
}

func (a *Adapter) QueryWithSignal(ctx context.Context, queryString string, sig string,
	start time.Time, end time.Time, step time.Duration, limit int64) (*model.QueryResult, error) {
	resolved, err := signal.Resolve(sig, signal.Metrics, signal.All)
	if err != nil {
		return nil, err
	}
	sql := ensureFormat(interpolate(queryString, start, end, step))
	rows, err := a.execute(ctx, sql)
	if err != nil {
		return nil, err
	}
	switch resolved {
	case signal.Logs:
		entries := rowsToLogs(rows)
		if limit > 0 && int64(len(entries)) > limit {
			entries = entries[:limit]
		}
		return signal.StreamsResult(entries), nil
	case signal.Traces:
		return signal.TracesResult(rowsToTraces(rows)), nil
	default:
		return signal.MatrixResult(rowsToMatrix(rows)), nil
	}
}

func (a *Adapter) TestConnection(ctx context.Context) error {
	_, err := a.execute(ctx, "SELECT 1 FORMAT JSON")
	return err
}

// interpolate substitutes the time range macros. Values are plain integers,
// the SQL casts them however it needs.
func interpolate(q string, start time.Time, end time.Time, step time.Duration) string {
	r := strings.NewReplacer(
		"{start_ms}", strconv.FormatInt(start.UnixMilli(), 10),
		"{end_ms}", strconv.FormatInt(end.UnixMilli(), 10),
		"{start_ns}", strconv.FormatInt(start.UnixNano(), 10),
		"{end_ns}", strconv.FormatInt(end.UnixNano(), 10),
		"{start}", strconv.FormatInt(start.Unix(), 10),
		"{end}", strconv.FormatInt(end.Unix(), 10),
		"{step}", strconv.FormatInt(int64(step/time.Second), 10),
	)
	return r.Replace(q)
}

func ensureFormat(q string) string {
	if formatClause.MatchString(q) {
		return q
	}
	return strings.TrimRight(q, " \t\r\n;") + " FORMAT JSON"
}

// execute runs one SQL statement and returns the decoded data rows. Rows
// that are not JSON objects are skipped.
func (a *Adapter) execute(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	u := *a.url
	q := u.Query()
	if a.database != "" {
		q.Set("database", a.database)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(sql))
	if err != nil {
		return nil, &model.TransportError{Op: "clickhouse query", Err: err}
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "application/json")
	if a.user != "" {
		req.SetBasicAuth(a.user, a.password)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &model.TransportError{Op: "clickhouse query", Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.TransportError{Op: "clickhouse read response", Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &model.AuthError{Status: resp.StatusCode}
	}
	if resp.StatusCode/100 != 2 {
		return nil, &model.QueryError{Status: resp.StatusCode, Body: errorExcerpt(body)}
	}

	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, &model.ParseError{Op: "decode clickhouse response", Err: err}
	}
	data := v.Get("data")
	if data == nil || data.Type() == fastjson.TypeNull {
		return nil, nil
	}
	arr, err := data.Array()
	if err != nil {
		return nil, &model.ParseError{Op: "decode clickhouse response", Err: err}
	}
	rows := make([]map[string]interface{}, 0, len(arr))
	for _, item := range arr {
		obj, err := item.Object()
		if err != nil {
			continue
		}
		row := make(map[string]interface{}, obj.Len())
		obj.Visit(func(key []byte, val *fastjson.Value) {
			row[string(key)] = fastToGo(val)
		})
		rows = append(rows, row)
	}
	return rows, nil
}

func fastToGo(v *fastjson.Value) interface{} {
	switch v.Type() {
	case fastjson.TypeString:
		b, _ := v.StringBytes()
		return string(b)
	case fastjson.TypeNumber:
		f, _ := v.Float64()
		return f
	case fastjson.TypeTrue:
		return true
	case fastjson.TypeFalse:
		return false
	case fastjson.TypeObject:
		obj, _ := v.Object()
		m := make(map[string]interface{}, obj.Len())
		obj.Visit(func(key []byte, val *fastjson.Value) {
			m[string(key)] = fastToGo(val)
		})
		return m
	case fastjson.TypeArray:
		arr, _ := v.Array()
		out := make([]interface{}, 0, len(arr))
		for _, item := range arr {
			out = append(out, fastToGo(item))
		}
		return out
	}
	return nil
}

func errorExcerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}
