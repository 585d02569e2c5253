package controllerv1

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	jsoniter "github.com/json-iterator/go"

	"github.com/janhoon/vizor/querier/service"
	"github.com/janhoon/vizor/querier/utils/logger"
)

type QueryController struct {
	Service *service.QueryService
	// Timeout bounds one upstream query. Zero means the request context is
	// the only deadline.
	Timeout time.Duration
}

type QueryProps struct {
	Raw struct {
		Query  string `schema:"query"`
		Signal string `schema:"signal"`
		Start  string `schema:"start"`
		End    string `schema:"end"`
		Step   string `schema:"step"`
		Limit  string `schema:"limit"`
	}
	Query  string
	Signal string
	Start  time.Time
	End    time.Time
	Step   time.Duration
	Limit  int64
}

// Query handles GET and form POST requests against one datasource.
func (qc *QueryController) Query(w http.ResponseWriter, r *http.Request) {
	defer tamePanic(w, r)
	props, err := parseQueryProps(r)
	if err != nil {
		writeError(400, err.Error(), w)
		return
	}
	ctx, cancel := qc.queryContext(r.Context())
	defer cancel()
	res, err := qc.Service.Query(ctx, service.QueryRequest{
		DataSource: mux.Vars(r)["name"],
		Query:      props.Query,
		Signal:     props.Signal,
		Start:      props.Start,
		End:        props.End,
		Step:       props.Step,
		Limit:      props.Limit,
	})
	if err != nil {
		code := errorStatus(err)
		if code >= 500 {
			logger.Error("[QRY001] " + err.Error())
		}
		writeError(code, err.Error(), w)
		return
	}
	writeJSON(w, res)
}

type batchQueryRequest struct {
	Queries []batchQueryItem `json:"queries"`
}

type batchQueryItem struct {
	RefID      string `json:"refId"`
	DataSource string `json:"datasource"`
	Query      string `json:"query"`
	Signal     string `json:"signal"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Step       string `json:"step"`
	Limit      int64  `json:"limit"`
}

type batchQueryResponse struct {
	Results map[string]interface{} `json:"results"`
}

// BatchQuery runs several panel queries in one request. Entries fail
// independently, the response carries a result or an error per refId.
func (qc *QueryController) BatchQuery(w http.ResponseWriter, r *http.Request) {
	defer tamePanic(w, r)
	defer r.Body.Close()
	var req batchQueryRequest
	if err := jsoniter.ConfigFastest.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(400, "decode request: "+err.Error(), w)
		return
	}
	if len(req.Queries) == 0 {
		writeError(400, "queries is empty", w)
		return
	}
	reqs := make([]service.QueryRequest, 0, len(req.Queries))
	for i, item := range req.Queries {
		start, err := ParseTimeSecOrRFC(item.Start, time.Now().Add(-time.Hour))
		if err != nil {
			writeError(400, "query "+strconv.Itoa(i)+": "+err.Error(), w)
			return
		}
		end, err := ParseTimeSecOrRFC(item.End, time.Now())
		if err != nil {
			writeError(400, "query "+strconv.Itoa(i)+": "+err.Error(), w)
			return
		}
		step := time.Minute
		if item.Step != "" {
			step, err = parseDuration(item.Step)
			if err != nil {
				writeError(400, "query "+strconv.Itoa(i)+": "+err.Error(), w)
				return
			}
		}
		refID := item.RefID
		if refID == "" {
			refID = strconv.Itoa(i)
		}
		reqs = append(reqs, service.QueryRequest{
			RefID:      refID,
			DataSource: item.DataSource,
			Query:      item.Query,
			Signal:     item.Signal,
			Start:      start,
			End:        end,
			Step:       step,
			Limit:      item.Limit,
		})
	}
	ctx, cancel := qc.queryContext(r.Context())
	defer cancel()
	resp := batchQueryResponse{Results: make(map[string]interface{}, len(reqs))}
	for _, br := range qc.Service.BatchQuery(ctx, reqs) {
		if br.Err != nil {
			resp.Results[br.RefID] = map[string]string{
				"status": "error",
				"error":  br.Err.Error(),
			}
			continue
		}
		resp.Results[br.RefID] = br.Result
	}
	writeJSON(w, resp)
}

func (qc *QueryController) queryContext(parent context.Context) (context.Context, context.CancelFunc) {
	if qc.Timeout <= 0 {
		return parent, func() {}
	}
	return context.WithTimeout(parent, qc.Timeout)
}

func parseQueryProps(r *http.Request) (QueryProps, error) {
	res := QueryProps{}
	var err error
	if r.Method == "POST" && strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		err = r.ParseForm()
		if err != nil {
			return res, err
		}
		dec := schema.NewDecoder()
		dec.IgnoreUnknownKeys(true)
		err = dec.Decode(&res.Raw, r.PostForm)
		if err != nil {
			return res, err
		}
	}
	q := r.URL.Query()
	if res.Raw.Query == "" {
		res.Raw.Query = q.Get("query")
	}
	if res.Raw.Signal == "" {
		res.Raw.Signal = q.Get("signal")
	}
	if res.Raw.Start == "" {
		res.Raw.Start = q.Get("start")
	}
	if res.Raw.End == "" {
		res.Raw.End = q.Get("end")
	}
	if res.Raw.Step == "" {
		res.Raw.Step = q.Get("step")
	}
	if res.Raw.Limit == "" {
		res.Raw.Limit = q.Get("limit")
	}
	res.Start, err = ParseTimeSecOrRFC(res.Raw.Start, time.Now().Add(-time.Hour))
	if err != nil {
		return res, err
	}
	res.End, err = ParseTimeSecOrRFC(res.Raw.End, time.Now())
	if err != nil {
		return res, err
	}
	res.Query = res.Raw.Query
	if res.Query == "" {
		return res, errQueryUndefined
	}
	res.Signal = res.Raw.Signal
	if res.Raw.Step == "" {
		res.Raw.Step = "60"
	}
	res.Step, err = parseDuration(res.Raw.Step)
	if err != nil {
		return res, err
	}
	if res.Raw.Limit != "" {
		res.Limit, err = strconv.ParseInt(res.Raw.Limit, 10, 64)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}
