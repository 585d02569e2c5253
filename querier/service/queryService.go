package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/errgroup"

	"github.com/janhoon/vizor/querier/datasource/signal"
	"github.com/janhoon/vizor/querier/model"
	"github.com/janhoon/vizor/querier/registry"
)

var (
	queriesCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datasource_queries_count",
		Help: "The total number of datasource queries",
	}, []string{"datasource", "signal", "status"})
	queryTime = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datasource_query_time_ms",
		Help:    "Datasource query time in milliseconds",
		Buckets: []float64{50, 100, 250, 500, 1000, 5000, 15000, 60000},
	}, []string{"datasource", "signal"})
)

// QueryRequest is one resolved query invocation.
type QueryRequest struct {
	RefID      string
	DataSource string
	Query      string
	Signal     string
	Start      time.Time
	End        time.Time
	Step       time.Duration
	Limit      int64
}

type QueryService struct {
	Registry *registry.Registry
	// MaxConcurrent bounds batch fan-out, 0 means unbounded.
	MaxConcurrent int
}

func (s *QueryService) Query(ctx context.Context, req QueryRequest) (*model.QueryResult, error) {
	sig := signalLabel(req.Signal)
	adapter, err := s.Registry.Adapter(req.DataSource)
	if err != nil {
		queriesCount.WithLabelValues(req.DataSource, sig, "error").Inc()
		return nil, err
	}
	begin := time.Now()
	res, err := adapter.QueryWithSignal(ctx, req.Query, req.Signal, req.Start, req.End, req.Step, req.Limit)
	queryTime.WithLabelValues(req.DataSource, sig).
		Observe(float64(time.Since(begin).Milliseconds()))
	if err != nil {
		queriesCount.WithLabelValues(req.DataSource, sig, "error").Inc()
		return nil, err
	}
	queriesCount.WithLabelValues(req.DataSource, sig, "success").Inc()
	return res, nil
}

func (s *QueryService) TestConnection(ctx context.Context, name string) error {
	return s.Registry.TestConnection(ctx, name)
}

// BatchResult pairs a request with its outcome.
type BatchResult struct {
	RefID  string
	Result *model.QueryResult
	Err    error
}

// BatchQuery fans requests out concurrently, bounded by MaxConcurrent.
// Failures stay per entry, one bad query never cancels its siblings.
func (s *QueryService) BatchQuery(ctx context.Context, reqs []QueryRequest) []BatchResult {
	out := make([]BatchResult, len(reqs))
	g := errgroup.Group{}
	if s.MaxConcurrent > 0 {
		g.SetLimit(s.MaxConcurrent)
	}
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := s.Query(ctx, req)
			out[i] = BatchResult{RefID: req.RefID, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func signalLabel(raw string) string {
	if s := signal.Normalize(raw); s != "" {
		return s
	}
	return signal.Metrics
}
