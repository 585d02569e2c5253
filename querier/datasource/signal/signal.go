package signal

import (
	"strings"

	"github.com/janhoon/vizor/querier/model"
)

const (
	Metrics = "metrics"
	Logs    = "logs"
	Traces  = "traces"
)

// All is the full signal set in its canonical order.
var All = []string{Metrics, Logs, Traces}

// Normalize trims and lowercases a raw signal name. Empty stays empty so the
// caller can apply its own default.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Resolve validates raw against the signals a datasource supports. Empty
// resolves to def, anything outside supported is rejected with the valid set
// spelled out.
func Resolve(raw string, def string, supported []string) (string, error) {
	s := Normalize(raw)
	if s == "" {
		s = def
	}
	for _, known := range supported {
		if s == known {
			return s, nil
		}
	}
	return "", &model.UnsupportedSignalError{Signal: s, Valid: supported}
}

// MatrixResult wraps normalized series in the canonical success envelope.
func MatrixResult(series []model.MetricResult) *model.QueryResult {
	if series == nil {
		series = []model.MetricResult{}
	}
	return &model.QueryResult{
		Status:     "success",
		ResultType: model.ResultTypeMatrix,
		Data:       model.QueryData{Result: series},
	}
}

func StreamsResult(entries []model.LogEntry) *model.QueryResult {
	if entries == nil {
		entries = []model.LogEntry{}
	}
	return &model.QueryResult{
		Status:     "success",
		ResultType: model.ResultTypeStreams,
		Data:       model.QueryData{Logs: entries},
	}
}

func TracesResult(spans []model.TraceSpan) *model.QueryResult {
	if spans == nil {
		spans = []model.TraceSpan{}
	}
	return &model.QueryResult{
		Status:     "success",
		ResultType: model.ResultTypeTraces,
		Data:       model.QueryData{Traces: spans},
	}
}
