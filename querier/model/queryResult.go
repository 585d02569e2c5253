package model

import (
	"fmt"
	"strconv"
)

const (
	ResultTypeMatrix  = "matrix"
	ResultTypeStreams = "streams"
	ResultTypeTraces  = "traces"
)

// QueryResult is the canonical envelope every adapter returns. Exactly one
// payload slice inside Data is populated, selected by ResultType.
type QueryResult struct {
	Status     string    `json:"status"`
	ResultType string    `json:"resultType"`
	Data       QueryData `json:"data"`
}

type QueryData struct {
	Result []MetricResult `json:"result,omitempty"`
	Logs   []LogEntry     `json:"logs,omitempty"`
	Traces []TraceSpan    `json:"traces,omitempty"`
}

// MetricResult is one series. Metric always carries __name__ and Values is
// ordered ascending by timestamp.
type MetricResult struct {
	Metric map[string]string `json:"metric"`
	Values []MetricPoint     `json:"values"`
}

// MetricPoint marshals as the [unixSeconds, "value"] pair dashboards expect.
type MetricPoint struct {
	Timestamp float64
	Value     string
}

func (p MetricPoint) MarshalJSON() ([]byte, error) {
	ts := strconv.FormatFloat(p.Timestamp, 'f', -1, 64)
	return []byte(fmt.Sprintf("[%s,%s]", ts, strconv.Quote(p.Value))), nil
}

// LogEntry timestamps are RFC3339 with a fixed nanosecond fraction in UTC so
// the string ordering is the time ordering. Line is never empty, Level may be.
type LogEntry struct {
	Timestamp string            `json:"timestamp"`
	Line      string            `json:"line"`
	Labels    map[string]string `json:"labels,omitempty"`
	Level     string            `json:"level,omitempty"`
}

type TraceSpan struct {
	SpanID            string            `json:"spanId"`
	ParentSpanID      string            `json:"parentSpanId,omitempty"`
	OperationName     string            `json:"operationName,omitempty"`
	ServiceName       string            `json:"serviceName,omitempty"`
	StartTimeUnixNano int64             `json:"startTimeUnixNano"`
	DurationNano      int64             `json:"durationNano"`
	Status            string            `json:"status,omitempty"`
	Tags              map[string]string `json:"tags,omitempty"`
}
