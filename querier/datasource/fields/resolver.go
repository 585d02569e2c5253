package fields

import (
	"strings"

	"golang.org/x/exp/slices"
)

// Role is one well-known meaning a raw result column can carry.
type Role string

const (
	Timestamp     Role = "timestamp"
	Message       Role = "message"
	Level         Role = "level"
	Value         Role = "value"
	MetricName    Role = "metric name"
	SpanID        Role = "span id"
	ParentSpanID  Role = "parent span id"
	OperationName Role = "operation name"
	ServiceName   Role = "service name"
	TraceStart    Role = "trace start"
	TraceDuration Role = "trace duration"
	TraceStatus   Role = "trace status"
	Tags          Role = "tags"
)

// candidates are tried in order, so the most specific spelling has to come
// first. Entries are matched against normalized column names, which means
// one entry covers snake_case, camelCase and @-prefixed variants at once.
var candidates = map[Role][]string{
	Timestamp:     {"timestamp", "time", "ts", "datetime", "date", "_time", "event_time"},
	Message:       {"message", "msg", "log", "line", "body", "content"},
	Level:         {"level", "severity", "severity_text", "loglevel", "lvl"},
	Value:         {"value", "val", "metric_value", "count"},
	MetricName:    {"metric_name", "metric", "name", "__name__", "series"},
	SpanID:        {"span_id", "span"},
	ParentSpanID:  {"parent_span_id", "parent_id", "parent_span"},
	OperationName: {"operation_name", "operation", "span_name", "name"},
	ServiceName:   {"service_name", "service", "app", "application"},
	TraceStart:    {"start_time_unix_nano", "start_time", "timestamp_ns", "start", "timestamp", "time", "ts"},
	TraceDuration: {"duration_nano", "duration_ns", "duration", "duration_ms", "duration_us", "elapsed", "latency", "took"},
	TraceStatus:   {"status", "status_code", "span_status", "state"},
	Tags:          {"tags", "attributes"},
}

var normalized = func() map[Role][]string {
	out := make(map[Role][]string, len(candidates))
	for role, names := range candidates {
		seen := map[string]bool{}
		for _, name := range names {
			n := Normalize(name)
			if n == "" || seen[n] {
				continue
			}
			seen[n] = true
			out[role] = append(out[role], n)
		}
	}
	return out
}()

// Normalize lowercases a column name and strips every rune outside [a-z0-9],
// so "@timestamp", "Timestamp" and "_TIMESTAMP" all collapse to "timestamp".
func Normalize(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type entry struct {
	name  string
	value interface{}
}

// Index resolves roles against the columns of a single result row.
type Index struct {
	byNorm map[string]entry
}

// NewIndex builds the normalized lookup for one row. When two columns
// collapse to the same normalized name the winner is stable: keys are walked
// in sorted order and the first one keeps the slot.
func NewIndex(row map[string]interface{}) Index {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	byNorm := make(map[string]entry, len(row))
	for _, k := range keys {
		n := Normalize(k)
		if n == "" {
			continue
		}
		if _, ok := byNorm[n]; !ok {
			byNorm[n] = entry{name: k, value: row[k]}
		}
	}
	return Index{byNorm: byNorm}
}

// Resolve returns the original column name and value for the first candidate
// of role present in the row.
func (ix Index) Resolve(role Role) (string, interface{}, bool) {
	for _, cand := range normalized[role] {
		if e, ok := ix.byNorm[cand]; ok {
			return e.name, e.value, true
		}
	}
	return "", nil, false
}

// Has reports whether any candidate of role is present.
func (ix Index) Has(role Role) bool {
	_, _, ok := ix.Resolve(role)
	return ok
}
