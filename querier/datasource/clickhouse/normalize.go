package clickhouse

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/janhoon/vizor/querier/datasource/fields"
	"github.com/janhoon/vizor/querier/datasource/loglevel"
	"github.com/janhoon/vizor/querier/datasource/signal"
	"github.com/janhoon/vizor/querier/datasource/timeconv"
	"github.com/janhoon/vizor/querier/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// rowsToLogs turns raw rows into log entries. The line falls back to a JSON
// dump of the whole row when no message column exists, so it is never empty.
// Entries are sorted ascending by the rendered timestamp.
func rowsToLogs(rows []map[string]interface{}) []model.LogEntry {
	entries := make([]model.LogEntry, 0, len(rows))
	for _, row := range rows {
		ix := fields.NewIndex(row)
		skip := map[string]bool{}

		line := ""
		if name, v, ok := ix.Resolve(fields.Message); ok {
			line = valueString(v)
			skip[name] = true
		}
		if line == "" {
			line = dumpRow(row)
		}

		ts := ""
		if name, v, ok := ix.Resolve(fields.Timestamp); ok {
			skip[name] = true
			if t, ok2 := timeconv.ParseTime(v, name); ok2 {
				ts = timeconv.FormatLogTime(t)
			}
		}

		lvl := loglevel.Unknown
		if _, v, ok := ix.Resolve(fields.Level); ok {
			lvl = loglevel.FromValue(valueString(v))
		}
		if lvl == loglevel.Unknown {
			lvl = loglevel.Guess(line)
		}

		labels := map[string]string{}
		for k, v := range row {
			if skip[k] {
				continue
			}
			s := strings.TrimSpace(valueString(v))
			if s == "" {
				continue
			}
			labels[k] = s
		}

		entries = append(entries, model.LogEntry{
			Timestamp: ts,
			Line:      line,
			Labels:    labels,
			Level:     lvl.String(),
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp < entries[j].Timestamp
	})
	return entries
}

// rowsToMatrix groups rows into series by their label signature. Rows
// without a resolvable timestamp or value are dropped.
func rowsToMatrix(rows []map[string]interface{}) []model.MetricResult {
	set := signal.NewSeriesSet()
	for _, row := range rows {
		ix := fields.NewIndex(row)
		tsName, tsVal, tsOK := ix.Resolve(fields.Timestamp)
		valName, valVal, valOK := ix.Resolve(fields.Value)
		if !tsOK || !valOK {
			continue
		}
		ts, ok := timeconv.UnixSeconds(tsVal, tsName)
		if !ok {
			continue
		}
		val := valueString(valVal)
		if val == "" {
			continue
		}
		skip := map[string]bool{tsName: true, valName: true}
		name := "value"
		if nameName, nameVal, ok := ix.Resolve(fields.MetricName); ok {
			skip[nameName] = true
			if s := strings.TrimSpace(valueString(nameVal)); s != "" {
				name = s
			}
		}
		labels := map[string]string{}
		for k, v := range row {
			if skip[k] {
				continue
			}
			s := strings.TrimSpace(valueString(v))
			if s == "" {
				continue
			}
			labels[k] = s
		}
		labels["__name__"] = name
		set.Add(labels, ts, val)
	}
	return set.Matrix()
}

// rowsToTraces maps rows to spans. A row without a span id is dropped. Tags
// merge the dedicated tag column with every column not claimed by a span
// field, the dedicated column wins on key conflicts.
func rowsToTraces(rows []map[string]interface{}) []model.TraceSpan {
	spans := make([]model.TraceSpan, 0, len(rows))
	for _, row := range rows {
		ix := fields.NewIndex(row)
		idName, idVal, ok := ix.Resolve(fields.SpanID)
		if !ok {
			continue
		}
		spanID := strings.TrimSpace(valueString(idVal))
		if spanID == "" {
			continue
		}
		skip := map[string]bool{idName: true}
		span := model.TraceSpan{SpanID: spanID}
		if n, v, ok := ix.Resolve(fields.ParentSpanID); ok {
			span.ParentSpanID = strings.TrimSpace(valueString(v))
			skip[n] = true
		}
		if n, v, ok := ix.Resolve(fields.OperationName); ok {
			span.OperationName = strings.TrimSpace(valueString(v))
			skip[n] = true
		}
		if n, v, ok := ix.Resolve(fields.ServiceName); ok {
			span.ServiceName = strings.TrimSpace(valueString(v))
			skip[n] = true
		}
		if n, v, ok := ix.Resolve(fields.TraceStatus); ok {
			span.Status = strings.TrimSpace(valueString(v))
			skip[n] = true
		}
		if n, v, ok := ix.Resolve(fields.TraceStart); ok {
			skip[n] = true
			if ns, ok2 := timeconv.UnixNanos(v, n); ok2 {
				span.StartTimeUnixNano = ns
			}
		}
		if n, v, ok := ix.Resolve(fields.TraceDuration); ok {
			skip[n] = true
			if ns, ok2 := timeconv.DurationNanos(v, n); ok2 {
				span.DurationNano = ns
			}
		}
		tags := map[string]string{}
		if n, v, ok := ix.Resolve(fields.Tags); ok {
			skip[n] = true
			mergeTags(tags, v)
		}
		for k, v := range row {
			if skip[k] {
				continue
			}
			if _, exists := tags[k]; exists {
				continue
			}
			s := strings.TrimSpace(valueString(v))
			if s == "" {
				continue
			}
			tags[k] = s
		}
		if len(tags) > 0 {
			span.Tags = tags
		}
		spans = append(spans, span)
	}
	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].StartTimeUnixNano < spans[j].StartTimeUnixNano
	})
	return spans
}

// mergeTags accepts the tag column either as a JSON object or as a string
// holding one.
func mergeTags(into map[string]string, v interface{}) {
	switch t := v.(type) {
	case map[string]interface{}:
		addTagMap(into, t)
	case string:
		parsed := map[string]interface{}{}
		if err := json.UnmarshalFromString(t, &parsed); err == nil {
			addTagMap(into, parsed)
		}
	}
}

func addTagMap(into map[string]string, m map[string]interface{}) {
	for k, v := range m {
		s := strings.TrimSpace(valueString(v))
		if s == "" {
			continue
		}
		into[k] = s
	}
}

func valueString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func dumpRow(row map[string]interface{}) string {
	b, err := json.Marshal(row)
	if err != nil {
		return fmt.Sprint(row)
	}
	return string(b)
}
