package cloudwatch

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"

	"github.com/janhoon/vizor/querier/datasource/fields"
	"github.com/janhoon/vizor/querier/datasource/loglevel"
	"github.com/janhoon/vizor/querier/datasource/signal"
	"github.com/janhoon/vizor/querier/datasource/timeconv"
	"github.com/janhoon/vizor/querier/model"
)

const (
	logPollInterval = time.Second
	recordPointer   = "@ptr"
)

// queryLogs runs a Logs Insights query: start it, then poll until CloudWatch
// reports a terminal state. There is deliberately no iteration cap, the
// caller context is the only thing that bounds the wait.
func (a *Adapter) queryLogs(ctx context.Context, q string, start time.Time, end time.Time,
	limit int64) (*model.QueryResult, error) {
	if len(a.settings.logGroups) == 0 {
		return nil, &model.ConfigError{Field: "log_groups", Reason: "must name at least one group for log queries"}
	}
	in := &cloudwatchlogs.StartQueryInput{
		LogGroupNames: aws.StringSlice(a.settings.logGroups),
		QueryString:   aws.String(q),
		StartTime:     aws.Int64(start.Unix()),
		EndTime:       aws.Int64(end.Unix()),
	}
	if limit > 0 {
		in.Limit = aws.Int64(limit)
	}
	started, err := a.logs.StartQueryWithContext(ctx, in)
	if err != nil {
		return nil, &model.TransportError{Op: "StartQuery", Err: err}
	}

	ticker := time.NewTicker(logPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
		out, err := a.logs.GetQueryResultsWithContext(ctx, &cloudwatchlogs.GetQueryResultsInput{
			QueryId: started.QueryId,
		})
		if err != nil {
			return nil, &model.TransportError{Op: "GetQueryResults", Err: err}
		}
		switch aws.StringValue(out.Status) {
		case cloudwatchlogs.QueryStatusComplete:
			return signal.StreamsResult(resultsToLogs(out.Results)), nil
		case cloudwatchlogs.QueryStatusScheduled, cloudwatchlogs.QueryStatusRunning,
			cloudwatchlogs.QueryStatusUnknown, "":
			continue
		default:
			// Failed, Cancelled or Timeout
			return nil, &model.PollTerminalError{State: aws.StringValue(out.Status)}
		}
	}
}

// resultsToLogs maps Logs Insights rows onto log entries. Every field except
// the message, the timestamp and the @ptr record pointer becomes a label.
func resultsToLogs(results [][]*cloudwatchlogs.ResultField) []model.LogEntry {
	entries := make([]model.LogEntry, 0, len(results))
	for _, rf := range results {
		row := make(map[string]interface{}, len(rf))
		for _, f := range rf {
			if f == nil {
				continue
			}
			name := aws.StringValue(f.Field)
			if name == "" || name == recordPointer {
				continue
			}
			row[name] = aws.StringValue(f.Value)
		}
		if len(row) == 0 {
			continue
		}
		ix := fields.NewIndex(row)
		skip := map[string]bool{}

		line := ""
		if name, v, ok := ix.Resolve(fields.Message); ok {
			line = fieldString(v)
			skip[name] = true
		}
		if line == "" {
			line = rowJSON(row)
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
			lvl = loglevel.FromValue(fieldString(v))
		}
		if lvl == loglevel.Unknown {
			lvl = loglevel.Guess(line)
		}

		labels := map[string]string{}
		for k, v := range row {
			if skip[k] {
				continue
			}
			s := strings.TrimSpace(fieldString(v))
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

func fieldString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func rowJSON(row map[string]interface{}) string {
	b, err := json.Marshal(row)
	if err != nil {
		return fmt.Sprint(row)
	}
	return string(b)
}
