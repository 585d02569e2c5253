package cloudwatch

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/janhoon/vizor/querier/datasource/authcfg"
	"github.com/janhoon/vizor/querier/datasource/signal"
	"github.com/janhoon/vizor/querier/model"
)

const (
	fallbackNamespace = "AWS/EC2"
	defaultStat       = "Average"
	minPeriodSeconds  = 60
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// metricQuery is one parsed metric request, either a named metric or a
// metric math expression.
type metricQuery struct {
	namespace  string
	metricName string
	dimensions map[string]string
	stat       string
	period     int64
	unit       string
	label      string
	expression string
}

// parseMetricQuery accepts a JSON object or the "namespace:metric_name"
// shorthand. Namespace resolution order is explicit value, configured
// default, hard-coded fallback.
func parseMetricQuery(q string, configuredNamespace string) (metricQuery, error) {
	q = strings.TrimSpace(q)
	mq := metricQuery{}
	if strings.HasPrefix(q, "{") {
		m := authcfg.Map{}
		if err := json.UnmarshalFromString(q, &m); err != nil {
			return mq, &model.ParseError{Op: "parse metric query", Err: err}
		}
		mq.namespace = m.String("namespace")
		mq.metricName = m.String("metric_name", "metricName", "metric")
		mq.dimensions = m.StringMap("dimensions")
		mq.stat = m.String("stat", "statistic")
		mq.unit = m.String("unit")
		mq.label = m.String("label")
		mq.expression = m.String("expression", "expr")
		if p, ok := m.Int64("period"); ok {
			mq.period = p
		}
	} else if q != "" {
		parts := strings.SplitN(q, ":", 2)
		if len(parts) == 2 {
			mq.namespace = strings.TrimSpace(parts[0])
			mq.metricName = strings.TrimSpace(parts[1])
		} else {
			mq.metricName = strings.TrimSpace(parts[0])
		}
	}
	if mq.namespace == "" {
		mq.namespace = configuredNamespace
	}
	if mq.namespace == "" {
		mq.namespace = fallbackNamespace
	}
	if mq.stat == "" {
		mq.stat = defaultStat
	}
	if mq.expression == "" && mq.metricName == "" {
		return mq, &model.ParseError{Op: "parse metric query", Err: errors.New("metric name or expression is required")}
	}
	return mq, nil
}

// toDataQuery renders the GetMetricData query. A missing period is derived
// from the step and floored at one minute. Dimensions go out sorted by key
// so the request is deterministic.
func (mq metricQuery) toDataQuery(step time.Duration) *cloudwatch.MetricDataQuery {
	period := mq.period
	if period == 0 {
		period = int64(step / time.Second)
	}
	if period < minPeriodSeconds {
		period = minPeriodSeconds
	}
	dq := &cloudwatch.MetricDataQuery{
		Id:         aws.String("q0"),
		ReturnData: aws.Bool(true),
	}
	if mq.label != "" {
		dq.Label = aws.String(mq.label)
	}
	if mq.expression != "" {
		dq.Expression = aws.String(mq.expression)
		dq.Period = aws.Int64(period)
		return dq
	}
	metric := &cloudwatch.Metric{
		Namespace:  aws.String(mq.namespace),
		MetricName: aws.String(mq.metricName),
	}
	dims := maps.Keys(mq.dimensions)
	slices.Sort(dims)
	for _, k := range dims {
		metric.Dimensions = append(metric.Dimensions, &cloudwatch.Dimension{
			Name:  aws.String(k),
			Value: aws.String(mq.dimensions[k]),
		})
	}
	stat := &cloudwatch.MetricStat{
		Metric: metric,
		Period: aws.Int64(period),
		Stat:   aws.String(mq.stat),
	}
	if mq.unit != "" {
		stat.Unit = aws.String(mq.unit)
	}
	dq.MetricStat = stat
	return dq
}

// seriesLabels is the label set of one returned series. Named metrics carry
// the full identity, expression series only a name.
func (mq metricQuery) seriesLabels(resultLabel string) map[string]string {
	if mq.expression != "" {
		name := mq.label
		if name == "" {
			name = resultLabel
		}
		if name == "" {
			name = "expression"
		}
		return map[string]string{"__name__": name}
	}
	labels := map[string]string{
		"__name__":    mq.metricName,
		"metric_name": mq.metricName,
		"namespace":   mq.namespace,
		"stat":        mq.stat,
	}
	for k, v := range mq.dimensions {
		labels[k] = v
	}
	return labels
}

func (a *Adapter) queryMetrics(ctx context.Context, q string, start time.Time, end time.Time,
	step time.Duration, limit int64) (*model.QueryResult, error) {
	mq, err := parseMetricQuery(q, a.settings.defaultNamespace)
	if err != nil {
		return nil, err
	}
	input := &cloudwatch.GetMetricDataInput{
		StartTime:         aws.Time(start),
		EndTime:           aws.Time(end),
		ScanBy:            aws.String(cloudwatch.ScanByTimestampAscending),
		MetricDataQueries: []*cloudwatch.MetricDataQuery{mq.toDataQuery(step)},
	}
	if limit > 0 {
		input.MaxDatapoints = aws.Int64(limit)
	}
	set := signal.NewSeriesSet()
	for {
		out, err := a.metrics.GetMetricDataWithContext(ctx, input)
		if err != nil {
			return nil, &model.TransportError{Op: "GetMetricData", Err: err}
		}
		for _, res := range out.MetricDataResults {
			if res == nil {
				continue
			}
			labels := mq.seriesLabels(aws.StringValue(res.Label))
			n := len(res.Timestamps)
			if len(res.Values) < n {
				n = len(res.Values)
			}
			for i := 0; i < n; i++ {
				ts := aws.TimeValue(res.Timestamps[i])
				val := aws.Float64Value(res.Values[i])
				set.Add(labels, float64(ts.Unix()), strconv.FormatFloat(val, 'f', -1, 64))
			}
		}
		if aws.StringValue(out.NextToken) == "" {
			break
		}
		input.NextToken = out.NextToken
	}
	return signal.MatrixResult(set.Matrix()), nil
}
