package cloudwatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/stretchr/testify/assert"

	"github.com/janhoon/vizor/querier/model"
)

var (
	testStart = time.Unix(1700000000, 0).UTC()
	testEnd   = testStart.Add(time.Hour)
	testStep  = 5 * time.Minute
)

func TestParseMetricQueryShorthand(t *testing.T) {
	mq, err := parseMetricQuery("AWS/RDS:CPUUtilization", "")
	assert.NoError(t, err)
	assert.Equal(t, "AWS/RDS", mq.namespace)
	assert.Equal(t, "CPUUtilization", mq.metricName)
	assert.Equal(t, defaultStat, mq.stat)

	// bare metric name picks up the configured namespace
	mq, err = parseMetricQuery("CPUUtilization", "Custom/App")
	assert.NoError(t, err)
	assert.Equal(t, "Custom/App", mq.namespace)

	// and the hard-coded fallback when nothing is configured
	mq, err = parseMetricQuery("CPUUtilization", "")
	assert.NoError(t, err)
	assert.Equal(t, fallbackNamespace, mq.namespace)

	_, err = parseMetricQuery("", "")
	var pe *model.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestParseMetricQueryJSON(t *testing.T) {
	mq, err := parseMetricQuery(`{
		"namespace":"AWS/EC2",
		"metricName":"NetworkIn",
		"dimensions":{"InstanceId":"i-1"},
		"stat":"Sum",
		"period":120,
		"unit":"Bytes",
		"label":"net in"
	}`, "")
	assert.NoError(t, err)
	assert.Equal(t, "AWS/EC2", mq.namespace)
	assert.Equal(t, "NetworkIn", mq.metricName)
	assert.Equal(t, map[string]string{"InstanceId": "i-1"}, mq.dimensions)
	assert.Equal(t, "Sum", mq.stat)
	assert.Equal(t, int64(120), mq.period)
	assert.Equal(t, "Bytes", mq.unit)
	assert.Equal(t, "net in", mq.label)

	mq, err = parseMetricQuery(`{"expression":"SEARCH('{AWS/EC2} MetricName=\"CPUUtilization\"', 'Average')"}`, "")
	assert.NoError(t, err)
	assert.NotEmpty(t, mq.expression)

	_, err = parseMetricQuery(`{"namespace":"AWS/EC2"}`, "")
	var pe *model.ParseError
	assert.ErrorAs(t, err, &pe)

	_, err = parseMetricQuery(`{broken`, "")
	assert.ErrorAs(t, err, &pe)
}

func TestToDataQueryPeriod(t *testing.T) {
	mq, _ := parseMetricQuery("CPUUtilization", "")
	dq := mq.toDataQuery(5 * time.Minute)
	assert.Equal(t, int64(300), aws.Int64Value(dq.MetricStat.Period))

	// periods under a minute floor at a minute
	dq = mq.toDataQuery(10 * time.Second)
	assert.Equal(t, int64(60), aws.Int64Value(dq.MetricStat.Period))

	// explicit period wins over the step
	mq.period = 120
	dq = mq.toDataQuery(5 * time.Minute)
	assert.Equal(t, int64(120), aws.Int64Value(dq.MetricStat.Period))
}

func TestToDataQueryDimensionsSorted(t *testing.T) {
	mq := metricQuery{
		namespace:  "AWS/EC2",
		metricName: "CPUUtilization",
		stat:       "Average",
		dimensions: map[string]string{"b": "2", "a": "1", "c": "3"},
	}
	dq := mq.toDataQuery(time.Minute)
	names := make([]string, 0, 3)
	for _, d := range dq.MetricStat.Metric.Dimensions {
		names = append(names, aws.StringValue(d.Name))
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
	assert.Equal(t, "q0", aws.StringValue(dq.Id))
	assert.True(t, aws.BoolValue(dq.ReturnData))
}

func TestToDataQueryExpression(t *testing.T) {
	mq := metricQuery{expression: "m1 / m2", stat: "Average"}
	dq := mq.toDataQuery(time.Minute)
	assert.Equal(t, "m1 / m2", aws.StringValue(dq.Expression))
	assert.Nil(t, dq.MetricStat)
	assert.Equal(t, int64(60), aws.Int64Value(dq.Period))
}

func TestSeriesLabels(t *testing.T) {
	mq := metricQuery{
		namespace:  "AWS/EC2",
		metricName: "CPUUtilization",
		stat:       "Maximum",
		dimensions: map[string]string{"InstanceId": "i-1"},
	}
	assert.Equal(t, map[string]string{
		"__name__":    "CPUUtilization",
		"metric_name": "CPUUtilization",
		"namespace":   "AWS/EC2",
		"stat":        "Maximum",
		"InstanceId":  "i-1",
	}, mq.seriesLabels("ignored"))

	expr := metricQuery{expression: "m1"}
	assert.Equal(t, map[string]string{"__name__": "from aws"}, expr.seriesLabels("from aws"))
	expr.label = "my label"
	assert.Equal(t, map[string]string{"__name__": "my label"}, expr.seriesLabels("from aws"))
	bare := metricQuery{expression: "m1"}
	assert.Equal(t, map[string]string{"__name__": "expression"}, bare.seriesLabels(""))
}

func TestQueryMetricsPaginates(t *testing.T) {
	var inputs []*cloudwatch.GetMetricDataInput
	fm := &fakeMetricsAPI{
		getMetricData: func(in *cloudwatch.GetMetricDataInput) (*cloudwatch.GetMetricDataOutput, error) {
			inputs = append(inputs, in)
			if in.NextToken == nil {
				return &cloudwatch.GetMetricDataOutput{
					MetricDataResults: []*cloudwatch.MetricDataResult{{
						Label:      aws.String("CPUUtilization"),
						Timestamps: []*time.Time{aws.Time(testStart), aws.Time(testStart.Add(5 * time.Minute))},
						Values:     []*float64{aws.Float64(1), aws.Float64(2.5)},
					}},
					NextToken: aws.String("page2"),
				}, nil
			}
			return &cloudwatch.GetMetricDataOutput{
				MetricDataResults: []*cloudwatch.MetricDataResult{{
					Label:      aws.String("CPUUtilization"),
					Timestamps: []*time.Time{aws.Time(testStart.Add(10 * time.Minute))},
					Values:     []*float64{aws.Float64(3)},
				}},
			}, nil
		},
	}
	a := &Adapter{settings: settings{region: "us-east-1"}, metrics: fm}

	res, err := a.Query(context.Background(),
		`{"namespace":"AWS/EC2","metric_name":"CPUUtilization","dimensions":{"InstanceId":"i-1"},"stat":"Maximum"}`,
		testStart, testEnd, testStep, 100)
	assert.NoError(t, err)
	assert.Len(t, inputs, 2)

	first := inputs[0]
	assert.Equal(t, cloudwatch.ScanByTimestampAscending, aws.StringValue(first.ScanBy))
	assert.Equal(t, int64(100), aws.Int64Value(first.MaxDatapoints))
	assert.Equal(t, testStart, aws.TimeValue(first.StartTime))
	assert.Equal(t, testEnd, aws.TimeValue(first.EndTime))
	q0 := first.MetricDataQueries[0]
	assert.Equal(t, "AWS/EC2", aws.StringValue(q0.MetricStat.Metric.Namespace))
	assert.Equal(t, "CPUUtilization", aws.StringValue(q0.MetricStat.Metric.MetricName))
	assert.Equal(t, "Maximum", aws.StringValue(q0.MetricStat.Stat))
	assert.Equal(t, "page2", aws.StringValue(inputs[1].NextToken))

	// pages collapse into one ascending series
	assert.Len(t, res.Data.Result, 1)
	series := res.Data.Result[0]
	assert.Equal(t, "CPUUtilization", series.Metric["__name__"])
	assert.Equal(t, "i-1", series.Metric["InstanceId"])
	assert.Equal(t, []model.MetricPoint{
		{Timestamp: 1700000000, Value: "1"},
		{Timestamp: 1700000300, Value: "2.5"},
		{Timestamp: 1700000600, Value: "3"},
	}, series.Values)
}

func TestQueryMetricsTransportError(t *testing.T) {
	fm := &fakeMetricsAPI{
		getMetricData: func(in *cloudwatch.GetMetricDataInput) (*cloudwatch.GetMetricDataOutput, error) {
			return nil, errors.New("throttled")
		},
	}
	a := &Adapter{settings: settings{region: "us-east-1"}, metrics: fm}
	_, err := a.Query(context.Background(), "CPUUtilization", testStart, testEnd, testStep, 0)
	var te *model.TransportError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, "GetMetricData", te.Op)
}
