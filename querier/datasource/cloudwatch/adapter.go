package cloudwatch

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/aws/aws-sdk-go/service/cloudwatchlogs"
	"github.com/pkg/errors"

	"github.com/janhoon/vizor/querier/datasource/signal"
	"github.com/janhoon/vizor/querier/model"
)

// supported signals: metrics via GetMetricData, logs via Logs Insights.
var supportedSignals = []string{signal.Metrics, signal.Logs}

type metricsAPI interface {
	GetMetricDataWithContext(aws.Context, *cloudwatch.GetMetricDataInput, ...request.Option) (*cloudwatch.GetMetricDataOutput, error)
	ListMetricsWithContext(aws.Context, *cloudwatch.ListMetricsInput, ...request.Option) (*cloudwatch.ListMetricsOutput, error)
}

type logsAPI interface {
	StartQueryWithContext(aws.Context, *cloudwatchlogs.StartQueryInput, ...request.Option) (*cloudwatchlogs.StartQueryOutput, error)
	GetQueryResultsWithContext(aws.Context, *cloudwatchlogs.GetQueryResultsInput, ...request.Option) (*cloudwatchlogs.GetQueryResultsOutput, error)
	DescribeLogGroupsWithContext(aws.Context, *cloudwatchlogs.DescribeLogGroupsInput, ...request.Option) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
}

// Adapter serves metrics and logs from the AWS monitoring APIs. All
// configuration is parsed up front, instances are safe for concurrent use.
type Adapter struct {
	settings settings
	metrics  metricsAPI
	logs     logsAPI
}

func NewAdapter(ds model.DataSource) (model.Adapter, error) {
	st, err := parseSettings(ds.AuthConfig)
	if err != nil {
		return nil, err
	}
	cfg := aws.NewConfig().WithRegion(st.region)
	if st.accessKey != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(st.accessKey, st.secretKey, ""))
	}
	// a datasource URL overrides the AWS endpoint, e.g. for localstack
	if u := strings.TrimSpace(ds.URL); u != "" {
		cfg = cfg.WithEndpoint(u)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create aws session")
	}
	return &Adapter{
		settings: st,
		metrics:  cloudwatch.New(sess),
		logs:     cloudwatchlogs.New(sess),
	}, nil
}

func (a *Adapter) Query(ctx context.Context, queryString string, start time.Time, end time.Time,
	step time.Duration, limit int64) (*model.QueryResult, error) {
	return a.QueryWithSignal(ctx, queryString, "", start, end, step, limit)
}

func (a *Adapter) QueryWithSignal(ctx context.Context, queryString string, sig string,
	start time.Time, end time.Time, step time.Duration, limit int64) (*model.QueryResult, error) {
	resolved, err := signal.Resolve(sig, signal.Metrics, supportedSignals)
	if err != nil {
		return nil, err
	}
	if resolved == signal.Logs {
		return a.queryLogs(ctx, queryString, start, end, limit)
	}
	return a.queryMetrics(ctx, queryString, start, end, step, limit)
}

// TestConnection probes the log groups when any are configured, otherwise it
// lists metrics in the default namespace. The first failing probe wins.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if len(a.settings.logGroups) == 0 {
		ns := a.settings.defaultNamespace
		if ns == "" {
			ns = fallbackNamespace
		}
		_, err := a.metrics.ListMetricsWithContext(ctx, &cloudwatch.ListMetricsInput{
			Namespace: aws.String(ns),
		})
		if err != nil {
			return &model.TransportError{Op: "cloudwatch metrics", Err: err}
		}
		return nil
	}
	for _, group := range a.settings.logGroups {
		out, err := a.logs.DescribeLogGroupsWithContext(ctx, &cloudwatchlogs.DescribeLogGroupsInput{
			LogGroupNamePrefix: aws.String(group),
			Limit:              aws.Int64(1),
		})
		if err != nil {
			return &model.TransportError{Op: "cloudwatch logs", Err: err}
		}
		if len(out.LogGroups) == 0 {
			return errors.Errorf("cloudwatch logs: log group %q not found", group)
		}
	}
	return nil
}
