package model

import (
	"context"
	"time"
)

const (
	DataSourceClickHouse = "clickhouse"
	DataSourceCloudWatch = "cloudwatch"
)

// DataSource is the provisioned descriptor of one backend connection.
// AuthConfig is an opaque JSON blob interpreted by the adapter for Type and
// is never serialized back to API clients.
type DataSource struct {
	ID         int64  `json:"id"`
	OrgID      int64  `json:"orgId"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	URL        string `json:"url,omitempty"`
	AuthType   string `json:"authType,omitempty"`
	AuthConfig string `json:"-"`
}

// Adapter is the backend contract. Implementations hold immutable
// configuration only, so one instance can serve concurrent queries.
type Adapter interface {
	// Query runs queryString for the default signal of the backend.
	Query(ctx context.Context, queryString string, start time.Time, end time.Time,
		step time.Duration, limit int64) (*QueryResult, error)
	// QueryWithSignal runs queryString for an explicit signal kind. An empty
	// signal falls back to the backend default.
	QueryWithSignal(ctx context.Context, queryString string, signal string,
		start time.Time, end time.Time, step time.Duration, limit int64) (*QueryResult, error)
	// TestConnection probes the backend without running a real query.
	TestConnection(ctx context.Context) error
}
