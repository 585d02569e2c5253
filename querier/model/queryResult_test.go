package model

import (
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
)

func TestMetricPointMarshal(t *testing.T) {
	b, err := jsoniter.Marshal(MetricPoint{Timestamp: 1700000000, Value: "42.5"})
	assert.NoError(t, err)
	assert.Equal(t, `[1700000000,"42.5"]`, string(b))

	b, err = jsoniter.Marshal(MetricPoint{Timestamp: 1700000000.5, Value: "NaN"})
	assert.NoError(t, err)
	assert.Equal(t, `[1700000000.5,"NaN"]`, string(b))

	b, err = jsoniter.Marshal(MetricPoint{Timestamp: 0, Value: ""})
	assert.NoError(t, err)
	assert.Equal(t, `[0,""]`, string(b))
}

func TestQueryResultEnvelope(t *testing.T) {
	res := QueryResult{
		Status:     "success",
		ResultType: ResultTypeMatrix,
		Data: QueryData{
			Result: []MetricResult{{
				Metric: map[string]string{"__name__": "cpu"},
				Values: []MetricPoint{{Timestamp: 1, Value: "2"}},
			}},
		},
	}
	b, err := jsoniter.Marshal(res)
	assert.NoError(t, err)
	assert.Equal(t,
		`{"status":"success","resultType":"matrix","data":{"result":[{"metric":{"__name__":"cpu"},"values":[[1,"2"]]}]}}`,
		string(b))
}

func TestQueryDataOmitsEmptyPayloads(t *testing.T) {
	b, err := jsoniter.Marshal(QueryResult{Status: "success", ResultType: ResultTypeStreams,
		Data: QueryData{Logs: []LogEntry{{Timestamp: "2024-01-01T00:00:00.000000000Z", Line: "hi"}}}})
	assert.NoError(t, err)
	assert.NotContains(t, string(b), `"result"`)
	assert.NotContains(t, string(b), `"traces"`)
	assert.Contains(t, string(b), `"logs"`)
}
