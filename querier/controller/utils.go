package controllerv1

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"runtime/debug"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	promModel "github.com/prometheus/common/model"

	"github.com/janhoon/vizor/querier/model"
	"github.com/janhoon/vizor/querier/utils/logger"
)

var (
	secOrFloatRe      = regexp.MustCompile("^[0-9.]+$")
	errQueryUndefined = errors.New("query is undefined")
)

// ParseTimeSecOrRFC accepts unix seconds, possibly fractional, or RFC3339.
// Empty input returns the default.
func ParseTimeSecOrRFC(raw string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	if secOrFloatRe.MatchString(raw) {
		t, _ := strconv.ParseFloat(raw, 64)
		return time.Unix(0, int64(t*float64(time.Second))), nil
	}
	return time.Parse(time.RFC3339, raw)
}

// parseDuration accepts a number of seconds or a Prometheus duration string.
func parseDuration(s string) (time.Duration, error) {
	if d, err := strconv.ParseFloat(s, 64); err == nil {
		ts := d * float64(time.Second)
		if ts > float64(math.MaxInt64) || ts < float64(math.MinInt64) {
			return 0, fmt.Errorf("cannot parse %q to a valid duration. It overflows int64", s)
		}
		return time.Duration(ts), nil
	}
	if d, err := promModel.ParseDuration(s); err == nil {
		return time.Duration(d), nil
	}
	return 0, fmt.Errorf("cannot parse %q to a valid duration", s)
}

func tamePanic(w http.ResponseWriter, r *http.Request) {
	if err := recover(); err != nil {
		logger.Error("panic:", err, " stack:", string(debug.Stack()))
		logger.Error("query: ", r.URL.String())
		w.WriteHeader(500)
		w.Write([]byte("Internal Server Error"))
		recover()
	}
}

// writeError renders the error envelope: status, errorType, error.
func writeError(code int, msg string, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	json := jsoniter.ConfigFastest
	stream := json.BorrowStream(nil)
	defer json.ReturnStream(stream)

	stream.WriteObjectStart()
	stream.WriteObjectField("status")
	stream.WriteString("error")
	stream.WriteMore()

	stream.WriteObjectField("errorType")
	stream.WriteString("error")
	stream.WriteMore()

	stream.WriteObjectField("error")
	stream.WriteString(msg)
	stream.WriteObjectEnd()

	w.Write(stream.Buffer())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	writeJSONCode(200, v, w)
}

func writeJSONCode(code int, v interface{}, w http.ResponseWriter) {
	b, err := jsoniter.ConfigFastest.Marshal(v)
	if err != nil {
		writeError(500, err.Error(), w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(b)
}

// errorStatus maps adapter errors onto HTTP codes: client mistakes are 400s,
// broken upstreams are 502s, everything else is a 500.
func errorStatus(err error) int {
	var (
		notFound  *model.NotFoundError
		unsup     *model.UnsupportedSignalError
		parse     *model.ParseError
		cfg       *model.ConfigError
		auth      *model.AuthError
		query     *model.QueryError
		transport *model.TransportError
		poll      *model.PollTerminalError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &unsup), errors.As(err, &parse):
		return http.StatusBadRequest
	case errors.As(err, &cfg):
		return http.StatusInternalServerError
	case errors.As(err, &auth), errors.As(err, &query),
		errors.As(err, &transport), errors.As(err, &poll):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
