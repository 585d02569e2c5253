package authcfg

import (
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/janhoon/vizor/querier/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Map is a decoded datasource auth blob. Accessors take every accepted key
// spelling, so adapters stay tolerant to snake_case and camelCase configs.
type Map map[string]interface{}

// Parse decodes the JSON auth blob of a datasource. An empty blob is a valid
// empty config.
func Parse(blob string) (Map, error) {
	if strings.TrimSpace(blob) == "" {
		return Map{}, nil
	}
	m := Map{}
	if err := json.UnmarshalFromString(blob, &m); err != nil {
		return nil, &model.ParseError{Op: "parse auth config", Err: err}
	}
	return m, nil
}

// String returns the first non-empty value among keys, rendered as a string.
func (m Map) String(keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		if s := asString(v); s != "" {
			return s
		}
	}
	return ""
}

// StringSlice returns the first list value among keys with every element
// trimmed and empties dropped. A plain comma separated string is accepted
// too.
func (m Map) StringSlice(keys ...string) []string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		var raw []string
		switch t := v.(type) {
		case []interface{}:
			for _, item := range t {
				raw = append(raw, asString(item))
			}
		case string:
			raw = strings.Split(t, ",")
		default:
			continue
		}
		out := make([]string, 0, len(raw))
		for _, s := range raw {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// Int64 returns the first numeric value among keys.
func (m Map) Int64(keys ...string) (int64, bool) {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return int64(t), true
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// Object returns the first nested object among keys.
func (m Map) Object(keys ...string) map[string]interface{} {
	for _, k := range keys {
		if v, ok := m[k].(map[string]interface{}); ok {
			return v
		}
	}
	return nil
}

// StringMap returns the first nested object among keys with all values
// rendered as strings. Unrepresentable values are dropped.
func (m Map) StringMap(keys ...string) map[string]string {
	obj := m.Object(keys...)
	if obj == nil {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if s := asString(v); s != "" {
			out[k] = s
		}
	}
	return out
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}
