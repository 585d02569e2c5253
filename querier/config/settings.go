package config

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	validator "gopkg.in/go-playground/validator.v9"
	"gopkg.in/yaml.v2"

	"github.com/janhoon/vizor/querier/model"
	"github.com/janhoon/vizor/querier/utils/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type BasicAuth struct {
	Username string `yaml:"username" json:"username,omitempty"`
	Password string `yaml:"password" json:"-"`
}

type CorsSettings struct {
	Enable bool   `yaml:"enable" json:"enable"`
	Origin string `yaml:"origin" json:"origin,omitempty"`
}

type HTTPSettings struct {
	Host      string       `yaml:"host" json:"host"`
	Port      int          `yaml:"port" json:"port" validate:"gte=0,lte=65535"`
	BasicAuth BasicAuth    `yaml:"basic_auth" json:"basicAuth"`
	Cors      CorsSettings `yaml:"cors" json:"cors"`
}

type QuerySettings struct {
	// TimeoutS is the server side deadline of one datasource query. Zero
	// disables it, leaving the client connection as the only bound.
	TimeoutS      int `yaml:"timeout_s" json:"timeoutS" validate:"gte=0"`
	MaxConcurrent int `yaml:"max_concurrent" json:"maxConcurrent" validate:"gte=0"`
}

type WatchdogSettings struct {
	Enable    bool `yaml:"enable" json:"enable"`
	IntervalS int  `yaml:"interval_s" json:"intervalS" validate:"gte=0"`
}

type DataSourceSettings struct {
	Name     string `yaml:"name" json:"name" validate:"required"`
	Type     string `yaml:"type" json:"type" validate:"required"`
	URL      string `yaml:"url" json:"url,omitempty"`
	OrgID    int64  `yaml:"org_id" json:"orgId,omitempty"`
	AuthType string `yaml:"auth_type" json:"authType,omitempty"`
	// AuthConfig is passed to the adapter as an opaque JSON blob and never
	// rendered back out.
	AuthConfig map[string]interface{} `yaml:"auth_config" json:"-"`
}

type Settings struct {
	HTTP        HTTPSettings         `yaml:"http" json:"http"`
	Log         logger.Settings      `yaml:"log" json:"log"`
	Query       QuerySettings        `yaml:"query" json:"query"`
	Watchdog    WatchdogSettings     `yaml:"watchdog" json:"watchdog"`
	DataSources []DataSourceSettings `yaml:"datasources" json:"datasources" validate:"dive"`
}

func defaultSettings() *Settings {
	return &Settings{
		HTTP:     HTTPSettings{Host: "0.0.0.0", Port: 3000},
		Log:      logger.Settings{Level: "info", Stdout: true},
		Query:    QuerySettings{TimeoutS: 300, MaxConcurrent: 8},
		Watchdog: WatchdogSettings{Enable: true, IntervalS: 60},
	}
}

// Load reads the YAML configuration. An empty path keeps the defaults so the
// service can boot with nothing provisioned.
func Load(path string) (*Settings, error) {
	s := defaultSettings()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}
	if err := validator.New().Struct(s); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}
	seen := map[string]bool{}
	for _, ds := range s.DataSources {
		if seen[ds.Name] {
			return nil, errors.Errorf("duplicate datasource name %q", ds.Name)
		}
		seen[ds.Name] = true
	}
	return s, nil
}

// Provisioned converts the datasource section into registry descriptors,
// serializing each auth_config mapping to the JSON blob adapters expect.
func (s *Settings) Provisioned() ([]model.DataSource, error) {
	out := make([]model.DataSource, 0, len(s.DataSources))
	for i, ds := range s.DataSources {
		blob := ""
		if len(ds.AuthConfig) > 0 {
			b, err := json.Marshal(cleanYAMLValue(ds.AuthConfig))
			if err != nil {
				return nil, errors.Wrapf(err, "datasource %s auth config", ds.Name)
			}
			blob = string(b)
		}
		orgID := ds.OrgID
		if orgID == 0 {
			orgID = 1
		}
		out = append(out, model.DataSource{
			ID:         int64(i + 1),
			OrgID:      orgID,
			Name:       ds.Name,
			Type:       ds.Type,
			URL:        ds.URL,
			AuthType:   ds.AuthType,
			AuthConfig: blob,
		})
	}
	return out, nil
}

// cleanYAMLValue rewrites the interface-keyed maps yaml.v2 produces into
// string-keyed ones so the value survives JSON marshaling.
func cleanYAMLValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[fmt.Sprint(k)] = cleanYAMLValue(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, item := range t {
			out[k] = cleanYAMLValue(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, 0, len(t))
		for _, item := range t {
			out = append(out, cleanYAMLValue(item))
		}
		return out
	default:
		return v
	}
}
