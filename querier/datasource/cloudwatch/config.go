package cloudwatch

import (
	"github.com/janhoon/vizor/querier/datasource/authcfg"
	"github.com/janhoon/vizor/querier/model"
)

type settings struct {
	region           string
	accessKey        string
	secretKey        string
	defaultNamespace string
	logGroups        []string
}

// parseSettings decodes the auth blob. Region is mandatory and credential
// keys only make sense as a pair, both are checked before any client is
// built.
func parseSettings(blob string) (settings, error) {
	cfg, err := authcfg.Parse(blob)
	if err != nil {
		return settings{}, err
	}
	st := settings{
		region:           cfg.String("region"),
		accessKey:        cfg.String("access_key", "accessKey", "access_key_id", "accessKeyId"),
		secretKey:        cfg.String("secret_key", "secretKey", "secret_access_key", "secretAccessKey"),
		defaultNamespace: cfg.String("namespace", "default_namespace", "defaultNamespace"),
		logGroups:        dedupe(cfg.StringSlice("log_groups", "logGroups", "log_group_names", "logGroupNames")),
	}
	if st.region == "" {
		return settings{}, &model.ConfigError{Field: "region", Reason: "is required"}
	}
	if (st.accessKey == "") != (st.secretKey == "") {
		return settings{}, &model.ConfigError{Field: "access_key/secret_key", Reason: "must be set together"}
	}
	return st, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
