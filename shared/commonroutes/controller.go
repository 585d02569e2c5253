package commonroutes

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/janhoon/vizor/querier/config"
	"github.com/janhoon/vizor/querier/utils/logger"
)

// Build metadata, overridable via ldflags.
var (
	Version = "dev"
	Branch  = "main"
)

// Ready reports process readiness. Datasource health is deliberately not
// part of it, a flapping backend must not take the service out of rotation.
// Use /api/v1/datasources/{name}/health for that.
func Ready(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(200)
	w.Write([]byte("OK"))
}

// ConfigHandler returns the running configuration with secrets redacted.
func ConfigHandler(cfg *config.Settings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(cfg)
		if err != nil {
			logger.Error(err.Error())
			w.WriteHeader(500)
			w.Write([]byte("Internal Server Error"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(b)
	}
}

func BuildInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w).Encode(map[string]string{
		"version": Version,
		"branch":  Branch,
	})
}
