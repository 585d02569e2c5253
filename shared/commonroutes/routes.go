package commonroutes

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/janhoon/vizor/querier/config"
)

// RegisterCommonRoutes registers the common routes to the given mux.
func RegisterCommonRoutes(app *mux.Router, cfg *config.Settings) {
	app.HandleFunc("/ready", Ready).Methods("GET")
	app.HandleFunc("/config", ConfigHandler(cfg)).Methods("GET")
	app.Handle("/metrics", promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer,
		promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
			DisableCompression: true,
		}),
	)).Methods("GET")
	app.HandleFunc("/api/status/buildinfo", BuildInfo).Methods("GET")
}
