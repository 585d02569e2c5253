package querier

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/janhoon/vizor/querier/config"
	"github.com/janhoon/vizor/querier/datasource/clickhouse"
	"github.com/janhoon/vizor/querier/datasource/cloudwatch"
	"github.com/janhoon/vizor/querier/model"
	"github.com/janhoon/vizor/querier/registry"
	apirouterv1 "github.com/janhoon/vizor/querier/router"
	"github.com/janhoon/vizor/querier/service"
	"github.com/janhoon/vizor/querier/utils/logger"
	"github.com/janhoon/vizor/querier/utils/middleware"
	"github.com/janhoon/vizor/querier/watchdog"
)

var ownHttpServer bool = false

// Init wires the query service into app. A nil app makes the package run its
// own HTTP server, useful when embedded standalone.
func Init(cfg *config.Settings, app *mux.Router) error {
	logger.InitLogger(cfg.Log)

	if app == nil {
		app = mux.NewRouter()
		ownHttpServer = true
	}

	registry.RegisterType(model.DataSourceClickHouse, clickhouse.NewAdapter)
	registry.RegisterType(model.DataSourceCloudWatch, cloudwatch.NewAdapter)

	sources, err := cfg.Provisioned()
	if err != nil {
		return err
	}
	reg := registry.New(sources)

	svc := &service.QueryService{
		Registry:      reg,
		MaxConcurrent: cfg.Query.MaxConcurrent,
	}

	applyMiddlewares(cfg, app)
	performV1APIRouting(cfg, app, reg, svc)

	if cfg.Watchdog.Enable {
		watchdog.Init(reg, time.Duration(cfg.Watchdog.IntervalS)*time.Second)
	}

	if ownHttpServer {
		httpStart(app, fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port))
	}
	return nil
}

func applyMiddlewares(cfg *config.Settings, acc *mux.Router) {
	if !ownHttpServer {
		return
	}
	if cfg.HTTP.BasicAuth.Username != "" && cfg.HTTP.BasicAuth.Password != "" {
		acc.Use(middleware.BasicAuthMiddleware(cfg.HTTP.BasicAuth.Username,
			cfg.HTTP.BasicAuth.Password))
	}
	acc.Use(middleware.AcceptEncodingMiddleware)
	if cfg.HTTP.Cors.Enable {
		acc.Use(middleware.CorsMiddleware(cfg.HTTP.Cors.Origin))
	}
	acc.Use(middleware.LoggingMiddleware("[{{.status}}] {{.method}} {{.url}} - LAT:{{.latency}}"))
}

func performV1APIRouting(cfg *config.Settings, acc *mux.Router, reg *registry.Registry, svc *service.QueryService) {
	apirouterv1.RouteQueryApis(acc, svc, time.Duration(cfg.Query.TimeoutS)*time.Second)
	apirouterv1.RouteDataSourceApis(acc, reg, svc)
}

func httpStart(server *mux.Router, httpURL string) {
	logger.Info("Starting service")
	http.Handle("/", server)
	listener, err := net.Listen("tcp", httpURL)
	if err != nil {
		logger.Error("Error creating listener:", err)
		panic(err)
	}
	logger.Info("Server is listening on", httpURL)
	if err := http.Serve(listener, server); err != nil {
		logger.Error("Error serving:", err)
		panic(err)
	}
}
