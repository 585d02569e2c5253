package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/janhoon/vizor/querier"
	"github.com/janhoon/vizor/querier/config"
	"github.com/janhoon/vizor/querier/utils/logger"
	"github.com/janhoon/vizor/querier/utils/middleware"
	"github.com/janhoon/vizor/shared/commonroutes"
)

var appFlags CommandLineFlags

// params for Flags
type CommandLineFlags struct {
	ShowHelpMessage *bool   `json:"help"`
	ShowVersion     *bool   `json:"version"`
	ConfigPath      *string `json:"config_path"`
}

/* init flags */
func initFlags() {
	appFlags.ShowHelpMessage = flag.Bool("help", false, "show help")
	appFlags.ShowVersion = flag.Bool("version", false, "show version")
	appFlags.ConfigPath = flag.String("config", "", "the path to the config file")
	flag.Parse()
}

func boolEnv(key string) (bool, error) {
	val := os.Getenv(key)
	for _, v := range []string{"true", "1", "yes", "y"} {
		if v == val {
			return true, nil
		}
	}
	for _, v := range []string{"false", "0", "no", "n", ""} {
		if v == val {
			return false, nil
		}
	}
	return false, fmt.Errorf("%s value must be one of [no, n, false, 0, yes, y, true, 1]", key)
}

func portEnv(cfg *config.Settings) error {
	if os.Getenv("VIZOR_LOGIN") != "" {
		cfg.HTTP.BasicAuth.Username = os.Getenv("VIZOR_LOGIN")
	}
	if os.Getenv("VIZOR_PASSWORD") != "" {
		cfg.HTTP.BasicAuth.Password = os.Getenv("VIZOR_PASSWORD")
	}
	if os.Getenv("CORS_ALLOW_ORIGIN") != "" {
		cfg.HTTP.Cors.Enable = true
		cfg.HTTP.Cors.Origin = os.Getenv("CORS_ALLOW_ORIGIN")
	}
	if os.Getenv("PORT") != "" {
		port, err := strconv.Atoi(os.Getenv("PORT"))
		if err != nil {
			return fmt.Errorf("invalid port number: %w", err)
		}
		cfg.HTTP.Port = port
	}
	if os.Getenv("HOST") != "" {
		cfg.HTTP.Host = os.Getenv("HOST")
	}
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if os.Getenv("LOG_LEVEL") != "" {
		cfg.Log.Level = os.Getenv("LOG_LEVEL")
	}
	noWatchdog, err := boolEnv("NO_WATCHDOG")
	if err != nil {
		return err
	}
	if noWatchdog {
		cfg.Watchdog.Enable = false
	}
	return nil
}

func main() {
	initFlags()
	if *appFlags.ShowVersion {
		fmt.Printf("vizor %s (%s)\n", commonroutes.Version, commonroutes.Branch)
		return
	}

	cfg, err := config.Load(*appFlags.ConfigPath)
	if err != nil {
		panic(err)
	}
	if err := portEnv(cfg); err != nil {
		panic(err)
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 3000
	}

	app := mux.NewRouter()
	if cfg.HTTP.BasicAuth.Username != "" && cfg.HTTP.BasicAuth.Password != "" {
		app.Use(middleware.BasicAuthMiddleware(cfg.HTTP.BasicAuth.Username,
			cfg.HTTP.BasicAuth.Password))
	}
	app.Use(middleware.AcceptEncodingMiddleware)
	if cfg.HTTP.Cors.Enable {
		app.Use(middleware.CorsMiddleware(cfg.HTTP.Cors.Origin))
	}
	app.Use(middleware.LoggingMiddleware("[{{.status}}] {{.method}} {{.url}} - LAT:{{.latency}}"))
	commonroutes.RegisterCommonRoutes(app, cfg)

	if err := querier.Init(cfg, app); err != nil {
		panic(err)
	}

	initPyro()

	httpURL := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	httpStart(app, httpURL)
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
