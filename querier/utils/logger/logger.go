package logger

import (
	"log"
	"os"

	"github.com/sirupsen/logrus"
)

var Logger = logrus.New()

// Settings is the log section of the service configuration.
type Settings struct {
	Level  string `yaml:"level" json:"level"`
	Json   bool   `yaml:"json" json:"json"`
	Stdout bool   `yaml:"stdout" json:"stdout"`
}

// InitLogger configures the global logger from the service configuration.
func InitLogger(cfg Settings) {
	if cfg.Json {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	}
	if cfg.Stdout {
		Logger.SetOutput(os.Stdout)
		log.SetOutput(os.Stdout)
	}
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	if logLevel, err := logrus.ParseLevel(level); err == nil {
		Logger.SetLevel(logLevel)
	} else {
		Logger.Error("Couldn't parse loglevel ", level)
		Logger.SetLevel(logrus.InfoLevel)
	}
}

func Info(args ...interface{}) {
	Logger.Info(args...)
}

func Error(args ...interface{}) {
	Logger.Error(args...)
}

func Debug(args ...interface{}) {
	Logger.Debug(args...)
}
