package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"go-pos/pkg/config"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the standard logrus logger for a service and returns an entry tagged with it.
func Setup(service string, conf config.LoggingConfig) (*log.Entry, error) {
	l := log.StandardLogger()
	if err := Configure(l, conf); err != nil {
		return nil, err
	}
	return l.WithField("service", service), nil
}

func Configure(l *log.Logger, conf config.LoggingConfig) error {
	var out io.Writer = os.Stdout
	if conf.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   conf.File,
			MaxSize:    32, // megabytes
			MaxBackups: 2,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	l.SetOutput(out)

	level := conf.Level
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("unknown logging level %q: %w", conf.Level, err)
	}
	l.SetLevel(lvl)

	if conf.JSON {
		l.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		l.SetFormatter(&log.TextFormatter{
			PadLevelText:    true,
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: time.DateTime,
		})
	}
	return nil
}

// Discard returns an entry that writes nowhere; handy for tests and optional collaborators.
func Discard() *log.Entry {
	l := log.New()
	l.SetOutput(io.Discard)
	return log.NewEntry(l)
}
