package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"tracker/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the process-wide logger. It is usable before InitLogger runs.
var Logger = logrus.New()

var once sync.Once

// InitLogger configures level, format and output. When a log file is set the
// output is duplicated to stdout and a size-rotated file.
func InitLogger(cfg config.LogConfig) {
	once.Do(func() {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		Logger.SetLevel(level)

		if strings.EqualFold(cfg.Format, "json") {
			Logger.SetFormatter(&logrus.JSONFormatter{})
		} else {
			Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}

		var out io.Writer = os.Stdout
		if cfg.File != "" {
			out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   cfg.Compress,
			})
		}
		Logger.SetOutput(out)

		Logger.WithFields(logrus.Fields{
			"level": level.String(),
			"file":  cfg.File,
		}).Info("Logger initialized")
	})
}

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	return Logger.WithField("component", component)
}
