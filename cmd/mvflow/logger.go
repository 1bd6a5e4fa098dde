package main

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// cliHook for logging Info level and above to the CLI.
type cliHook struct {
	out io.Writer
}

func (h *cliHook) Levels() []log.Level {
	return []log.Level{log.InfoLevel, log.WarnLevel, log.ErrorLevel, log.FatalLevel, log.PanicLevel}
}

func (h *cliHook) Fire(entry *log.Entry) error {
	line, err := entry.String()
	if err != nil {
		return err
	}
	_, err = io.WriteString(h.out, line)
	return err
}

// setupLogger returns a logger writing JSON records to a rotating file
// under logPath and info and above to stderr. An empty logPath disables the
// file.
func setupLogger(logPath, level string) (*log.Logger, error) {
	logger := log.New()
	logger.SetFormatter(&log.JSONFormatter{
		TimestampFormat: time.RFC1123Z,
	})

	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)

	if logPath == "" {
		logger.SetOutput(io.Discard)
	} else {
		// Rotating file logger setup
		logger.SetOutput(&lumberjack.Logger{
			Filename:   filepath.ToSlash(path.Join(logPath, "/mvflow.log")),
			MaxSize:    5, // in MB
			MaxBackups: 10,
			MaxAge:     30, // in days
			Compress:   true,
		})
	}

	logger.AddHook(&cliHook{out: os.Stderr})
	return logger, nil
}
