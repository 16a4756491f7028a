// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"prediction-pool/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	mu   sync.Mutex
	out  io.Writer = os.Stdout
	file *rotatingWriter
)

// Init installs the global logger. With LOG_FILE set, lines go to both stdout and the
// rotating file.
func Init(cfg config.LogConfig) error {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var console io.Writer = os.Stdout
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	sink := console
	var fw *rotatingWriter
	if cfg.File != "" {
		w, err := newRotatingWriter(cfg.File, cfg.MaxMB)
		if err != nil {
			return err
		}
		fw = w
		sink = zerolog.MultiLevelWriter(console, w)
	}

	mu.Lock()
	if file != nil {
		_ = file.Close()
	}
	file = fw
	out = sink
	mu.Unlock()

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(sink).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	return nil
}

// Writer is the sink the global logger writes to, for request loggers built on slog.
func Writer() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return out
}

func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if file == nil {
		return nil
	}
	err := file.Close()
	file = nil
	out = os.Stdout
	return err
}
