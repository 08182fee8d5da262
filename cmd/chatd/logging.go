package main

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"chatd/internal/common/fsutil"
	"chatd/internal/config"
)

// newLogger builds the process logger: console or JSON on stderr, plus a
// rotated JSON file when lc.File is set. The returned closer flushes the file.
func newLogger(lc config.LogConfig, stderr io.Writer) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(lc.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var console io.Writer = stderr
	if lc.Format != "json" {
		console = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
	}

	writers := []io.Writer{console}
	var closer io.Closer = nopCloser{}
	if lc.File != "" {
		path, err := fsutil.EnsureParentDir(lc.File)
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		lj := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
			MaxAge:     lc.MaxAgeDays,
			Compress:   true,
		}
		writers = append(writers, lj)
		closer = lj
	}

	l := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Str("service", "chatd").
		Logger()
	return l, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
