package httpapi

import (
	"bytes"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is an optional structured logger. If unset, falls back to log.Printf.
var zlog *zerolog.Logger

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = &l }

// loggingLineWriter logs complete NDJSON lines of a streamed reply.
type loggingLineWriter struct {
	buf []byte
}

func (lw *loggingLineWriter) Write(p []byte) (int, error) {
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		if line := string(lw.buf[:idx]); line != "" {
			if zlog != nil {
				zlog.Debug().Str("line", line).Msg("stream>")
			} else {
				log.Printf("stream> %s", line)
			}
		}
		lw.buf = lw.buf[idx+1:]
	}
	return len(p), nil
}

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// defaultLogLevel is read once from CHATD_LOG_LEVEL.
var defaultLogLevel = parseLevel(os.Getenv("CHATD_LOG_LEVEL"))

func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logTurn records the start or end of a chat turn at the request's level.
// status 0 marks the start.
func logTurn(r *http.Request, lvl LogLevel, msg, session string, status int, start time.Time, err error) {
	if lvl < LevelInfo && !(lvl >= LevelError && err != nil) {
		return
	}
	if zlog == nil {
		if status == 0 {
			log.Printf("%s path=%s session=%s", msg, r.URL.Path, session)
		} else {
			log.Printf("%s status=%d session=%s dur=%s err=%v", msg, status, session, time.Since(start), err)
		}
		return
	}
	e := zlog.Info()
	if err != nil {
		e = zlog.Error().Err(err)
	}
	e = e.Str("path", r.URL.Path).Str("session", session)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		e = e.Str("request_id", rid)
	}
	if status != 0 {
		e = e.Int("status", status).Dur("dur", time.Since(start))
	}
	e.Msg(msg)
}
