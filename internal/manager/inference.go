package manager

import (
	"context"
	"strconv"

	"chatd/internal/stream"
	"chatd/pkg/types"
)

const (
	msgUnavailable = "Error: Ollama service is not available"
	msgNoResponse  = "No response generated"
)

// generate runs a non-streaming generation. An empty model selects the
// current model.
func (m *Manager) generate(ctx context.Context, prompt, model string) (string, error) {
	if !m.EnsureRunning(ctx) {
		return "", ErrUnavailable("runtime not running")
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
	defer cancel()
	return m.client.generate(ctx, m.resolveModel(model), prompt, m.cfg.Params)
}

// Generate returns the runtime's reply to prompt. Failures are returned as
// display text starting with "Error:".
func (m *Manager) Generate(ctx context.Context, prompt, model string) string {
	text, err := m.generate(ctx, prompt, model)
	generationsTotal.WithLabelValues("single", outcome(err == nil)).Inc()
	if err != nil {
		m.recordErr(err)
		m.log.Error().Err(err).Str("event", "generate_failed").Str("model", m.resolveModel(model)).Msg("generate")
		return errorText(err)
	}
	if text == "" {
		return msgNoResponse
	}
	return text
}

// GenerateStream streams the runtime's reply to prompt. Fragments arrive in
// order and the last chunk has Done set. Failures are delivered as a final
// chunk carrying error text. Closing the stream cancels the request.
func (m *Manager) GenerateStream(ctx context.Context, prompt, model string) *stream.Stream {
	model = m.resolveModel(model)
	return stream.New(ctx, func(ctx context.Context, emit func(types.StreamChunk) bool) {
		if !m.EnsureRunning(ctx) {
			generationsTotal.WithLabelValues("stream", outcome(false)).Inc()
			emit(types.StreamChunk{Text: msgUnavailable, Done: true})
			return
		}
		rctx, cancel := context.WithTimeout(ctx, m.cfg.RequestTimeout)
		defer cancel()
		finished := false
		err := m.client.generateStream(rctx, model, prompt, m.cfg.Params, func(text string, done bool) bool {
			finished = done
			return emit(types.StreamChunk{Text: text, Done: done})
		})
		generationsTotal.WithLabelValues("stream", outcome(err == nil)).Inc()
		if err == nil || finished {
			return
		}
		if ctx.Err() != nil {
			// Consumer went away; nobody is left to read an error chunk.
			return
		}
		m.recordErr(err)
		m.log.Error().Err(err).Str("event", "generate_stream_failed").Str("model", model).Msg("generate stream")
		emit(types.StreamChunk{Text: errorText(err), Done: true})
	})
}

// errorText renders err the way replies report failures.
func errorText(err error) string {
	if IsUnavailable(err) {
		return msgUnavailable
	}
	if code, ok := IsRuntimeStatus(err); ok {
		return "Error: Failed to generate response (Status: " + strconv.Itoa(code) + ")"
	}
	if IsTimeout(err) {
		return "Error: request to Ollama timed out"
	}
	return "Error: " + err.Error()
}
