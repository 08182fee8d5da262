// Package dispatch routes conversational turns to the local runtime or a
// remote provider and records both sides of each turn in the session store.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/prompt"
	"chatd/internal/provider"
	"chatd/internal/session"
	"chatd/internal/stream"
	"chatd/pkg/types"
)

// Runtime is the local generation backend.
type Runtime interface {
	Generate(ctx context.Context, prompt, model string) string
	GenerateStream(ctx context.Context, prompt, model string) *stream.Stream
	CurrentModel() string
}

// Turn is one user message and where to send it.
type Turn struct {
	// SessionID may be empty, in which case a new session is created.
	SessionID string
	Message   string
	Target    types.ModelIdentity
	// Online routes the turn to Target.Backend's remote provider.
	Online bool
}

// Reply is the outcome of a non-streaming turn.
type Reply struct {
	SessionID string
	Text      string
	// Model names the local model or remote provider that served the turn.
	Model     string
	Timestamp time.Time
}

// Config wires a Dispatcher.
type Config struct {
	Store    *session.Store
	Runtime  Runtime
	Adapters []provider.Adapter
	// Keys holds the API key per remote backend. Missing keys are passed as "".
	Keys     map[types.Backend]string
	Preamble string
	Logger   *zerolog.Logger
}

// Dispatcher handles turns. Turns of one session never interleave; turns of
// different sessions run concurrently.
type Dispatcher struct {
	store    *session.Store
	runtime  Runtime
	adapters map[types.Backend]provider.Adapter
	keys     map[types.Backend]string
	preamble string
	locks    *keyedMutex
	log      zerolog.Logger
	now      func() time.Time
}

// DefaultPreamble is the system preamble used for local prompts.
const DefaultPreamble = "You are JARVIS, an advanced AI assistant. Be helpful, accurate and concise."

// New returns a Dispatcher.
func New(cfg Config) *Dispatcher {
	d := &Dispatcher{
		store:    cfg.Store,
		runtime:  cfg.Runtime,
		adapters: make(map[types.Backend]provider.Adapter, len(cfg.Adapters)),
		keys:     cfg.Keys,
		preamble: cfg.Preamble,
		locks:    newKeyedMutex(),
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	if d.store == nil {
		d.store = session.NewStore(0)
	}
	if d.preamble == "" {
		d.preamble = DefaultPreamble
	}
	if cfg.Logger != nil {
		d.log = *cfg.Logger
	}
	d.log = d.log.With().Str("component", "dispatch").Logger()
	for _, a := range cfg.Adapters {
		d.adapters[a.Backend()] = a
	}
	return d
}

// Store returns the session store the dispatcher records turns in.
func (d *Dispatcher) Store() *session.Store { return d.store }

// HandleTurn records the user message, generates a reply and records it.
// It always returns a reply; failures are reported in Reply.Text.
func (d *Dispatcher) HandleTurn(ctx context.Context, t Turn) Reply {
	if t.SessionID == "" {
		t.SessionID = d.store.NewID()
	}
	unlock, err := d.locks.Lock(ctx, t.SessionID)
	if err != nil {
		return d.abandoned(t, err)
	}
	defer unlock()

	prior := d.store.History(t.SessionID)
	d.store.Append(t.SessionID, types.Message{Role: types.RoleUser, Content: t.Message})

	model := d.servedBy(t)
	text := d.generate(ctx, t, model, prior)

	ts := d.now()
	d.store.Append(t.SessionID, types.Message{Role: types.RoleAssistant, Content: text, Timestamp: ts})
	return Reply{SessionID: t.SessionID, Text: text, Model: model, Timestamp: ts}
}

// HandleTurnStream is the streaming form of HandleTurn. The returned stream
// yields the reply in fragments; the assistant turn is recorded when the
// stream ends, including when the consumer closes it early. The session
// stays locked until then.
func (d *Dispatcher) HandleTurnStream(ctx context.Context, t Turn) (string, *stream.Stream) {
	if t.SessionID == "" {
		t.SessionID = d.store.NewID()
	}
	unlock, err := d.locks.Lock(ctx, t.SessionID)
	if err != nil {
		r := d.abandoned(t, err)
		return r.SessionID, stream.Single(ctx, r.Text)
	}

	prior := d.store.History(t.SessionID)
	d.store.Append(t.SessionID, types.Message{Role: types.RoleUser, Content: t.Message})
	model := d.servedBy(t)

	s := stream.New(ctx, func(ctx context.Context, emit func(types.StreamChunk) bool) {
		var b strings.Builder
		defer func() {
			if r := recover(); r != nil {
				d.log.Error().Interface("panic", r).Str("event", "stream_panic").Str("session", t.SessionID).Msg("turn panicked")
				if b.Len() == 0 {
					b.WriteString(fmt.Sprintf("Error: %v", r))
				}
			}
			text := b.String()
			if text == "" {
				text = "Error: generation cancelled"
			}
			d.store.Append(t.SessionID, types.Message{Role: types.RoleAssistant, Content: text})
			unlock()
		}()

		if t.Online {
			text := d.generate(ctx, t, model, prior)
			b.WriteString(text)
			emit(types.StreamChunk{Text: text, Done: true})
			return
		}
		src := d.runtime.GenerateStream(ctx, prompt.Assemble(d.preamble, prior, t.Message), t.Target.Name)
		defer src.Close()
		for c := range src.Chunks() {
			b.WriteString(c.Text)
			if !emit(c) || c.Done {
				return
			}
		}
	})
	return t.SessionID, s
}

// abandoned is the reply for a turn whose caller left while it waited for
// its session. Nothing is recorded.
func (d *Dispatcher) abandoned(t Turn, err error) Reply {
	d.log.Debug().Err(err).Str("event", "turn_abandoned").Str("session", t.SessionID).Msg("caller gone before turn started")
	return Reply{SessionID: t.SessionID, Text: "Error: request cancelled", Model: d.servedBy(t), Timestamp: d.now()}
}

// servedBy names the backend or model that will serve t.
func (d *Dispatcher) servedBy(t Turn) string {
	if t.Online {
		return string(t.Target.Backend)
	}
	if t.Target.Name != "" {
		return t.Target.Name
	}
	return d.runtime.CurrentModel()
}

// generate produces reply text for t. Panics in a backend are converted to
// error text so one turn cannot break the session.
func (d *Dispatcher) generate(ctx context.Context, t Turn, model string, prior []types.Message) (text string) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error().Interface("panic", r).Str("event", "turn_panic").Str("session", t.SessionID).Msg("turn panicked")
			text = fmt.Sprintf("Error: %v", r)
		}
	}()
	if !t.Online {
		return d.runtime.Generate(ctx, prompt.Assemble(d.preamble, prior, t.Message), t.Target.Name)
	}
	switch b := t.Target.Backend; b {
	case types.BackendClaude, types.BackendOpenAI, types.BackendDeepSeek:
		a, ok := d.adapters[b]
		if !ok {
			return "Error processing with " + string(b) + ": provider not configured"
		}
		return a.Complete(ctx, t.Message, prior, d.keys[b])
	case types.BackendLocal:
		return d.runtime.Generate(ctx, prompt.Assemble(d.preamble, prior, t.Message), t.Target.Name)
	default:
		return "Error processing with " + string(b) + ": unsupported online provider"
	}
}
