// Package stream provides a cancellable, ordered sequence of reply chunks
// backed by a single producer goroutine.
package stream

import (
	"context"
	"strings"
	"sync"

	"chatd/pkg/types"
)

// Producer writes chunks through emit until it is done or emit returns
// false, which means the consumer went away and the producer must return.
type Producer func(ctx context.Context, emit func(types.StreamChunk) bool)

// Stream is a read-once sequence of chunks. The channel is closed after the
// producer returns. Close may be called any number of times.
type Stream struct {
	ch     chan types.StreamChunk
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// New starts produce in its own goroutine. Cancelling ctx or calling Close
// stops it.
func New(ctx context.Context, produce Producer) *Stream {
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		ch:     make(chan types.StreamChunk),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		defer close(s.ch)
		defer cancel()
		produce(ctx, func(c types.StreamChunk) bool {
			select {
			case s.ch <- c:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()
	return s
}

// Single returns a stream holding one terminal chunk with text.
func Single(ctx context.Context, text string) *Stream {
	return New(ctx, func(_ context.Context, emit func(types.StreamChunk) bool) {
		emit(types.StreamChunk{Text: text, Done: true})
	})
}

// Chunks returns the receive side of the stream.
func (s *Stream) Chunks() <-chan types.StreamChunk { return s.ch }

// Done is closed once the producer has returned.
func (s *Stream) Done() <-chan struct{} { return s.done }

// Close cancels the producer and waits for it to exit.
func (s *Stream) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

// Collect drains the stream and returns the concatenated text.
func Collect(s *Stream) string {
	defer s.Close()
	var b strings.Builder
	for c := range s.Chunks() {
		b.WriteString(c.Text)
	}
	return b.String()
}
