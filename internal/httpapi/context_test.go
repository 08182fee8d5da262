package httpapi

import (
	"context"
	"testing"
	"time"
)

func TestJoinContexts_CancelsOnEither(t *testing.T) {
	a, cancelA := context.WithCancel(context.Background())
	b := context.Background()
	ctx, cancel := joinContexts(a, b)
	defer cancel()
	cancelA()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("joined context not canceled by first parent")
	}

	a = context.Background()
	b, cancelB := context.WithCancel(context.Background())
	ctx, cancel = joinContexts(a, b)
	defer cancel()
	cancelB()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("joined context not canceled by second parent")
	}
}

func TestSetBaseContextNilResets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	SetBaseContext(ctx)
	if serverBaseCtx != ctx {
		t.Fatal("base context not installed")
	}
	SetBaseContext(nil)
	if serverBaseCtx != context.Background() {
		t.Fatal("nil did not reset to Background")
	}
}
