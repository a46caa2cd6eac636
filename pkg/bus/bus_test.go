package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startBus(t *testing.T) (*Bus[string, int], context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	b := NewBus[string, int](zap.NewNop())
	require.NoError(t, b.Start(ctx))
	<-b.Ready()
	return b, ctx
}

func TestSubscribeByKey(t *testing.T) {
	b, ctx := startBus(t)
	ch := b.Subscribe(ctx, "input")
	go b.Publish(ctx, "input", 42)
	select {
	case msg := <-ch:
		require.Equal(t, "input", msg.Key)
		require.Equal(t, 42, msg.Message)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestSubscribeGlobal(t *testing.T) {
	b, ctx := startBus(t)
	ch := b.Subscribe(ctx)
	go b.Publish(ctx, "anything", 7)
	select {
	case msg := <-ch:
		require.Equal(t, "anything", msg.Key)
		require.Equal(t, 7, msg.Message)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestSubscribeClosedOnCancel(t *testing.T) {
	b, ctx := startBus(t)
	subCtx, cancel := context.WithCancel(ctx)
	ch := b.Subscribe(subCtx, "input")
	cancel()
	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	b, ctx := startBus(t)

	pubCtx, stopPub := context.WithCancel(ctx)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for pubCtx.Err() == nil {
				b.Publish(pubCtx, "input", 1)
			}
		}()
	}

	// Subscribers come and go while the publishers hammer the bus. A worker
	// mid-delivery must never send on a channel the unsubscribe just closed.
	for i := 0; i < 100; i++ {
		subCtx, cancel := context.WithCancel(ctx)
		var ch <-chan Message[string, int]
		if i%2 == 0 {
			ch = b.Subscribe(subCtx, "input")
		} else {
			ch = b.Subscribe(subCtx)
		}
		go func() {
			for range ch {
			}
		}()
		cancel()
	}

	stopPub()
	wg.Wait()
}
