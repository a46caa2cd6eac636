// Package bus provides a small keyed publish/subscribe bus used to carry
// device hot-plug notifications between services.
package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

type Message[K comparable, M any] struct {
	Key     K
	Message M
}

type Publisher[M any] func(ctx context.Context, msg M)

type Bus[K comparable, M any] struct {
	log         *zap.Logger
	concurrency int
	ready       chan struct{}

	ch         chan Message[K, M]
	keySubs    *xsync.MapOf[K, map[*subscription[K, M]]struct{}]
	globalSubs *xsync.MapOf[*subscription[K, M], struct{}]
}

func NewBus[K comparable, M any](logger *zap.Logger) *Bus[K, M] {
	return &Bus[K, M]{
		log:         logger,
		ready:       make(chan struct{}),
		concurrency: 1,

		ch:         make(chan Message[K, M]),
		keySubs:    xsync.NewMapOf[K, map[*subscription[K, M]]struct{}](),
		globalSubs: xsync.NewMapOf[*subscription[K, M], struct{}](),
	}
}

func (b *Bus[K, M]) Start(ctx context.Context) error {
	if b.concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	for i := 0; i < b.concurrency; i++ {
		b.startWorker(ctx)
	}
	close(b.ready)
	return nil
}

func (b *Bus[K, M]) startWorker(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-b.ch:
				b.process(ctx, msg)
			}
		}
	}()
}

func (b *Bus[K, M]) Ready() <-chan struct{} {
	return b.ready
}

func (b *Bus[K, M]) Publish(ctx context.Context, key K, msg M) {
	select {
	case <-ctx.Done():
		return
	case b.ch <- Message[K, M]{key, msg}:
	}
}

func (b *Bus[K, M]) CreatePublisher(key K) Publisher[M] {
	return func(ctx context.Context, msg M) {
		b.Publish(ctx, key, msg)
	}
}

// subscription owns one subscriber channel. The channel is only ever closed
// by stop, and stop closes it under mu with closed set, so a worker can never
// send on a closed channel.
type subscription[K comparable, M any] struct {
	mu     sync.Mutex
	closed bool
	done   chan struct{}
	ch     chan Message[K, M]
}

func (s *subscription[K, M]) send(ctx context.Context, msg Message[K, M]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case <-ctx.Done():
	case <-s.done:
	case s.ch <- msg:
	}
}

func (s *subscription[K, M]) stop() {
	// Closing done first unblocks a sender holding mu.
	close(s.done)
	s.mu.Lock()
	s.closed = true
	close(s.ch)
	s.mu.Unlock()
}

func (b *Bus[K, M]) process(ctx context.Context, msg Message[K, M]) {
	b.globalSubs.Range(func(sub *subscription[K, M], _ struct{}) bool {
		sub.send(ctx, msg)
		return ctx.Err() == nil
	})
	subs, ok := b.keySubs.Load(msg.Key)
	if !ok {
		return
	}
	for sub := range subs {
		if ctx.Err() != nil {
			return
		}
		sub.send(ctx, msg)
	}
}

// Subscribe returns a channel fed with messages for the given keys, or every
// message when no key is given. The channel is closed when ctx is cancelled.
func (b *Bus[K, M]) Subscribe(ctx context.Context, key ...K) <-chan Message[K, M] {
	sub := &subscription[K, M]{
		done: make(chan struct{}),
		ch:   make(chan Message[K, M]),
	}
	if len(key) == 0 {
		b.globalSubs.Store(sub, struct{}{})
		go func() {
			<-ctx.Done()
			b.globalSubs.Delete(sub)
			sub.stop()
		}()
		return sub.ch
	}
	for _, k := range key {
		b.keySubs.Compute(k, func(val map[*subscription[K, M]]struct{}, _ bool) (map[*subscription[K, M]]struct{}, bool) {
			// Copy on write: workers iterate the map without a lock.
			next := make(map[*subscription[K, M]]struct{}, len(val)+1)
			for s := range val {
				next[s] = struct{}{}
			}
			next[sub] = struct{}{}
			return next, false
		})
	}
	go func() {
		<-ctx.Done()
		for _, k := range key {
			b.keySubs.Compute(k, func(val map[*subscription[K, M]]struct{}, _ bool) (map[*subscription[K, M]]struct{}, bool) {
				next := make(map[*subscription[K, M]]struct{}, len(val))
				for s := range val {
					if s != sub {
						next[s] = struct{}{}
					}
				}
				return next, len(next) == 0
			})
		}
		sub.stop()
	}()
	return sub.ch
}
