package dummydb

import (
	"context"
	"sync"

	"github.com/trezcool/darasa/core/stream"
)

// ChangeStream is an in-memory change stream for tests and local dev:
// events are injected with Emit and fanned out to every matching
// subscription, each applying its own filter.
type ChangeStream struct {
	mu   sync.Mutex
	subs []*streamSub

	// SubscribeErr, when set, makes the next Subscribe call fail.
	SubscribeErr error

	subscribeCount int
}

type streamSub struct {
	table  string
	filter stream.FilterFunc
	ch     chan stream.ChangeEvent
	done   <-chan struct{}
	closed bool
}

var _ stream.ChangeStream = (*ChangeStream)(nil)

func NewChangeStream() *ChangeStream {
	return &ChangeStream{}
}

func (cs *ChangeStream) Subscribe(ctx context.Context, table string, filter stream.FilterFunc) (<-chan stream.ChangeEvent, error) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.subscribeCount++
	if err := cs.SubscribeErr; err != nil {
		cs.SubscribeErr = nil
		return nil, err
	}

	sub := &streamSub{
		table:  table,
		filter: filter,
		ch:     make(chan stream.ChangeEvent, 64),
		done:   ctx.Done(),
	}
	cs.subs = append(cs.subs, sub)

	go func() {
		<-ctx.Done()
		cs.mu.Lock()
		defer cs.mu.Unlock()
		cs.closeLocked(sub)
	}()

	return sub.ch, nil
}

// Emit delivers ev to every live subscription on its table whose filter
// admits it.
func (cs *ChangeStream) Emit(ev stream.ChangeEvent) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for _, sub := range cs.subs {
		if sub.closed || sub.table != ev.Table {
			continue
		}
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Fail force-closes every subscription on table, simulating a channel
// failure.
func (cs *ChangeStream) Fail(table string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for _, sub := range cs.subs {
		if !sub.closed && sub.table == table {
			cs.closeLocked(sub)
		}
	}
}

// SubscribeCount reports how many Subscribe calls were made in total.
func (cs *ChangeStream) SubscribeCount() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.subscribeCount
}

// LiveCount reports how many subscriptions are currently open.
func (cs *ChangeStream) LiveCount() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	var n int
	for _, sub := range cs.subs {
		if !sub.closed {
			n++
		}
	}
	return n
}

func (cs *ChangeStream) closeLocked(sub *streamSub) {
	if !sub.closed {
		sub.closed = true
		close(sub.ch)
	}
}
