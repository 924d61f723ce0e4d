package peripheral

import (
	"context"
	"sync"
)

// Subscribe registers fn for every state transition and returns a func that
// removes it. Transitions reach fn one at a time and in order, without the
// machine's lock held, so fn may call back into the machine. fn runs on a
// goroutine that drives the machine and should return promptly.
func (m *Machine) Subscribe(fn func(State)) (unsubscribe func()) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

// Watch streams transitions until ctx ends, then closes the channel.
// The current state is delivered first. A reader that falls behind loses
// intermediate states, never the latest one.
func (m *Machine) Watch(ctx context.Context) <-chan State {
	ch := make(chan State, 16)

	var (
		mu     sync.Mutex
		closed bool
	)
	push := func(s State) {
		select {
		case ch <- s:
			return
		default:
		}
		// full: make room by dropping the oldest
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}

	mu.Lock()
	unsubscribe := m.Subscribe(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		if !closed {
			push(s)
		}
	})
	ch <- m.State()
	mu.Unlock()

	go func() {
		<-ctx.Done()
		unsubscribe()
		mu.Lock()
		closed = true
		close(ch)
		mu.Unlock()
	}()

	return ch
}

func (m *Machine) notify(s State) {
	m.subMu.Lock()
	fns := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(s)
	}
}
