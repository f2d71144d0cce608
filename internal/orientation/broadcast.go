// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import "sync"

// Broadcaster fans state snapshots out to subscribers. Slow subscribers
// never block the publisher: a full channel has its stale value replaced by
// the new one, so readers always see the latest state.
type Broadcaster struct {
	mu       sync.RWMutex
	subs     map[int]chan State
	nextID   int
	last     State
	haveLast bool
	closed   bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan State)}
}

// Subscribe registers a listener. The last published state, if any, is
// delivered right away. After Close the returned channel holds at most that
// last state and is already closed.
func (b *Broadcaster) Subscribe(buffer int) (int, <-chan State) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan State, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	if b.haveLast {
		ch <- b.last
	}
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (b *Broadcaster) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish delivers st to every subscriber.
func (b *Broadcaster) Publish(st State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = st
	b.haveLast = true
	for _, ch := range b.subs {
		offer(ch, st)
	}
}

func offer(ch chan State, st State) {
	for {
		select {
		case ch <- st:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// Close unsubscribes everyone. Later subscriptions get closed channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
