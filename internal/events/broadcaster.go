package events

import (
	"strings"
	"sync"
	"sync/atomic"
)

const subscriberBuffer = 64

// Subscription is one live feed of emitted events, optionally limited to
// names starting with one of its prefixes.
type Subscription struct {
	C        chan Event
	prefixes []string
	dropped  atomic.Int64
}

// Matches reports whether the subscription wants events named name.
func (s *Subscription) Matches(name string) bool {
	return matchPrefixes(s.prefixes, name)
}

// Dropped counts events discarded because C was full.
func (s *Subscription) Dropped() int64 {
	return s.dropped.Load()
}

func matchPrefixes(prefixes []string, name string) bool {
	if len(prefixes) == 0 {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

var (
	feedMu       sync.RWMutex
	feed         = make(map[*Subscription]struct{})
	droppedTotal atomic.Int64
)

// Subscribe registers a live feed. Empty prefixes are ignored.
func Subscribe(prefixes ...string) *Subscription {
	s := &Subscription{C: make(chan Event, subscriberBuffer)}
	for _, p := range prefixes {
		if p = strings.TrimSpace(p); p != "" {
			s.prefixes = append(s.prefixes, p)
		}
	}
	feedMu.Lock()
	feed[s] = struct{}{}
	feedMu.Unlock()
	return s
}

// Unsubscribe removes s and closes its channel. It is a no-op for a
// subscription already closed by CloseAllSubscribers.
func Unsubscribe(s *Subscription) {
	feedMu.Lock()
	defer feedMu.Unlock()
	if _, ok := feed[s]; ok {
		delete(feed, s)
		close(s.C)
	}
}

// CloseAllSubscribers closes every live feed so stream writers exit on
// shutdown.
func CloseAllSubscribers() {
	feedMu.Lock()
	defer feedMu.Unlock()
	for s := range feed {
		close(s.C)
		delete(feed, s)
	}
}

// broadcast never blocks Emit: a full subscriber loses the event.
func broadcast(e Event) {
	feedMu.RLock()
	defer feedMu.RUnlock()
	for s := range feed {
		if !s.Matches(e.Name) {
			continue
		}
		select {
		case s.C <- e:
		default:
			s.dropped.Add(1)
			droppedTotal.Add(1)
		}
	}
}

// SubscriberCount returns the number of live feeds.
func SubscriberCount() int {
	feedMu.RLock()
	defer feedMu.RUnlock()
	return len(feed)
}

// DroppedCount counts events lost to slow subscribers since startup.
func DroppedCount() int64 {
	return droppedTotal.Load()
}

// Recent returns up to n of the newest buffered events whose names match
// prefixes, oldest first. n <= 0 returns all of them.
func Recent(n int, prefixes ...string) []Event {
	return buffer.Tail(n, func(e Event) bool { return matchPrefixes(prefixes, e.Name) })
}
