package events

import "sync"

// journal keeps the most recent events in emission order.
type journal struct {
	mu    sync.RWMutex
	slots []Event
	head  int // next write position
	count int
	total int64
}

func newJournal(capacity int) *journal {
	if capacity <= 0 {
		capacity = 1
	}
	return &journal{slots: make([]Event, capacity)}
}

func (j *journal) Add(e Event) {
	j.mu.Lock()
	j.slots[j.head] = e
	j.head = (j.head + 1) % len(j.slots)
	if j.count < len(j.slots) {
		j.count++
	}
	j.total++
	j.mu.Unlock()
}

// Snapshot returns every retained event, oldest first.
func (j *journal) Snapshot() []Event {
	return j.Tail(0, nil)
}

// Tail returns up to n of the newest retained events accepted by keep,
// oldest first. n <= 0 means no limit; a nil keep accepts everything.
func (j *journal) Tail(n int, keep func(Event) bool) []Event {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var out []Event
	start := j.head - j.count
	for i := j.count - 1; i >= 0; i-- {
		e := j.slots[(start+i+len(j.slots))%len(j.slots)]
		if keep != nil && !keep(e) {
			continue
		}
		out = append(out, e)
		if n > 0 && len(out) == n {
			break
		}
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	if out == nil {
		out = []Event{}
	}
	return out
}

// Total counts every event ever added, including evicted ones.
func (j *journal) Total() int64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.total
}

func (j *journal) Reset() {
	j.mu.Lock()
	clear(j.slots)
	j.head, j.count, j.total = 0, 0, 0
	j.mu.Unlock()
}
