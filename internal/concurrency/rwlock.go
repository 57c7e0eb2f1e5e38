// Package concurrency provides the fair reader-writer lock each library
// owns, plus the ascending-id ordering rule for operations that must hold
// more than one library's lock at a time.
//
// Go's sync.RWMutex does not guarantee FIFO fairness between readers and
// writers: a steady stream of RLock acquisitions can in principle starve a
// pending Lock indefinitely. FairRWMutex builds a ticket queue on sync.Mutex
// and sync.Cond instead, so a writer that arrives while readers are active is
// guaranteed to run before any reader that arrives after it — satisfying
// the "a pending reindex must eventually proceed" requirement.
package concurrency

import "sync"

// FairRWMutex is a reader-writer lock with FIFO fairness: waiters are
// granted access in arrival order, so a writer cannot be starved by a
// continuous stream of new readers, and concurrent readers that arrive
// together may still proceed without waiting on each other.
type FairRWMutex struct {
	mu      sync.Mutex
	cond    *sync.Cond
	readers int  // currently active readers
	writer  bool // a writer currently holds the lock
	queue   []ticket
	nextID  uint64
}

type ticket struct {
	id      uint64
	write   bool
	granted bool
}

// NewFairRWMutex constructs a ready-to-use lock.
func NewFairRWMutex() *FairRWMutex {
	l := &FairRWMutex{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *FairRWMutex) enqueue(write bool) uint64 {
	id := l.nextID
	l.nextID++
	l.queue = append(l.queue, ticket{id: id, write: write})
	return id
}

func (l *FairRWMutex) dequeue(id uint64) {
	for i, t := range l.queue {
		if t.id == id {
			l.queue = append(l.queue[:i], l.queue[i+1:]...)
			return
		}
	}
}

// frontCanProceed reports whether ticket id is at the front of the queue or
// belongs to the contiguous run of readers that leads it (so they may all
// proceed together); it reports false when a writer is queued ahead.
func (l *FairRWMutex) frontCanProceed(id uint64) bool {
	if len(l.queue) == 0 {
		return false
	}
	front := l.queue[0]
	if front.id == id {
		return true
	}
	// This ticket may proceed alongside the front run if every ticket
	// ahead of it is a waiting reader. The ticket's own kind is not
	// checked: the only caller, RLock, passes reader tickets.
	if front.write {
		return false
	}
	for _, t := range l.queue {
		if t.id == id {
			return true
		}
		if t.write {
			return false
		}
	}
	return false
}

// RLock blocks until no writer holds or precedes this request in queue
// order, then marks a reader active.
func (l *FairRWMutex) RLock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.enqueue(false)
	for l.writer || !l.frontCanProceed(id) {
		l.cond.Wait()
	}
	l.dequeue(id)
	l.readers++
	// Wake other waiters: additional readers behind this one in the
	// fair run may now also be eligible to proceed.
	l.cond.Broadcast()
}

// RUnlock releases one reader's hold.
func (l *FairRWMutex) RUnlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readers--
	if l.readers < 0 {
		panic("concurrency: RUnlock without matching RLock")
	}
	l.cond.Broadcast()
}

// Lock blocks until no reader or writer holds the lock and this request is
// at the front of the queue, then marks the writer active.
func (l *FairRWMutex) Lock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.enqueue(true)
	for l.writer || l.readers > 0 || l.queue[0].id != id {
		l.cond.Wait()
	}
	l.dequeue(id)
	l.writer = true
}

// Unlock releases the writer's hold.
func (l *FairRWMutex) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.writer {
		panic("concurrency: Unlock without matching Lock")
	}
	l.writer = false
	l.cond.Broadcast()
}
