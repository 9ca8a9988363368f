package eventtree

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

// reentrantLock is the process-wide structural lock from spec §5. It
// serializes every tree mutation and every Handle.update, while letting the
// goroutine that already holds it re-acquire it — needed because
// Handle.update, which runs under the lock, brings each mapped child's own
// Handle up to date through ensureValid, which takes the lock again. A
// listener's EXPIRED self-removal runs after the dispatching Handle has
// released the lock and acquires it as an ordinary first Lock.
//
// Go's sync.Mutex is deliberately not reentrant and nothing in the
// retrieval pack ships a reentrant-lock primitive, so this is hand-rolled
// (documented in DESIGN.md) using the same goroutine-id-from-stack-trace
// technique most third-party Go reentrant-lock shims use in the absence of
// a runtime-exposed goroutine id.
type reentrantLock struct {
	mu    sync.Mutex
	guard sync.Mutex
	owner int64
	depth int
}

func currentGoroutineID() int64 {
	var buf [32]byte
	n := runtime.Stack(buf[:], false)
	b := buf[:n]
	const prefix = "goroutine "
	b = bytes.TrimPrefix(b, []byte(prefix))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseInt(string(b), 10, 64)
	return id
}

// Lock acquires the lock, or increments the reentry depth if the calling
// goroutine already holds it.
func (l *reentrantLock) Lock() {
	id := currentGoroutineID()

	l.guard.Lock()
	if l.depth > 0 && l.owner == id {
		l.depth++
		l.guard.Unlock()
		return
	}
	l.guard.Unlock()

	l.mu.Lock()

	l.guard.Lock()
	l.owner = id
	l.depth = 1
	l.guard.Unlock()
}

// Unlock releases one level of reentry, unlocking the underlying mutex once
// the outermost Lock call is matched.
func (l *reentrantLock) Unlock() {
	l.guard.Lock()
	l.depth--
	done := l.depth == 0
	if done {
		l.owner = 0
	}
	l.guard.Unlock()
	if done {
		l.mu.Unlock()
	}
}

// structuralLock is the single process-wide lock shared by every Node and
// Handle (spec §5: "a single process-wide structural lock serializes every
// mutation of the tree ... and every Handle update").
var structuralLock reentrantLock
