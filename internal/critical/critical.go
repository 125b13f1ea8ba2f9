// Package critical provides scoped sections that keep timing-sensitive code
// from being preempted or stalled while it runs.
package critical

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Section is a region that must run without interruption.
type Section interface {
	Enter()
	Exit()
}

// With runs fn inside s. The section is exited on every return path,
// including a panic in fn.
func With(s Section, fn func() error) error {
	s.Enter()
	defer s.Exit()
	return fn()
}

// ThreadSection pins the calling goroutine to its OS thread, suspends the
// garbage collector and holds an exclusive lock for the duration of the
// section. The lock gives one goroutine sole ownership of the guarded
// resource (a GPIO line) while the section is held.
type ThreadSection struct {
	mu        sync.Mutex
	gcPercent int
}

// NewThreadSection creates an unlocked ThreadSection.
func NewThreadSection() *ThreadSection {
	return &ThreadSection{}
}

// Enter acquires the section.
func (s *ThreadSection) Enter() {
	s.mu.Lock()
	runtime.LockOSThread()
	s.gcPercent = debug.SetGCPercent(-1)
}

// Exit releases the section and restores the previous GC setting.
func (s *ThreadSection) Exit() {
	debug.SetGCPercent(s.gcPercent)
	runtime.UnlockOSThread()
	s.mu.Unlock()
}

// FakeSection counts entries and exits for tests.
type FakeSection struct {
	Entered int
	Exited  int
	depth   int

	// MaxDepth is the deepest nesting observed.
	MaxDepth int
}

// Enter records an entry.
func (f *FakeSection) Enter() {
	f.Entered++
	f.depth++
	if f.depth > f.MaxDepth {
		f.MaxDepth = f.depth
	}
}

// Exit records an exit.
func (f *FakeSection) Exit() {
	f.Exited++
	f.depth--
}

// Held reports whether the section is currently entered.
func (f *FakeSection) Held() bool {
	return f.depth > 0
}
