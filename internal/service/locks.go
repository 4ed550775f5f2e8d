package service

import (
	"sync"
)

// IssueLocks serializes workflow transitions per issue. SendMessage,
// SubmitVote and RunCycle all acquire the issue's lock before reading state,
// which guarantees at-most-once transitions per triggering event without a
// database-level advisory lock.
type IssueLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewIssueLocks creates an empty lock table.
func NewIssueLocks() *IssueLocks {
	return &IssueLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for issueID and returns its unlock function.
func (l *IssueLocks) Lock(issueID string) func() {
	l.mu.Lock()
	m, ok := l.locks[issueID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[issueID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
