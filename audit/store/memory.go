// Package store provides audit.Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/audit"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is an append-only in-memory audit store.
type Memory struct {
	mu       sync.RWMutex
	messages []entry
	seq      int64
}

type entry struct {
	msg audit.Message
	seq int64
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Append adds the batch atomically. In-memory appends cannot partially
// fail, so atomicity falls out of holding the lock for the whole batch.
func (m *Memory) Append(_ context.Context, messages []audit.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range messages {
		m.seq++
		m.messages = append(m.messages, entry{msg: msg, seq: m.seq})
	}
	return nil
}

// Query returns matching messages, most recent first. Ties on CreatedAt
// resolve to the later-inserted message first.
func (m *Memory) Query(_ context.Context, filter audit.Filter) ([]audit.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]entry, 0, len(m.messages))
	for _, e := range m.messages {
		if filter.Step != nil && e.msg.Step != *filter.Step {
			continue
		}
		matched = append(matched, e)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].msg.CreatedAt.Equal(matched[j].msg.CreatedAt) {
			return matched[i].msg.CreatedAt.After(matched[j].msg.CreatedAt)
		}
		return matched[i].seq > matched[j].seq
	})

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	result := make([]audit.Message, len(matched))
	for i, e := range matched {
		result[i] = e.msg
	}
	return result, nil
}
