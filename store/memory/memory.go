// Package memory provides an in-memory Store implementation for tests and
// development. Documents live in a flat map keyed by full path; interior
// reads assemble the subtree on demand.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/warp/billing-engine/store"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu    sync.RWMutex
	docs  map[string]json.RawMessage
	hub   *store.Hub
	fault func(op, path string) error
}

func New() *Memory {
	return &Memory{
		docs: make(map[string]json.RawMessage),
		hub:  store.NewHub(),
	}
}

// SetFault installs a fault-injection hook consulted before every mutating
// operation. A non-nil return aborts the operation with that error. Used by
// compensation tests; pass nil to clear.
func (m *Memory) SetFault(fn func(op, path string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = fn
}

func (m *Memory) checkFaultLocked(op, path string) error {
	if m.fault != nil {
		return m.fault(op, path)
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

func (m *Memory) Get(_ context.Context, path string) (json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.assembleLocked(path), nil
}

// assembleLocked returns the document at path, or the subtree assembled into
// one object, or nil when nothing exists.
func (m *Memory) assembleLocked(path string) json.RawMessage {
	if doc, ok := m.docs[path]; ok {
		return clone(doc)
	}

	prefix := path + "/"
	tree := make(map[string]any)
	found := false
	for p, doc := range m.docs {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		found = true
		insert(tree, strings.Split(p[len(prefix):], "/"), clone(doc))
	}
	if !found {
		return nil
	}
	raw, err := json.Marshal(tree)
	if err != nil {
		return nil
	}
	return raw
}

func insert(tree map[string]any, segments []string, doc json.RawMessage) {
	if len(segments) == 1 {
		tree[segments[0]] = doc
		return
	}
	child, ok := tree[segments[0]].(map[string]any)
	if !ok {
		child = make(map[string]any)
		tree[segments[0]] = child
	}
	insert(child, segments[1:], doc)
}

func clone(raw json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

// =============================================================================
// WRITES
// =============================================================================

func (m *Memory) Set(_ context.Context, path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	m.mu.Lock()
	if err := m.checkFaultLocked("set", path); err != nil {
		m.mu.Unlock()
		return err
	}
	m.removeLocked(path)
	m.docs[path] = raw
	m.mu.Unlock()

	m.notify(path)
	return nil
}

func (m *Memory) Update(_ context.Context, path string, fields map[string]any) error {
	m.mu.Lock()
	if err := m.checkFaultLocked("update", path); err != nil {
		m.mu.Unlock()
		return err
	}

	doc := make(map[string]any)
	if existing, ok := m.docs[path]; ok {
		if err := json.Unmarshal(existing, &doc); err != nil {
			m.mu.Unlock()
			return fmt.Errorf("decode %s: %w", path, err)
		}
	}
	for k, v := range fields {
		doc[k] = v
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	m.docs[path] = raw
	m.mu.Unlock()

	m.notify(path)
	return nil
}

func (m *Memory) Push(_ context.Context, path string, value any) (string, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	id := uuid.NewString()
	child := path + "/" + id

	m.mu.Lock()
	if err := m.checkFaultLocked("push", path); err != nil {
		m.mu.Unlock()
		return "", err
	}
	m.docs[child] = raw
	m.mu.Unlock()

	m.notify(child)
	return id, nil
}

func (m *Memory) Delete(_ context.Context, path string) error {
	m.mu.Lock()
	if err := m.checkFaultLocked("delete", path); err != nil {
		m.mu.Unlock()
		return err
	}
	m.removeLocked(path)
	m.mu.Unlock()

	m.notify(path)
	return nil
}

func (m *Memory) removeLocked(path string) {
	delete(m.docs, path)
	prefix := path + "/"
	for p := range m.docs {
		if strings.HasPrefix(p, prefix) {
			delete(m.docs, p)
		}
	}
}

// =============================================================================
// SUBSCRIPTIONS
// =============================================================================

// Subscribe delivers the current value immediately, then again on every
// change at or under path.
func (m *Memory) Subscribe(path string, fn func(json.RawMessage)) func() {
	cancel := m.hub.Add(path, fn)

	m.mu.RLock()
	current := m.assembleLocked(path)
	m.mu.RUnlock()
	fn(current)

	return cancel
}

func (m *Memory) notify(changedPath string) {
	m.hub.Notify(changedPath, func(subPath string) json.RawMessage {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return m.assembleLocked(subPath)
	})
}
