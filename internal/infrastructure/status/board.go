package status

import (
	"sync"
	"time"

	"github.com/mshogin/flownodes/internal/domain/models"
)

// Entry is the last status a node reported.
type Entry struct {
	NodeID    string        `json:"node_id"`
	Status    models.Status `json:"status"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Board keeps the current status indicator of every node.
type Board struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// NewBoard creates an empty status board.
func NewBoard() *Board {
	return &Board{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// SetStatus records a node's status.
func (b *Board) SetStatus(nodeID string, s models.Status) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[nodeID] = Entry{NodeID: nodeID, Status: s, UpdatedAt: b.now()}
}

// Get returns the node's status; unknown nodes are idle.
func (b *Board) Get(nodeID string) Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if e, ok := b.entries[nodeID]; ok {
		return e
	}
	return Entry{NodeID: nodeID}
}

// All returns a copy of every recorded status.
func (b *Board) All() map[string]Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]Entry, len(b.entries))
	for k, v := range b.entries {
		out[k] = v
	}
	return out
}
