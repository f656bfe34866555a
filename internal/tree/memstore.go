package tree

import (
	"errors"
	"sync"
)

var ErrUnknownNode = errors.New("tree: unknown node")

// MemStore is an in-memory Store: a node map plus a creation-order slice,
// matching the candidate order the engine promises. Used by tests and small
// single-process deployments; production runs on the database-backed store.
type MemStore struct {
	mu     sync.RWMutex
	nodes  map[uint]*Node
	order  []uint // client node ids, creation order
	nextID uint
}

func NewMemStore() *MemStore {
	return &MemStore{nodes: make(map[uint]*Node), nextID: 1}
}

// CreateClient registers a new unattached client node and returns its id.
// The node becomes a fallback candidate immediately.
func (m *MemStore) CreateClient() uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.nodes[id] = &Node{ID: id}
	m.order = append(m.order, id)
	return id
}

// CreateAnchor registers an unattached node that is excluded from fallback
// candidacy (an admin/root anchor).
func (m *MemStore) CreateAnchor() uint {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.nodes[id] = &Node{ID: id}
	return id
}

func (m *MemStore) Exists(id uint) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.nodes[id]
	return ok, nil
}

func (m *MemStore) ChildrenOf(parentID uint) ([]Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Node
	for _, id := range m.order {
		n := m.nodes[id]
		if n.ParentID != nil && *n.ParentID == parentID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *MemStore) CandidateIDs() ([]uint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]uint, 0, len(m.order))
	for _, id := range m.order {
		if m.nodes[id].ParentID != nil {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *MemStore) Attach(id uint, parentID uint, pos Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.nodes[id]
	if !ok {
		return ErrUnknownNode
	}
	for _, cid := range m.order {
		sib := m.nodes[cid]
		if sib.ParentID != nil && *sib.ParentID == parentID && sib.Position != nil && *sib.Position == pos {
			return ErrSlotTaken
		}
	}
	p := parentID
	n.ParentID = &p
	n.Position = &pos
	return nil
}

// Get returns a copy of the node, or nil if unknown.
func (m *MemStore) Get(id uint) *Node {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.nodes[id]
	if !ok {
		return nil
	}
	cp := *n
	return &cp
}
