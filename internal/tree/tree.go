// Package tree implements the binary-tree membership engine: every client
// account occupies one node with at most a left and a right child, and new
// nodes are placed under a requested parent, spilling over to the earliest
// created node with an open slot when the parent is full.
package tree

import (
	"errors"
	"sync"
)

// Position is a child slot under a parent node.
type Position string

const (
	Left  Position = "left"
	Right Position = "right"
)

var (
	ErrParentNotFound  = errors.New("tree: parent not found")
	ErrInvalidPosition = errors.New("tree: invalid position")
	ErrTreeFull        = errors.New("tree: no open slot anywhere")
	// ErrSlotTaken reports a storage-level conflict on a slot that looked
	// free. Safe to retry, unlike ErrTreeFull.
	ErrSlotTaken = errors.New("tree: slot already taken")
	ErrCycle     = errors.New("tree: cycle detected")
)

// ParsePosition validates a client-supplied position string.
func ParsePosition(s string) (Position, error) {
	switch Position(s) {
	case Left, Right:
		return Position(s), nil
	}
	return "", ErrInvalidPosition
}

// Node is the tree's view of an account: identity plus parent linkage.
// ParentID and Position are both set or both nil (admins are unattached).
type Node struct {
	ID       uint      `json:"id"`
	ParentID *uint     `json:"parent_id"`
	Position *Position `json:"position"`
}

// Placement is the parent/slot pair actually assigned to a new node.
type Placement struct {
	ParentID uint     `json:"parent_id"`
	Position Position `json:"position"`
}

// Store is the node persistence the engine runs against. ChildrenOf and
// CandidateIDs must return stable creation order; placement order is
// externally observable through fallback results.
type Store interface {
	// Exists reports whether a node with the given id is known.
	Exists(id uint) (bool, error)
	// ChildrenOf returns the nodes whose ParentID equals parentID.
	ChildrenOf(parentID uint) ([]Node, error)
	// CandidateIDs returns every placed client node id, in creation
	// order; these are the fallback parents. Anchors (admins) are
	// excluded and only tried via the explicit anchor argument to Place.
	// Unattached nodes are excluded too: a node that is not in the tree
	// yet must never become a parent, or two in-flight placements could
	// adopt each other and form a cycle.
	CandidateIDs() ([]uint, error)
	// Attach fixes parent and position on an existing node. Must fail with
	// ErrSlotTaken if the slot is concurrently occupied.
	Attach(id uint, parentID uint, pos Position) error
}

// Service owns all placement decisions. Placements serialize on a single
// mutex: the fallback search must see a frozen tree between the slot check
// and the insert, otherwise two concurrent inserts could claim one slot.
type Service struct {
	store Store
	mu    sync.Mutex
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// AvailableSlots returns the open positions under parentID, left before
// right. Empty result means the parent already has both children.
func (s *Service) AvailableSlots(parentID uint) ([]Position, error) {
	ok, err := s.store.Exists(parentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrParentNotFound
	}
	return s.openSlots(parentID)
}

func (s *Service) openSlots(parentID uint) ([]Position, error) {
	children, err := s.store.ChildrenOf(parentID)
	if err != nil {
		return nil, err
	}
	occupied := make(map[Position]bool, 2)
	for _, child := range children {
		if child.Position != nil {
			occupied[*child.Position] = true
		}
	}
	slots := make([]Position, 0, 2)
	for _, pos := range []Position{Left, Right} {
		if !occupied[pos] {
			slots = append(slots, pos)
		}
	}
	return slots, nil
}

// Place assigns nodeID a slot in the tree and persists it. The requested
// position is honored only when it is actually free; otherwise the first
// open slot wins, left before right. When the requested parent is full the
// search walks all candidate nodes in creation order, then the anchor, and
// finally fails with ErrTreeFull.
//
// nodeID must already exist in the store, unattached. Admin-type nodes are
// created without any Place call and never enter the tree.
func (s *Service) Place(nodeID, parentID uint, requested *Position, anchorID *uint) (Placement, error) {
	if requested != nil {
		if _, err := ParsePosition(string(*requested)); err != nil {
			return Placement{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	slots, err := s.AvailableSlots(parentID)
	if err != nil {
		return Placement{}, err
	}

	if len(slots) > 0 {
		pos := slots[0]
		if requested != nil {
			for _, open := range slots {
				if open == *requested {
					pos = *requested
					break
				}
			}
		}
		return s.attach(nodeID, parentID, pos)
	}

	// Requested parent is saturated: spill over to the earliest created
	// node with an open slot.
	candidates, err := s.store.CandidateIDs()
	if err != nil {
		return Placement{}, err
	}
	for _, id := range candidates {
		if id == nodeID {
			continue
		}
		open, err := s.openSlots(id)
		if err != nil {
			return Placement{}, err
		}
		if len(open) > 0 {
			return s.attach(nodeID, id, open[0])
		}
	}

	if anchorID != nil && *anchorID != parentID {
		open, err := s.AvailableSlots(*anchorID)
		if err != nil {
			return Placement{}, err
		}
		if len(open) > 0 {
			return s.attach(nodeID, *anchorID, open[0])
		}
	}

	return Placement{}, ErrTreeFull
}

func (s *Service) attach(nodeID, parentID uint, pos Position) (Placement, error) {
	if err := s.store.Attach(nodeID, parentID, pos); err != nil {
		return Placement{}, err
	}
	return Placement{ParentID: parentID, Position: pos}, nil
}

// DirectChildren returns the nodes directly under parentID, creation order.
func (s *Service) DirectChildren(parentID uint) ([]Node, error) {
	ok, err := s.store.Exists(parentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrParentNotFound
	}
	return s.store.ChildrenOf(parentID)
}

// Downline returns every descendant of id in pre-order: each child is
// emitted before its own subtree. The walk keeps an explicit stack and a
// visited set; a repeated node means the parent links are corrupt and the
// walk aborts with ErrCycle instead of looping.
func (s *Service) Downline(id uint) ([]Node, error) {
	ok, err := s.store.Exists(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrParentNotFound
	}

	var out []Node
	visited := map[uint]bool{id: true}

	push := func(stack []Node, parentID uint) ([]Node, error) {
		children, err := s.store.ChildrenOf(parentID)
		if err != nil {
			return nil, err
		}
		// Reverse push so the left/earlier child pops first.
		for i := len(children) - 1; i >= 0; i-- {
			if visited[children[i].ID] {
				return nil, ErrCycle
			}
			visited[children[i].ID] = true
			stack = append(stack, children[i])
		}
		return stack, nil
	}

	stack, err := push(nil, id)
	if err != nil {
		return nil, err
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)

		stack, err = push(stack, cur.ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
