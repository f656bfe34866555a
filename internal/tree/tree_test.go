package tree

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine() (*Service, *MemStore) {
	store := NewMemStore()
	return NewService(store), store
}

func place(t *testing.T, svc *Service, store *MemStore, parentID uint, requested *Position) (uint, Placement) {
	t.Helper()
	id := store.CreateClient()
	p, err := svc.Place(id, parentID, requested, nil)
	require.NoError(t, err)
	return id, p
}

func posPtr(p Position) *Position {
	return &p
}

func TestAvailableSlotsEmptyParent(t *testing.T) {
	svc, store := newEngine()
	root := store.CreateClient()

	slots, err := svc.AvailableSlots(root)
	require.NoError(t, err)
	assert.Equal(t, []Position{Left, Right}, slots)
}

func TestAvailableSlotsUnknownParent(t *testing.T) {
	svc, _ := newEngine()
	_, err := svc.AvailableSlots(42)
	assert.ErrorIs(t, err, ErrParentNotFound)
}

func TestPlaceLeftPrecedence(t *testing.T) {
	svc, store := newEngine()
	root := store.CreateClient()

	_, p := place(t, svc, store, root, nil)
	assert.Equal(t, root, p.ParentID)
	assert.Equal(t, Left, p.Position)
}

func TestPlaceTakesRemainingSlot(t *testing.T) {
	svc, store := newEngine()
	root := store.CreateClient()
	place(t, svc, store, root, posPtr(Left))

	// Only right is open, no explicit request.
	_, p := place(t, svc, store, root, nil)
	assert.Equal(t, root, p.ParentID)
	assert.Equal(t, Right, p.Position)

	slots, err := svc.AvailableSlots(root)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestPlaceExplicitPositionHonoredWhenFree(t *testing.T) {
	svc, store := newEngine()
	root := store.CreateClient()

	_, p := place(t, svc, store, root, posPtr(Right))
	assert.Equal(t, Right, p.Position)

	slots, err := svc.AvailableSlots(root)
	require.NoError(t, err)
	assert.Equal(t, []Position{Left}, slots)
}

func TestPlaceExplicitPositionOccupiedFallsToOther(t *testing.T) {
	svc, store := newEngine()
	root := store.CreateClient()
	place(t, svc, store, root, posPtr(Right))

	// Right is taken; the request is not honored and left wins.
	_, p := place(t, svc, store, root, posPtr(Right))
	assert.Equal(t, root, p.ParentID)
	assert.Equal(t, Left, p.Position)
}

func TestPlaceInvalidPosition(t *testing.T) {
	svc, store := newEngine()
	root := store.CreateClient()
	id := store.CreateClient()

	bad := Position("middle")
	_, err := svc.Place(id, root, &bad, nil)
	assert.ErrorIs(t, err, ErrInvalidPosition)

	// Nothing was written.
	assert.Nil(t, store.Get(id).ParentID)
}

func TestPlaceUnknownParent(t *testing.T) {
	svc, store := newEngine()
	id := store.CreateClient()

	_, err := svc.Place(id, 999, nil, nil)
	assert.ErrorIs(t, err, ErrParentNotFound)
}

// Spec scenario: root A with children B(left) and C(right), both full with
// D,E and F,G. Placing under A must spill over to D's left slot, D being
// the earliest created node with an opening.
func TestPlaceFallbackCreationOrder(t *testing.T) {
	svc, store := newEngine()
	a := store.CreateClient()
	b, _ := place(t, svc, store, a, nil) // left of A
	c, _ := place(t, svc, store, a, nil) // right of A
	d, _ := place(t, svc, store, b, nil)
	place(t, svc, store, b, nil)
	place(t, svc, store, c, nil)
	place(t, svc, store, c, nil)

	_, p := place(t, svc, store, a, nil)
	assert.Equal(t, d, p.ParentID)
	assert.Equal(t, Left, p.Position)
}

func TestPlaceFallbackIgnoresRequestedPosition(t *testing.T) {
	svc, store := newEngine()
	a := store.CreateClient()
	b, _ := place(t, svc, store, a, nil)
	place(t, svc, store, a, nil)

	// A is full; explicit right does not carry over to the fallback
	// parent, which assigns left first.
	_, p := place(t, svc, store, a, posPtr(Right))
	assert.Equal(t, b, p.ParentID)
	assert.Equal(t, Left, p.Position)
}

func TestPlaceAnchorFallback(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	anchor := store.CreateAnchor()
	lone := store.CreateClient()
	// Plug the only candidate's slots with non-candidate nodes, leaving
	// the anchor as the sole opening.
	l := store.CreateAnchor()
	r := store.CreateAnchor()
	require.NoError(t, store.Attach(l, lone, Left))
	require.NoError(t, store.Attach(r, lone, Right))

	id := store.CreateClient()
	p, err := svc.Place(id, lone, nil, &anchor)
	require.NoError(t, err)
	assert.Equal(t, anchor, p.ParentID)
	assert.Equal(t, Left, p.Position)
}

func TestPlaceTreeFull(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	anchor := store.CreateAnchor()
	lone := store.CreateClient()
	// Fill both the lone candidate and the anchor with non-candidate
	// nodes so no opening exists anywhere.
	for _, parent := range []uint{lone, anchor} {
		for _, pos := range []Position{Left, Right} {
			n := store.CreateAnchor()
			require.NoError(t, store.Attach(n, parent, pos))
		}
	}

	id := store.CreateClient()
	_, err := svc.Place(id, lone, nil, &anchor)
	assert.ErrorIs(t, err, ErrTreeFull)
	assert.Nil(t, store.Get(id).ParentID)
}

// P1: after any sequence of placements no parent has more than two
// children and no two children share a position.
func TestCapacityInvariant(t *testing.T) {
	svc, store := newEngine()
	root := store.CreateClient()
	for i := 0; i < 40; i++ {
		place(t, svc, store, root, nil)
	}
	assertCapacity(t, svc, store, root)
}

func assertCapacity(t *testing.T, svc *Service, store *MemStore, extra ...uint) {
	t.Helper()
	ids, err := store.CandidateIDs()
	require.NoError(t, err)
	ids = append(ids, extra...)
	for _, id := range ids {
		children, err := svc.DirectChildren(id)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(children), 2)
		seen := map[Position]bool{}
		for _, child := range children {
			require.NotNil(t, child.Position)
			assert.False(t, seen[*child.Position], "duplicate position under %d", id)
			seen[*child.Position] = true
		}
	}
}

func TestConcurrentPlacements(t *testing.T) {
	svc, store := newEngine()
	root := store.CreateClient()

	const n = 32
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := store.CreateClient()
			_, errs[i] = svc.Place(id, root, nil, nil)
		}(i)
	}
	wg.Wait()

	// Capacity always grows faster than demand (every placed node opens
	// two slots), so every placement must have found a home.
	for i, err := range errs {
		assert.NoError(t, err, "placement %d", i)
	}
	assertCapacity(t, svc, store, root)
}

func TestDirectChildrenOrderStable(t *testing.T) {
	svc, store := newEngine()
	root := store.CreateClient()
	r, _ := place(t, svc, store, root, posPtr(Right))
	l, _ := place(t, svc, store, root, posPtr(Left))

	children, err := svc.DirectChildren(root)
	require.NoError(t, err)
	require.Len(t, children, 2)
	// Creation order, not slot order.
	assert.Equal(t, r, children[0].ID)
	assert.Equal(t, l, children[1].ID)
}

// P6: downline is the exact transitive closure of direct children, each
// node once, parents before their descendants.
func TestDownlineCompleteness(t *testing.T) {
	svc, store := newEngine()
	root := store.CreateClient()

	placed := map[uint]bool{}
	for i := 0; i < 20; i++ {
		id, _ := place(t, svc, store, root, nil)
		placed[id] = true
	}

	nodes, err := svc.Downline(root)
	require.NoError(t, err)
	require.Len(t, nodes, len(placed))

	seen := map[uint]bool{root: true}
	for _, n := range nodes {
		assert.False(t, seen[n.ID], "node %d emitted twice", n.ID)
		assert.True(t, placed[n.ID], "unexpected node %d", n.ID)
		// Pre-order: the parent was emitted (or is the root) already.
		require.NotNil(t, n.ParentID)
		assert.True(t, seen[*n.ParentID], "child %d before parent %d", n.ID, *n.ParentID)
		seen[n.ID] = true
	}
}

func TestDownlinePreOrder(t *testing.T) {
	svc, store := newEngine()
	a := store.CreateClient()
	b, _ := place(t, svc, store, a, nil) // A left
	c, _ := place(t, svc, store, a, nil) // A right
	d, _ := place(t, svc, store, b, nil) // B left
	e, _ := place(t, svc, store, b, nil) // B right

	nodes, err := svc.Downline(a)
	require.NoError(t, err)

	got := make([]uint, 0, len(nodes))
	for _, n := range nodes {
		got = append(got, n.ID)
	}
	assert.Equal(t, []uint{b, d, e, c}, got)
}

func TestDownlineLeaf(t *testing.T) {
	svc, store := newEngine()
	root := store.CreateClient()
	leaf, _ := place(t, svc, store, root, nil)

	nodes, err := svc.Downline(leaf)
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestDownlineUnknownNode(t *testing.T) {
	svc, _ := newEngine()
	_, err := svc.Downline(7)
	assert.ErrorIs(t, err, ErrParentNotFound)
}

// Corrupt parent links must abort with ErrCycle rather than loop.
func TestDownlineCycleDetection(t *testing.T) {
	store := NewMemStore()
	svc := NewService(store)
	a := store.CreateClient()
	b := store.CreateClient()
	require.NoError(t, store.Attach(b, a, Left))
	require.NoError(t, store.Attach(a, b, Left))

	_, err := svc.Downline(a)
	assert.ErrorIs(t, err, ErrCycle)
}

// P5 at depth: a saturated chain with a single opening at the bottom is
// still found by the creation-order scan.
func TestFallbackFindsDeepOpening(t *testing.T) {
	svc, store := newEngine()
	root := store.CreateClient()

	// A left-spine chain: each node's right slot is plugged by an
	// anchor so only the chain tips stay open.
	cur := root
	for i := 0; i < 200; i++ {
		plug := store.CreateAnchor()
		require.NoError(t, store.Attach(plug, cur, Right))
		next := store.CreateClient()
		require.NoError(t, store.Attach(next, cur, Left))
		cur = next
	}

	id := store.CreateClient()
	p, err := svc.Place(id, root, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, cur, p.ParentID)
	assert.Equal(t, Left, p.Position)
}
