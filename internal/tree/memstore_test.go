package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreCandidateOrder(t *testing.T) {
	store := NewMemStore()
	root := store.CreateAnchor()
	a := store.CreateClient()
	b := store.CreateClient()
	c := store.CreateClient()
	require.NoError(t, store.Attach(a, root, Left))
	require.NoError(t, store.Attach(b, root, Right))
	require.NoError(t, store.Attach(c, a, Left))

	ids, err := store.CandidateIDs()
	require.NoError(t, err)
	assert.Equal(t, []uint{a, b, c}, ids)
}

func TestMemStoreAnchorNotCandidate(t *testing.T) {
	store := NewMemStore()
	store.CreateAnchor()
	ids, err := store.CandidateIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestMemStoreAttachConflict(t *testing.T) {
	store := NewMemStore()
	root := store.CreateAnchor()
	a := store.CreateClient()
	b := store.CreateClient()

	require.NoError(t, store.Attach(a, root, Left))
	err := store.Attach(b, root, Left)
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.Nil(t, store.Get(b).ParentID)
}

func TestMemStoreAttachUnknownNode(t *testing.T) {
	store := NewMemStore()
	root := store.CreateAnchor()
	err := store.Attach(99, root, Left)
	assert.ErrorIs(t, err, ErrUnknownNode)
}

func TestMemStoreChildrenOf(t *testing.T) {
	store := NewMemStore()
	root := store.CreateAnchor()
	a := store.CreateClient()
	require.NoError(t, store.Attach(a, root, Right))

	children, err := store.ChildrenOf(root)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, a, children[0].ID)
	require.NotNil(t, children[0].Position)
	assert.Equal(t, Right, *children[0].Position)
}
