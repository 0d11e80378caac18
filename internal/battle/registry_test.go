package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestSession(a, b string) *Session {
	return NewSession(a, b,
		mustHand(ratedCard("One", 1), ratedCard("Two", 2), ratedCard("Three", 3)),
		mustHand(ratedCard("Four", 4), ratedCard("Five", 5), ratedCard("Six", 6)),
	)
}

func TestRegistryOpenBindsBothParticipantsToOneSession(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	sess := newTestSession("alice", "bob")

	require.NoError(t, r.Open(sess))

	fromA, ok := r.Lookup("alice")
	require.True(t, ok)
	fromB, ok := r.Lookup("bob")
	require.True(t, ok)

	// Shared ownership: both keys resolve to the same session object.
	assert.Same(t, sess, fromA)
	assert.Same(t, fromA, fromB)
}

func TestRegistryRejectsSecondBattleForBusyParticipant(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	require.NoError(t, r.Open(newTestSession("alice", "bob")))

	err := r.Open(newTestSession("alice", "carol"))
	assert.ErrorIs(t, err, ErrAlreadyInBattle)

	err = r.Open(newTestSession("carol", "bob"))
	assert.ErrorIs(t, err, ErrAlreadyInBattle)

	// Neither failed Open may leave carol registered.
	_, ok := r.Lookup("carol")
	assert.False(t, ok)
}

func TestRegistryCloseRemovesBothKeysAtomically(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	sess := newTestSession("alice", "bob")
	require.NoError(t, r.Open(sess))

	r.Close(sess)

	_, okA := r.Lookup("alice")
	_, okB := r.Lookup("bob")
	assert.False(t, okA)
	assert.False(t, okB)

	// Both participants are free to battle again.
	require.NoError(t, r.Open(newTestSession("alice", "carol")))
	require.NoError(t, r.Open(newTestSession("bob", "dave")))
}

func TestRegistryCloseLeavesForeignKeysAlone(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	first := newTestSession("alice", "bob")
	require.NoError(t, r.Open(first))
	r.Close(first)

	second := newTestSession("alice", "carol")
	require.NoError(t, r.Open(second))

	// Closing the stale first session must not evict the second.
	r.Close(first)
	got, ok := r.Lookup("alice")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistryActiveCount(t *testing.T) {
	r := NewRegistry(zaptest.NewLogger(t))
	require.NoError(t, r.Open(newTestSession("alice", "bob")))
	require.NoError(t, r.Open(newTestSession("carol", "dave")))

	assert.Equal(t, 2, r.ActiveCount())
	assert.Len(t, r.Sessions(), 2)
}
