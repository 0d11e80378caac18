package battle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/beingsarangi/battle-server/internal/card"
)

func newTestEngine(t *testing.T, msgr *scriptedMessenger, profiles *fakeProfiles) (*Engine, *Registry) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	registry := NewRegistry(logger)
	publisher := NewPublisher(profiles, logger)
	cfg := Config{
		DraftPickTimeout: time.Second,
		RoundPickTimeout: time.Second,
		ChallengeTTL:     5 * time.Minute,
	}
	return NewEngine(registry, msgr, profiles, publisher, cfg, logger), registry
}

func collectionA() []card.Card {
	return []card.Card{
		ratedCard("Isak", 9), ratedCard("Gordon", 8), ratedCard("Barnes", 7),
		ratedCard("Trippier", 6), ratedCard("Pope", 5),
	}
}

func collectionB() []card.Card {
	return []card.Card{
		ratedCard("Bruno", 5), ratedCard("Schar", 6), ratedCard("Tonali", 7),
		ratedCard("Burn", 8), ratedCard("Hall", 9),
	}
}

func TestChallengeRejectsSelfBattle(t *testing.T) {
	msgr := newScriptedMessenger()
	profiles := newFakeProfiles()
	engine, _ := newTestEngine(t, msgr, profiles)

	_, err := engine.Challenge(context.Background(), "alice", "alice")
	assert.ErrorIs(t, err, ErrInvalidOpponent)
}

func TestChallengeRequiresProfiles(t *testing.T) {
	msgr := newScriptedMessenger()
	profiles := newFakeProfiles()
	profiles.add("alice", collectionA()...)
	engine, _ := newTestEngine(t, msgr, profiles)

	_, err := engine.Challenge(context.Background(), "alice", "ghost")
	assert.ErrorIs(t, err, ErrUnknownProfile)

	_, err = engine.Challenge(context.Background(), "ghost", "alice")
	assert.ErrorIs(t, err, ErrUnknownProfile)
}

func TestChallengeRequiresThreeCards(t *testing.T) {
	msgr := newScriptedMessenger()
	profiles := newFakeProfiles()
	profiles.add("alice", collectionA()...)
	profiles.add("bob", ratedCard("Bruno", 5), ratedCard("Schar", 6))
	engine, _ := newTestEngine(t, msgr, profiles)

	_, err := engine.Challenge(context.Background(), "alice", "bob")
	assert.ErrorIs(t, err, ErrInsufficientCards)
}

func TestChallengeOpensPendingSession(t *testing.T) {
	msgr := newScriptedMessenger()
	profiles := newFakeProfiles()
	profiles.add("alice", collectionA()...)
	profiles.add("bob", collectionB()...)
	engine, registry := newTestEngine(t, msgr, profiles)

	sess, err := engine.Challenge(context.Background(), "alice", "bob")
	require.NoError(t, err)

	assert.Equal(t, StatusPendingAccept, sess.Status())
	assert.Equal(t, 3, sess.Hand("alice").Size())
	assert.Equal(t, 3, sess.Hand("bob").Size())

	got, ok := registry.Lookup("bob")
	require.True(t, ok)
	assert.Same(t, sess, got)

	require.NotEmpty(t, msgr.noticesFor("bob"))
	assert.Contains(t, msgr.noticesFor("bob")[0], "challenged you to a battle")
}

func TestChallengeWhileAlreadyInBattle(t *testing.T) {
	msgr := newScriptedMessenger()
	profiles := newFakeProfiles()
	profiles.add("alice", collectionA()...)
	profiles.add("bob", collectionB()...)
	profiles.add("carol", collectionA()...)
	engine, _ := newTestEngine(t, msgr, profiles)

	_, err := engine.Challenge(context.Background(), "alice", "bob")
	require.NoError(t, err)

	_, err = engine.Challenge(context.Background(), "carol", "alice")
	assert.ErrorIs(t, err, ErrAlreadyInBattle)
}

func TestAcceptRequiresPendingChallenge(t *testing.T) {
	msgr := newScriptedMessenger()
	profiles := newFakeProfiles()
	engine, _ := newTestEngine(t, msgr, profiles)

	_, err := engine.Accept(context.Background(), "bob")
	assert.ErrorIs(t, err, ErrNoPendingBattle)
}

func TestAcceptOnlyByChallengedParticipant(t *testing.T) {
	msgr := newScriptedMessenger()
	profiles := newFakeProfiles()
	profiles.add("alice", collectionA()...)
	profiles.add("bob", collectionB()...)
	engine, _ := newTestEngine(t, msgr, profiles)

	_, err := engine.Challenge(context.Background(), "alice", "bob")
	require.NoError(t, err)

	_, err = engine.Accept(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrInvalidOpponent)
}

// A reconnecting participant can have two live connections dispatching
// !accept for the same challenge; only one may start the pipeline.
func TestAcceptSecondCallRejected(t *testing.T) {
	msgr := newScriptedMessenger()
	profiles := newFakeProfiles()
	profiles.add("alice", collectionA()...)
	profiles.add("bob", collectionB()...)
	engine, registry := newTestEngine(t, msgr, profiles)

	sess, err := engine.Challenge(context.Background(), "alice", "bob")
	require.NoError(t, err)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := engine.Accept(context.Background(), "bob"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrNoPendingBattle)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)

	// The winner's empty-script draft times out; wait for the pipeline
	// to settle so nothing runs past the test.
	require.Eventually(t, func() bool {
		return sess.Status().Terminal() && registry.ActiveCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

// With three-card collections the draft pool is empty and no scripted
// reply can be valid, so the drafts time out and the engine cancels.
func TestAcceptDraftTimeoutCancelsBattle(t *testing.T) {
	msgr := newScriptedMessenger()
	profiles := newFakeProfiles()
	profiles.add("alice", ratedCard("Isak", 9), ratedCard("Gordon", 8), ratedCard("Barnes", 7))
	profiles.add("bob", ratedCard("Bruno", 5), ratedCard("Schar", 6), ratedCard("Tonali", 7))
	engine, registry := newTestEngine(t, msgr, profiles)

	sess, err := engine.Challenge(context.Background(), "alice", "bob")
	require.NoError(t, err)

	_, err = engine.Accept(context.Background(), "bob")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return sess.Status() == StatusCancelled
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 0, registry.ActiveCount())
	assert.Equal(t, 0, profiles.points("alice"))
	assert.Equal(t, 0, profiles.points("bob"))
	assert.Contains(t, msgr.noticesFor("alice"),
		"A player took too long to select their cards. The battle has been canceled.")
}

// runFixture wires a session already past the accept handshake, with
// hands holding the first three cards of each collection.
func runFixture(t *testing.T, msgr *scriptedMessenger) (*Engine, *Registry, *fakeProfiles, *Session) {
	t.Helper()
	profiles := newFakeProfiles()
	profiles.add("alice", collectionA()...)
	profiles.add("bob", collectionB()...)
	engine, registry := newTestEngine(t, msgr, profiles)

	colA, colB := collectionA(), collectionB()
	sess := NewSession("alice", "bob",
		mustHand(colA[0], colA[1], colA[2]),
		mustHand(colB[0], colB[1], colB[2]),
	)
	require.NoError(t, registry.Open(sess))
	require.NoError(t, sess.transition(StatusPendingAccept, StatusDrafting, 0))
	return engine, registry, profiles, sess
}

func TestRunPlaysFullBattle(t *testing.T) {
	msgr := newScriptedMessenger()
	engine, registry, profiles, sess := runFixture(t, msgr)

	// Draft picks grow both hands to the full five-card collections.
	msgr.queue("alice", "Trippier", "Pope")
	msgr.queue("bob", "Burn", "Hall")

	// Rounds pair the collections in order: 9v5, 8v6, 7v7, 6v8, 5v9.
	// The tie in round three goes to bob, so bob takes the battle 3-2.
	msgr.queue("alice",
		"Isak rating", "Gordon rating", "Barnes rating", "Trippier rating", "Pope rating")
	msgr.queue("bob", "Bruno", "Schar", "Tonali", "Burn", "Hall")

	engine.run(context.Background(), sess)

	assert.Equal(t, StatusComplete, sess.Status())
	results := sess.Results()
	require.Len(t, results, 5)

	scoreA, scoreB := sess.Scores()
	assert.Equal(t, 2, scoreA)
	assert.Equal(t, 3, scoreB)
	assert.Equal(t, "bob", results[2].WinnerID)

	assert.Equal(t, winnerBonus, profiles.points("bob"))
	assert.Equal(t, 0, profiles.points("alice"))

	assert.Equal(t, 0, registry.ActiveCount())
	assert.Contains(t, msgr.noticesFor("alice"), "The final winner is: bob with 3 points!")
}

func TestRunRoundTimeoutCancels(t *testing.T) {
	msgr := newScriptedMessenger()
	engine, registry, profiles, sess := runFixture(t, msgr)

	msgr.queue("alice", "Trippier", "Pope")
	msgr.queue("bob", "Burn", "Hall")
	// No round replies: the first round times out on alice's pick.

	engine.run(context.Background(), sess)

	assert.Equal(t, StatusCancelled, sess.Status())
	assert.Empty(t, sess.Results())
	assert.Equal(t, 0, registry.ActiveCount())
	assert.Equal(t, 0, profiles.points("alice"))
	assert.Equal(t, 0, profiles.points("bob"))
	assert.Contains(t, msgr.noticesFor("bob"),
		"A user took too long to select a card. The battle has been canceled.")
}

func TestCancelStaleSweepsExpiredChallenges(t *testing.T) {
	msgr := newScriptedMessenger()
	profiles := newFakeProfiles()
	profiles.add("alice", collectionA()...)
	profiles.add("bob", collectionB()...)
	engine, registry := newTestEngine(t, msgr, profiles)

	sess, err := engine.Challenge(context.Background(), "alice", "bob")
	require.NoError(t, err)

	// A fresh challenge survives the sweep.
	assert.Equal(t, 0, engine.CancelStale(context.Background()))
	assert.Equal(t, StatusPendingAccept, sess.Status())

	sess.CreateTime = time.Now().Add(-10 * time.Minute)
	assert.Equal(t, 1, engine.CancelStale(context.Background()))
	assert.Equal(t, StatusCancelled, sess.Status())
	assert.Equal(t, 0, registry.ActiveCount())
}
