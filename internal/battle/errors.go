package battle

import "errors"

var (
	// ErrAlreadyInBattle means a participant is already bound to a
	// non-terminal session.
	ErrAlreadyInBattle = errors.New("participant already in an active battle")

	// ErrInvalidOpponent means the named opponent cannot take part: a
	// self-challenge, or an accept from someone other than the
	// challenged participant.
	ErrInvalidOpponent = errors.New("invalid battle opponent")

	// ErrNoPendingBattle means there is no challenge waiting for the
	// participant to accept.
	ErrNoPendingBattle = errors.New("no pending battle to accept")

	// ErrInsufficientCards means a participant's collection holds fewer
	// cards than a battle needs at challenge time.
	ErrInsufficientCards = errors.New("not enough cards to battle")

	// ErrTimeout means a suspending wait exceeded its deadline. It is
	// always terminal for the owning session.
	ErrTimeout = errors.New("battle wait timed out")

	// ErrUnknownProfile means a participant has no profile in the store.
	ErrUnknownProfile = errors.New("participant profile not found")
)
