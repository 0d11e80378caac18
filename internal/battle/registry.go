package battle

import (
	"sync"

	"go.uber.org/zap"
)

// Registry maps participant identity to their active battle session and
// enforces the single-battle-per-user rule. Both participants key the
// same *Session; neither side holds an independent copy.
type Registry struct {
	logger *zap.Logger

	mu       sync.RWMutex
	byUserID map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		logger:   logger,
		byUserID: make(map[string]*Session),
	}
}

// Open binds both participants to the session. It fails with
// ErrAlreadyInBattle when either participant already owns a non-terminal
// session, leaving the registry unchanged.
func (r *Registry) Open(sess *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range []string{sess.ChallengerID, sess.OpponentID} {
		if existing, ok := r.byUserID[id]; ok && !existing.Status().Terminal() {
			return ErrAlreadyInBattle
		}
	}

	r.byUserID[sess.ChallengerID] = sess
	r.byUserID[sess.OpponentID] = sess

	r.logger.Info("battle session opened",
		zap.String("session_id", sess.ID),
		zap.String("challenger", sess.ChallengerID),
		zap.String("opponent", sess.OpponentID),
	)
	return nil
}

// Close removes both participant keys atomically. Keys held by a
// different session are left alone.
func (r *Registry) Close(sess *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range []string{sess.ChallengerID, sess.OpponentID} {
		if r.byUserID[id] == sess {
			delete(r.byUserID, id)
		}
	}

	r.logger.Info("battle session closed",
		zap.String("session_id", sess.ID),
		zap.String("status", sess.Status().String()),
	)
}

// Lookup finds the session a participant is bound to.
func (r *Registry) Lookup(userID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.byUserID[userID]
	return sess, ok
}

// Sessions returns the distinct sessions currently registered.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool, len(r.byUserID))
	out := make([]*Session, 0, len(r.byUserID)/2+1)
	for _, sess := range r.byUserID {
		if !seen[sess.ID] {
			seen[sess.ID] = true
			out = append(out, sess)
		}
	}
	return out
}

// ActiveCount returns the number of distinct non-terminal sessions.
func (r *Registry) ActiveCount() int {
	count := 0
	for _, sess := range r.Sessions() {
		if !sess.Status().Terminal() {
			count++
		}
	}
	return count
}
