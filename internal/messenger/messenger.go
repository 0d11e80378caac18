// Package messenger routes participant replies to the battle waits that
// are suspended on them. It is the only suspension primitive the battle
// engine uses: every draft pick and round pick blocks in AwaitReply until
// the relevant participant answers or the deadline passes.
package messenger

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrReplyTimeout is returned when a wait's deadline passes without an
// accepted reply. The deadline runs from the first prompt; rejected
// replies do not extend it.
var ErrReplyTimeout = errors.New("timed out waiting for reply")

// ReplyFilter inspects an incoming line from the awaited participant.
// Returning true accepts the line and resumes the wait; returning false
// leaves the wait open without consuming its deadline. A filter may send
// a retry prompt itself before rejecting.
type ReplyFilter func(text string) bool

// Notifier delivers outbound content to a participant, fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, userID, content string)
}

// Messenger is the collaborator surface the battle engine depends on.
type Messenger interface {
	Notifier

	// AwaitReply blocks until the participant sends a line the filter
	// accepts, the timeout passes, or ctx is cancelled.
	AwaitReply(ctx context.Context, userID string, filter ReplyFilter, timeout time.Duration) (string, error)
}

type waiter struct {
	filter ReplyFilter
	ch     chan string
}

// Mux dispatches incoming participant lines to pending waits and fans
// notifications out to a pluggable sender. Lines a wait's filter rejects
// are not consumed by that wait and stay available to other waits on the
// same participant.
type Mux struct {
	logger *zap.Logger
	sender Notifier

	mu      sync.Mutex
	waiters map[string][]*waiter
}

// NewMux creates a reply mux. The sender carries Notify content to the
// participant's transport; a nil sender drops notifications, which is
// useful in tests that only exercise reply routing.
func NewMux(sender Notifier, logger *zap.Logger) *Mux {
	return &Mux{
		logger:  logger,
		sender:  sender,
		waiters: make(map[string][]*waiter),
	}
}

// Notify forwards content to the participant.
func (m *Mux) Notify(ctx context.Context, userID, content string) {
	if m.sender != nil {
		m.sender.Notify(ctx, userID, content)
	}
}

// AwaitReply suspends until the participant sends an accepted line.
func (m *Mux) AwaitReply(ctx context.Context, userID string, filter ReplyFilter, timeout time.Duration) (string, error) {
	w := &waiter{filter: filter, ch: make(chan string, 1)}

	m.mu.Lock()
	m.waiters[userID] = append(m.waiters[userID], w)
	m.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case text := <-w.ch:
		return text, nil
	case <-timer.C:
		if !m.drop(userID, w) {
			// Deliver won the race at the deadline; take the reply.
			return <-w.ch, nil
		}
		return "", ErrReplyTimeout
	case <-ctx.Done():
		if !m.drop(userID, w) {
			return <-w.ch, nil
		}
		return "", ctx.Err()
	}
}

// Deliver hands an incoming line from a participant to the first pending
// wait whose filter accepts it. It returns false when no wait consumed
// the line. Filters run under the mux lock, so a waiter's filter never
// executes concurrently with the code that resumed from its wait.
func (m *Mux) Deliver(userID, text string) bool {
	m.mu.Lock()

	for i, w := range m.waiters[userID] {
		if !w.filter(text) {
			continue
		}
		list := m.waiters[userID]
		m.waiters[userID] = append(list[:i], list[i+1:]...)
		if len(m.waiters[userID]) == 0 {
			delete(m.waiters, userID)
		}
		m.mu.Unlock()
		w.ch <- text
		return true
	}
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Debug("unclaimed reply",
			zap.String("user_id", userID),
			zap.Int("line_len", len(text)),
		)
	}
	return false
}

// PendingWaits reports how many waits are open for a participant.
func (m *Mux) PendingWaits(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiters[userID])
}

// drop removes a waiter, reporting whether it was still registered.
func (m *Mux) drop(userID string, target *waiter) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := m.waiters[userID]
	for i, w := range list {
		if w == target {
			m.waiters[userID] = append(list[:i], list[i+1:]...)
			if len(m.waiters[userID]) == 0 {
				delete(m.waiters, userID)
			}
			return true
		}
	}
	return false
}
