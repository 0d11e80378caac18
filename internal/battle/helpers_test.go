package battle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/beingsarangi/battle-server/internal/card"
	"github.com/beingsarangi/battle-server/internal/messenger"
)

// scriptedMessenger feeds pre-queued replies to AwaitReply and records
// every notification, keeping battle flows deterministic in tests.
type scriptedMessenger struct {
	mu      sync.Mutex
	replies map[string][]string
	notices map[string][]string
}

func newScriptedMessenger() *scriptedMessenger {
	return &scriptedMessenger{
		replies: make(map[string][]string),
		notices: make(map[string][]string),
	}
}

func (m *scriptedMessenger) queue(userID string, lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies[userID] = append(m.replies[userID], lines...)
}

func (m *scriptedMessenger) Notify(_ context.Context, userID, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notices[userID] = append(m.notices[userID], content)
}

// AwaitReply pops queued lines, applying the filter the way the real
// mux does: rejected lines are consumed from the script but do not
// resolve the wait. An exhausted script behaves as a timeout.
func (m *scriptedMessenger) AwaitReply(_ context.Context, userID string, filter messenger.ReplyFilter, _ time.Duration) (string, error) {
	for {
		m.mu.Lock()
		queue := m.replies[userID]
		if len(queue) == 0 {
			m.mu.Unlock()
			return "", messenger.ErrReplyTimeout
		}
		line := queue[0]
		m.replies[userID] = queue[1:]
		m.mu.Unlock()

		if filter(line) {
			return line, nil
		}
	}
}

func (m *scriptedMessenger) noticesFor(userID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.notices[userID]))
	copy(out, m.notices[userID])
	return out
}

// fakeProfiles is an in-memory ProfileStore.
type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*Profile
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: make(map[string]*Profile)}
}

func (f *fakeProfiles) add(userID string, cards ...card.Card) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[userID] = &Profile{UserID: userID, Name: userID, Cards: cards}
}

func (f *fakeProfiles) GetProfile(_ context.Context, userID string) (*Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("no profile %s", userID)
	}
	cp := *p
	cp.Cards = append([]card.Card(nil), p.Cards...)
	return &cp, nil
}

func (f *fakeProfiles) AddPoints(_ context.Context, userID string, delta int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		return fmt.Errorf("no profile %s", userID)
	}
	p.Points += delta
	return nil
}

func (f *fakeProfiles) RecordResult(_ context.Context, winnerID, loserID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[winnerID]; ok {
		p.Wins++
	}
	if p, ok := f.profiles[loserID]; ok {
		p.Losses++
	}
	return nil
}

func (f *fakeProfiles) points(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[userID].Points
}

// ratedCard builds a card with just a rating, the common test shape.
func ratedCard(name string, rating float64) card.Card {
	return card.Card{Name: name, Rating: rating}
}

// mustHand builds a hand or fails loudly.
func mustHand(cards ...card.Card) *card.Hand {
	h, err := card.NewHand(cards...)
	if err != nil {
		panic(err)
	}
	return h
}
