package card

import (
	"fmt"
	"strings"
)

// Hand is the ordered set of cards a participant holds during a battle.
// Cards leave the hand when played and never return. A hand never holds
// two cards with the same name.
type Hand struct {
	cards []Card
}

// NewHand builds a hand from the given cards. It fails on duplicate
// card names.
func NewHand(cards ...Card) (*Hand, error) {
	h := &Hand{cards: make([]Card, 0, len(cards))}
	for _, c := range cards {
		if err := h.Add(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// Add appends a card, rejecting duplicate identities.
func (h *Hand) Add(c Card) error {
	if _, ok := h.Get(c.Name); ok {
		return fmt.Errorf("duplicate card %q in hand", c.Name)
	}
	h.cards = append(h.cards, c)
	return nil
}

// Get finds a card by name, case-insensitively.
func (h *Hand) Get(name string) (Card, bool) {
	for _, c := range h.cards {
		if c.SameName(name) {
			return c, true
		}
	}
	return Card{}, false
}

// Contains reports whether the hand holds a card with the given name.
func (h *Hand) Contains(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Remove takes the named card out of the hand. It returns false when the
// card is not present.
func (h *Hand) Remove(name string) bool {
	for i, c := range h.cards {
		if c.SameName(name) {
			h.cards = append(h.cards[:i], h.cards[i+1:]...)
			return true
		}
	}
	return false
}

// Size returns the number of cards remaining.
func (h *Hand) Size() int {
	return len(h.cards)
}

// Cards returns a copy of the hand's cards in order.
func (h *Hand) Cards() []Card {
	out := make([]Card, len(h.cards))
	copy(out, h.cards)
	return out
}

// Names returns the card names in order.
func (h *Hand) Names() []string {
	names := make([]string, len(h.cards))
	for i, c := range h.cards {
		names[i] = c.Name
	}
	return names
}

// Summary renders one attribute line per card, for reveal prompts.
func (h *Hand) Summary() string {
	lines := make([]string, len(h.cards))
	for i, c := range h.cards {
		lines[i] = c.Summary()
	}
	return strings.Join(lines, "\n")
}
