package card

import (
	"fmt"
	"strings"
)

// Recognized stat keys, canonical lower-case form.
const (
	StatRating = "rating"
	StatApps   = "apps"
	StatAgr    = "agr"
	StatSV     = "sv"
	StatGA     = "g/a"
	StatTW     = "tw"
)

var validStats = map[string]bool{
	StatRating: true,
	StatApps:   true,
	StatAgr:    true,
	StatSV:     true,
	StatGA:     true,
	StatTW:     true,
}

// ValidStat reports whether tok names a recognized stat. Matching is
// case-insensitive.
func ValidStat(tok string) bool {
	return validStats[CanonicalStat(tok)]
}

// CanonicalStat normalizes a stat token to its canonical lower-case key.
func CanonicalStat(tok string) string {
	return strings.ToLower(strings.TrimSpace(tok))
}

// StatKeys returns the recognized stat keys in display order.
func StatKeys() []string {
	return []string{StatRating, StatApps, StatAgr, StatSV, StatGA, StatTW}
}

// Card is a single collectible card. The name is the card's identity and
// is unique (case-insensitively) within a hand. Cards are immutable once
// drawn into a hand for the duration of a battle.
type Card struct {
	Name     string
	Rating   float64
	Price    int
	Stats    map[string]float64
	ImageURL string
}

// Stat returns the card's value for the given stat key. Rating is a
// first-class attribute; everything else comes from the sparse stat map.
// A missing value counts as 0.
func (c Card) Stat(key string) float64 {
	key = CanonicalStat(key)
	if key == StatRating {
		return c.Rating
	}
	if v, ok := c.Stats[key]; ok {
		return v
	}
	return 0
}

// SameName reports whether the card's name matches, ignoring case.
func (c Card) SameName(name string) bool {
	return strings.EqualFold(c.Name, name)
}

// Summary renders a one-line attribute summary for prompts.
func (c Card) Summary() string {
	parts := make([]string, 0, 6)
	parts = append(parts, fmt.Sprintf("%g rating", c.Rating))
	for _, key := range []string{StatApps, StatAgr, StatSV, StatGA, StatTW} {
		if v, ok := c.Stats[key]; ok {
			parts = append(parts, fmt.Sprintf("%g %s", v, strings.ToUpper(key)))
		} else {
			parts = append(parts, fmt.Sprintf("N/A %s", strings.ToUpper(key)))
		}
	}
	return fmt.Sprintf("%s - %s", c.Name, strings.Join(parts, ", "))
}
