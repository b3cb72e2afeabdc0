package board

import (
	"fmt"
	"math/rand"
)

// CardState is the face of a single card.
type CardState int

const (
	FaceDown CardState = iota
	FaceUp
	Matched
)

func (s CardState) String() string {
	switch s {
	case FaceDown:
		return "faceDown"
	case FaceUp:
		return "faceUp"
	case Matched:
		return "matched"
	}
	return fmt.Sprintf("CardState(%d)", int(s))
}

// Card is one slot on the board. ID is the slot index.
type Card struct {
	ID    int
	Value string
	State CardState
}

// ConfigurationError reports a board that cannot be built.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid board configuration: %s %s", e.Field, e.Reason)
}

// Board holds the cards of a single round.
type Board struct {
	cards []Card
}

// Build lays out 2*pairCount cards. Pair i takes pool[i%len(pool)], so a short
// pool cycles. The sequence is shuffled before it is bound to slots. A nil rng
// uses the package-level source.
func Build(pairCount int, pool []string, rng *rand.Rand) (*Board, error) {
	if pairCount < 1 {
		return nil, &ConfigurationError{Field: "pairCount", Reason: fmt.Sprintf("must be at least 1, got %d", pairCount)}
	}
	if len(pool) == 0 {
		return nil, &ConfigurationError{Field: "valuePool", Reason: "must not be empty"}
	}

	values := make([]string, 0, pairCount*2)
	for i := 0; i < pairCount; i++ {
		v := pool[i%len(pool)]
		values = append(values, v, v)
	}

	intn := rand.Intn
	if rng != nil {
		intn = rng.Intn
	}
	shuffle(values, intn)

	cards := make([]Card, len(values))
	for i, v := range values {
		cards[i] = Card{ID: i, Value: v, State: FaceDown}
	}
	return &Board{cards: cards}, nil
}

// shuffle is Fisher-Yates: walk i from n-1 down to 1, swap with j in [0, i].
func shuffle[T any](s []T, intn func(int) int) {
	for i := len(s) - 1; i > 0; i-- {
		j := intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}

func (b *Board) Len() int {
	return len(b.cards)
}

// PairCount is half the number of cards.
func (b *Board) PairCount() int {
	return len(b.cards) / 2
}

// Card returns a copy of the card with the given id.
func (b *Board) Card(id int) (Card, bool) {
	if id < 0 || id >= len(b.cards) {
		return Card{}, false
	}
	return b.cards[id], true
}

// Cards returns a copy of every card in slot order.
func (b *Board) Cards() []Card {
	out := make([]Card, len(b.cards))
	copy(out, b.cards)
	return out
}

// AllMatched is true once every card is Matched.
func (b *Board) AllMatched() bool {
	for _, c := range b.cards {
		if c.State != Matched {
			return false
		}
	}
	return true
}

// Reset turns every card face down without reshuffling.
func (b *Board) Reset() {
	for i := range b.cards {
		b.cards[i].State = FaceDown
	}
}

// Flip turns a card face up.
func (b *Board) Flip(id int) {
	b.set(id, FaceUp)
}

// Hide turns a card face down.
func (b *Board) Hide(id int) {
	b.set(id, FaceDown)
}

// MarkMatched takes a card out of play.
func (b *Board) MarkMatched(id int) {
	b.set(id, Matched)
}

func (b *Board) set(id int, st CardState) {
	if id < 0 || id >= len(b.cards) {
		return
	}
	b.cards[id].State = st
}
