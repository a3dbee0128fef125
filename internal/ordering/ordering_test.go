package ordering

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type card struct {
	id       uuid.UUID
	position int
}

func (c *card) GetID() uuid.UUID { return c.id }
func (c *card) GetPosition() int { return c.position }
func (c *card) SetPosition(p int) { c.position = p }

func newCards(n int) []*card {
	cards := make([]*card, n)
	for i := range cards {
		cards[i] = &card{id: uuid.New(), position: i}
	}
	return cards
}

func positions(cards []*card) map[uuid.UUID]int {
	out := make(map[uuid.UUID]int, len(cards))
	for _, c := range cards {
		out[c.id] = c.position
	}
	return out
}

func TestReorder(t *testing.T) {
	cards := newCards(3)
	c1, c2, c3 := cards[0], cards[1], cards[2]

	ordered, err := Reorder(cards, []uuid.UUID{c2.id, c1.id, c3.id})
	require.NoError(t, err)

	assert.Equal(t, []*card{c2, c1, c3}, ordered)
	assert.Equal(t, 0, c2.position)
	assert.Equal(t, 1, c1.position)
	assert.Equal(t, 2, c3.position)
}

func TestReorder_UnknownIDLeavesPositionsUntouched(t *testing.T) {
	cards := newCards(3)
	before := positions(cards)
	unknown := uuid.New()

	_, err := Reorder(cards, []uuid.UUID{cards[2].id, unknown, cards[0].id})

	var unknownErr *UnknownItemError
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, unknown, unknownErr.ID)
	assert.Contains(t, err.Error(), unknown.String())
	assert.Equal(t, before, positions(cards))
}

func TestReorder_DuplicateID(t *testing.T) {
	cards := newCards(2)
	before := positions(cards)

	_, err := Reorder(cards, []uuid.UUID{cards[1].id, cards[1].id})
	assert.ErrorIs(t, err, ErrDuplicateItem)
	assert.Equal(t, before, positions(cards))
}

func TestReorder_OmittedChildrenFollowListed(t *testing.T) {
	cards := newCards(4)
	c0, c1, c2, c3 := cards[0], cards[1], cards[2], cards[3]

	ordered, err := Reorder(cards, []uuid.UUID{c3.id, c1.id})
	require.NoError(t, err)

	assert.Equal(t, []*card{c3, c1, c0, c2}, ordered)
	assert.True(t, IsDense(cards))
}

func TestAppend(t *testing.T) {
	assert.Equal(t, 0, Append(0))
	assert.Equal(t, 5, Append(5))
}

func TestRemove(t *testing.T) {
	cards := newCards(4)
	removed := cards[1]

	shifted := Remove(cards, removed)

	assert.ElementsMatch(t, []*card{cards[2], cards[3]}, shifted)
	assert.Equal(t, 0, cards[0].position)
	assert.Equal(t, 1, cards[2].position)
	assert.Equal(t, 2, cards[3].position)
	assert.True(t, IsDense([]*card{cards[0], cards[2], cards[3]}))
}

func TestRemove_Last(t *testing.T) {
	cards := newCards(3)
	shifted := Remove(cards[:2], cards[2])
	assert.Empty(t, shifted)
}

func TestInsert(t *testing.T) {
	cards := newCards(3)
	moving := &card{id: uuid.New(), position: 7}

	changed := Insert(cards, moving, 1)

	assert.Equal(t, 0, cards[0].position)
	assert.Equal(t, 1, moving.position)
	assert.Equal(t, 2, cards[1].position)
	assert.Equal(t, 3, cards[2].position)
	assert.ElementsMatch(t, []*card{moving, cards[1], cards[2]}, changed)
}

func TestInsert_ClampsIndex(t *testing.T) {
	cards := newCards(2)

	tail := &card{id: uuid.New()}
	Insert(cards, tail, 99)
	assert.Equal(t, 2, tail.position)

	head := &card{id: uuid.New()}
	Insert(append(cards, tail), head, -3)
	assert.Equal(t, 0, head.position)
	assert.Equal(t, 3, tail.position)
}

func TestCompact(t *testing.T) {
	a := &card{id: uuid.New(), position: 2}
	b := &card{id: uuid.New(), position: 5}
	c := &card{id: uuid.New(), position: 0}

	changed := Compact([]*card{a, b, c})

	assert.Equal(t, 0, c.position)
	assert.Equal(t, 1, a.position)
	assert.Equal(t, 2, b.position)
	assert.ElementsMatch(t, []*card{a, b}, changed)
}

func TestIsDense(t *testing.T) {
	assert.True(t, IsDense([]*card{}))
	assert.True(t, IsDense(newCards(3)))
	assert.False(t, IsDense([]*card{{position: 0}, {position: 2}}))
	assert.False(t, IsDense([]*card{{position: 1}, {position: 1}}))
}
