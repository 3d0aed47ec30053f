package content

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/bunker-backend/internal/engine"
)

func newRand() *rand.Rand { return rand.New(rand.NewPCG(42, 1)) }

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.NotEmpty(t, c.Professions)
	assert.GreaterOrEqual(t, len(c.Bunker), 5)
}

func TestCharacterHasEveryAttributeTypeOnce(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	rng := newRand()

	for i := 0; i < 50; i++ {
		ch := c.Character(rng, map[string]bool{})
		require.Len(t, ch.Attributes, 6)
		for j, a := range ch.Attributes {
			assert.Equal(t, engine.AttributeOrder[j], a.Type)
			assert.NotEmpty(t, a.Value)
		}
		assert.NotEmpty(t, ch.ActionCard.ID)
	}
}

func TestCharacterAvoidsUsedProfessions(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	rng := newRand()

	used := map[string]bool{}
	for range c.Professions {
		ch := c.Character(rng, used)
		title := ch.Attributes[0].Value
		assert.False(t, used[title], "profession %q dealt twice", title)
		used[title] = true
	}

	// Pool exhausted: still deals something.
	ch := c.Character(rng, used)
	assert.NotEmpty(t, ch.Attributes[0].Value)
}

func TestBunkerCardsAreDistinct(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	cards := c.BunkerCards(newRand(), 5)
	require.Len(t, cards, 5)
	seen := map[string]bool{}
	for _, card := range cards {
		assert.False(t, seen[card.Title])
		seen[card.Title] = true
	}
}

func TestReplacementBunkerCard(t *testing.T) {
	c, err := Parse([]byte(`
professions: [{title: A}]
bios: [{gender: Male, age: 30}]
health: [{title: B}]
hobbies: [{title: C}]
baggage: [{title: D}]
facts: [{title: E}]
actions: [{id: x, title: X}]
catastrophes: [{title: Flood}]
bunker: [{title: b1}, {title: b2}, {title: b3}, {title: b4}, {title: b5}]
threats: [{title: Rats}]
`))
	require.NoError(t, err)

	card, ok := c.ReplacementBunkerCard(newRand(), map[string]bool{"b1": true, "b2": true, "b3": true, "b4": true})
	require.True(t, ok)
	assert.Equal(t, "b5", card.Title)

	_, ok = c.ReplacementBunkerCard(newRand(), map[string]bool{"b1": true, "b2": true, "b3": true, "b4": true, "b5": true})
	assert.False(t, ok)
}

func TestParseRejectsBadCatalogs(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{name: "not yaml", doc: "professions: [unterminated"},
		{name: "empty pools", doc: "professions: [{title: A}]"},
		{
			name: "shared title across pools",
			doc: `
professions: [{title: Same}]
bios: [{gender: Male, age: 30}]
health: [{title: Same}]
hobbies: [{title: C}]
baggage: [{title: D}]
facts: [{title: E}]
actions: [{id: x, title: X}]
catastrophes: [{title: Flood}]
bunker: [{title: b1}, {title: b2}, {title: b3}, {title: b4}, {title: b5}]
threats: [{title: Rats}]
`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestBioValue(t *testing.T) {
	assert.Equal(t, "Female, 45 y.o., Bisexual", Bio{Gender: "Female", Age: 45, Orientation: "Bisexual"}.Value())
	assert.Equal(t, "Male, 30 y.o.", Bio{Gender: "Male", Age: 30}.Value())
}
