// Package content holds the card catalog rooms draw characters and decks from.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"

	"gopkg.in/yaml.v3"

	"github.com/DoyleJ11/bunker-backend/internal/engine"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var ErrEmptyPool = errors.New("content: empty card pool")

type Card struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type Bio struct {
	Gender      string `yaml:"gender"`
	Age         int    `yaml:"age"`
	Orientation string `yaml:"orientation"`
}

// Value renders a bio the way it appears on the card.
func (b Bio) Value() string {
	v := fmt.Sprintf("%s, %d y.o.", b.Gender, b.Age)
	if b.Orientation != "" {
		v += ", " + b.Orientation
	}
	return v
}

type ActionCard struct {
	ID             string `yaml:"id"`
	Title          string `yaml:"title"`
	Description    string `yaml:"description"`
	TargetRequired bool   `yaml:"targetRequired"`
}

// Catalog is immutable once loaded and safe for concurrent readers.
type Catalog struct {
	Professions  []Card       `yaml:"professions"`
	Bios         []Bio        `yaml:"bios"`
	Health       []Card       `yaml:"health"`
	Hobbies      []Card       `yaml:"hobbies"`
	Baggage      []Card       `yaml:"baggage"`
	Facts        []Card       `yaml:"facts"`
	Actions      []ActionCard `yaml:"actions"`
	Catastrophes []Card       `yaml:"catastrophes"`
	Bunker       []Card       `yaml:"bunker"`
	Threats      []Card       `yaml:"threats"`
}

// Default parses the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("content: decode catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) validate() error {
	pools := []struct {
		name string
		n    int
	}{
		{"professions", len(c.Professions)},
		{"bios", len(c.Bios)},
		{"health", len(c.Health)},
		{"hobbies", len(c.Hobbies)},
		{"baggage", len(c.Baggage)},
		{"facts", len(c.Facts)},
		{"actions", len(c.Actions)},
		{"catastrophes", len(c.Catastrophes)},
		{"bunker", len(c.Bunker)},
		{"threats", len(c.Threats)},
	}
	for _, p := range pools {
		if p.n == 0 {
			return fmt.Errorf("%w: %s", ErrEmptyPool, p.name)
		}
	}
	if len(c.Bunker) < engine.BunkerCardCount(engine.DefaultConfig().MaxPlayers) {
		return fmt.Errorf("content: bunker deck has %d cards, need at least %d",
			len(c.Bunker), engine.BunkerCardCount(engine.DefaultConfig().MaxPlayers))
	}

	seen := make(map[string]string)
	for name, pool := range map[string][]Card{
		"professions": c.Professions,
		"health":      c.Health,
		"hobbies":     c.Hobbies,
		"baggage":     c.Baggage,
		"facts":       c.Facts,
	} {
		for _, card := range pool {
			if other, ok := seen[card.Title]; ok && other != name {
				return fmt.Errorf("content: %q appears in both %s and %s", card.Title, other, name)
			}
			seen[card.Title] = name
		}
	}
	return nil
}

func pick[T any](rng *rand.Rand, pool []T) T {
	return pool[rng.IntN(len(pool))]
}

func attr(t engine.AttributeType, label string, card Card) engine.Attribute {
	return engine.Attribute{Type: t, Label: label, Value: card.Title, Detail: card.Description}
}

// Character deals a fresh character. Professions already in usedProfessions
// are avoided while any other remains.
func (c *Catalog) Character(rng *rand.Rand, usedProfessions map[string]bool) engine.Character {
	var free []Card
	for _, p := range c.Professions {
		if !usedProfessions[p.Title] {
			free = append(free, p)
		}
	}
	if len(free) == 0 {
		free = c.Professions
	}
	bio := pick(rng, c.Bios)
	action := pick(rng, c.Actions)

	return engine.Character{
		Attributes: []engine.Attribute{
			attr(engine.AttrProfession, "Profession", pick(rng, free)),
			{Type: engine.AttrBio, Label: "Biology", Value: bio.Value()},
			attr(engine.AttrHealth, "Health", pick(rng, c.Health)),
			attr(engine.AttrHobby, "Hobby", pick(rng, c.Hobbies)),
			attr(engine.AttrBaggage, "Baggage", pick(rng, c.Baggage)),
			attr(engine.AttrFact, "Fact", pick(rng, c.Facts)),
		},
		ActionCard: engine.ActionCard{
			ID:             action.ID,
			Title:          action.Title,
			Description:    action.Description,
			TargetRequired: action.TargetRequired,
		},
	}
}

func (c *Catalog) Catastrophe(rng *rand.Rand) engine.Catastrophe {
	card := pick(rng, c.Catastrophes)
	return engine.Catastrophe{Title: card.Title, Description: card.Description}
}

// BunkerCards samples n distinct bunker cards.
func (c *Catalog) BunkerCards(rng *rand.Rand, n int) []engine.BunkerCard {
	n = min(n, len(c.Bunker))
	out := make([]engine.BunkerCard, 0, n)
	for _, i := range rng.Perm(len(c.Bunker))[:n] {
		out = append(out, engine.BunkerCard{Title: c.Bunker[i].Title, Description: c.Bunker[i].Description})
	}
	return out
}

func (c *Catalog) ThreatCard(rng *rand.Rand) engine.ThreatCard {
	card := pick(rng, c.Threats)
	return engine.ThreatCard{Title: card.Title, Description: card.Description}
}

// ReplacementBunkerCard draws a bunker card whose title is not in exclude.
func (c *Catalog) ReplacementBunkerCard(rng *rand.Rand, exclude map[string]bool) (engine.BunkerCard, bool) {
	var free []Card
	for _, b := range c.Bunker {
		if !exclude[b.Title] {
			free = append(free, b)
		}
	}
	if len(free) == 0 {
		return engine.BunkerCard{}, false
	}
	card := pick(rng, free)
	return engine.BunkerCard{Title: card.Title, Description: card.Description}, true
}

var _ engine.Content = (*Catalog)(nil)
