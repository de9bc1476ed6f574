package games

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/mcoot/archive/internal/model"
)

// Constructor builds a variant from shared dependencies
type Constructor func(Deps) (Variant, error)

type registration struct {
	key model.GameID
	new Constructor
}

// Registry lists the variants available to Discover, in registration order
type Registry struct {
	entries []registration
}

// Register adds a constructor under key. A later registration with the same
// key replaces the earlier one in place.
func (r *Registry) Register(key model.GameID, ctor Constructor) {
	for i, entry := range r.entries {
		if entry.key == key {
			r.entries[i].new = ctor
			return
		}
	}
	r.entries = append(r.entries, registration{key: key, new: ctor})
}

// Keys returns the registered keys in order
func (r *Registry) Keys() []model.GameID {
	keys := make([]model.GameID, len(r.entries))
	for i, entry := range r.entries {
		keys[i] = entry.key
	}
	return keys
}

// Catalog holds the games that were successfully constructed
type Catalog struct {
	games []*Game
	byID  map[model.GameID]*Game
}

// Discover constructs every registered variant. Constructors that fail or
// panic, and variants whose Info is incomplete or does not match the
// registered key, are skipped with a warning.
func Discover(registry *Registry, deps Deps, logger *slog.Logger) *Catalog {
	catalog := &Catalog{byID: make(map[model.GameID]*Game)}
	if registry == nil {
		return catalog
	}

	for _, entry := range registry.entries {
		variant, err := construct(entry, deps)
		if err != nil {
			logger.Warn("skipping game", "game_id", entry.key, "error", err)
			continue
		}

		game := New(variant, logger)
		catalog.games = append(catalog.games, game)
		catalog.byID[entry.key] = game
	}

	logger.Info("game catalog loaded", "games", len(catalog.games), "registered", len(registry.entries))
	return catalog
}

func construct(entry registration, deps Deps) (variant Variant, err error) {
	defer func() {
		if r := recover(); r != nil {
			variant = nil
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()

	if entry.new == nil {
		return nil, fmt.Errorf("no constructor")
	}
	variant, err = entry.new(deps)
	if err != nil {
		return nil, err
	}
	if variant == nil {
		return nil, fmt.Errorf("constructor returned no variant")
	}
	if err := validateInfo(entry.key, variant.Info()); err != nil {
		return nil, err
	}
	return variant, nil
}

func validateInfo(key model.GameID, info model.GameInfo) error {
	switch {
	case strings.TrimSpace(string(info.ID)) == "":
		return fmt.Errorf("missing game id")
	case info.ID != key:
		return fmt.Errorf("game id %q does not match registered key", info.ID)
	case strings.TrimSpace(info.Name) == "":
		return fmt.Errorf("missing name")
	case strings.TrimSpace(info.Description) == "":
		return fmt.Errorf("missing description")
	}
	return nil
}

// Games returns the games in registration order
func (c *Catalog) Games() []*Game {
	return append([]*Game(nil), c.games...)
}

// Get looks up a game by ID
func (c *Catalog) Get(id model.GameID) (*Game, error) {
	game, ok := c.byID[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return game, nil
}

// Infos returns the description of every game in registration order
func (c *Catalog) Infos() []model.GameInfo {
	infos := make([]model.GameInfo, len(c.games))
	for i, game := range c.games {
		infos[i] = game.Info()
	}
	return infos
}

func (c *Catalog) Len() int {
	return len(c.games)
}
