package gameserver

import (
	"fmt"

	"github.com/cory-johannsen/autobattle/internal/config"
	"github.com/cory-johannsen/autobattle/internal/game/ability"
	"github.com/cory-johannsen/autobattle/internal/game/combat"
	"github.com/cory-johannsen/autobattle/internal/game/dice"
	"github.com/cory-johannsen/autobattle/internal/game/inventory"
)

// DefaultShopSize is the number of items offered after each fight.
const DefaultShopSize = 5

// Catalog holds the static content loaded at startup.
type Catalog struct {
	Abilities *ability.Catalog
	Items     *inventory.Catalog
	ShopSize  int
}

// LoadCatalog reads the ability and item catalogs below cfg.Dir.
//
// Postcondition: Returns a populated Catalog or the first load error.
func LoadCatalog(cfg config.ContentConfig) (*Catalog, error) {
	abilities, err := ability.LoadDirectory(cfg.AbilitiesDir())
	if err != nil {
		return nil, fmt.Errorf("loading abilities: %w", err)
	}
	items, err := inventory.LoadDirectory(cfg.ItemsDir())
	if err != nil {
		return nil, fmt.Errorf("loading items: %w", err)
	}
	return &Catalog{Abilities: abilities, Items: items, ShopSize: DefaultShopSize}, nil
}

// QuestItems returns the quest item pool.
func (c *Catalog) QuestItems() []*inventory.Item {
	return c.Items.QuestItems()
}

// Shop draws up to ShopSize distinct equippable items using rng.
//
// Postcondition: Returns a non-nil slice; listings are distinct.
func (c *Catalog) Shop(rng dice.Source) []combat.ShopListing {
	pool := c.Items.Equippable()
	n := min(c.ShopSize, len(pool))
	out := make([]combat.ShopListing, 0, n)
	for i := 0; i < n; i++ {
		j := dice.RangeInt(rng, i, len(pool)-1)
		pool[i], pool[j] = pool[j], pool[i]
		out = append(out, combat.ShopListing{ItemID: pool[i].ID, Price: pool[i].Price})
	}
	return out
}

// Registry builds the behavior registry for every catalog ability: the
// built-in behaviors plus Lua hooks for scripted abilities.
//
// Precondition: runner may be nil only when no ability names a script.
// Postcondition: Returns an error naming any ability left without a behavior.
func (c *Catalog) Registry(runner combat.ScriptRunner) (*combat.Registry, error) {
	reg := combat.DefaultRegistry()
	defs := c.Abilities.All()
	if runner != nil {
		if err := reg.RegisterScripts(defs, runner); err != nil {
			return nil, err
		}
	}
	if missing := reg.Missing(defs); len(missing) > 0 {
		return nil, fmt.Errorf("gameserver: abilities without behavior: %v", missing)
	}
	return reg, nil
}
