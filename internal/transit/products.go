package transit

import (
	pendla "github.com/pendla/pendla/internal"
)

// product describes one planner product category.
type product struct {
	mode pendla.TravelMode
	mask int // the planner's "Products" bitmask value for this category
}

// productsByCategory maps planner category codes to travel modes.
var productsByCategory = map[string]product{
	"MET": {mode: pendla.ModeMetro, mask: 2},
	"BUS": {mode: pendla.ModeBus, mask: 8},
	"TRN": {mode: pendla.ModeCommuterTrain, mask: 1},
	"TRM": {mode: pendla.ModeLightRail, mask: 4},
	"SHP": {mode: pendla.ModeShip, mask: 64},
}

// ModeForCategory resolves a planner product category to a travel mode.
func ModeForCategory(category string) (pendla.TravelMode, bool) {
	p, ok := productsByCategory[category]
	return p.mode, ok
}

// ProductMask sums the planner bitmask values for the given modes.
// An empty or nil mode set returns 0 (no product filter).
func ProductMask(modes []pendla.TravelMode) int {
	mask := 0
	for _, m := range modes {
		for _, p := range productsByCategory {
			if p.mode == m {
				mask += p.mask
				break
			}
		}
	}
	return mask
}
