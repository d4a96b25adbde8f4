package game

import "slices"

type Cursors struct {
	Dreamer    int
	Supervisor int
}

// Reindex removes order[departed] and moves the turn cursors so that players
// who already dreamt are not asked again and nobody who has not is skipped.
//
// When the departed player was the dreamer, the next player in order takes
// the turn. The returned Dreamer cursor equals len(order) when nobody is left
// to dream. A departed supervisor is replaced by the next player, wrapping.
func Reindex(order []int64, c Cursors, departed int) ([]int64, Cursors) {
	if departed < 0 || departed >= len(order) {
		return slices.Clone(order), c
	}
	next := slices.Delete(slices.Clone(order), departed, departed+1)
	if len(next) == 0 {
		return next, Cursors{}
	}

	if departed < c.Dreamer {
		c.Dreamer--
	}

	switch {
	case departed < c.Supervisor:
		c.Supervisor--
	case departed == c.Supervisor && c.Supervisor >= len(next):
		c.Supervisor = 0
	}

	if c.Dreamer < len(next) && c.Supervisor == c.Dreamer && len(next) > 1 {
		c.Supervisor = (c.Dreamer + 1) % len(next)
	}
	return next, c
}
