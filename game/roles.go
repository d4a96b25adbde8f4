package game

import "slices"

type roleCounts struct {
	fairy, buka, sandman int
}

// roleTable holds the role card deck for every supported table size. The deck
// has one card per player; one sandman card is set aside before dealing to the
// non-dreamers so every fairy and buka card stays in play.
var roleTable = map[int]roleCounts{
	4:  {fairy: 1, buka: 1, sandman: 2},
	5:  {fairy: 2, buka: 1, sandman: 2},
	6:  {fairy: 3, buka: 2, sandman: 1},
	7:  {fairy: 3, buka: 2, sandman: 2},
	8:  {fairy: 4, buka: 3, sandman: 1},
	9:  {fairy: 4, buka: 3, sandman: 2},
	10: {fairy: 5, buka: 4, sandman: 1},
}

func roleDeck(players int) ([]Role, error) {
	counts, ok := roleTable[players]
	if !ok {
		return nil, ErrRosterSizeInvalid
	}
	deck := make([]Role, 0, players)
	for range counts.fairy {
		deck = append(deck, RoleFairy)
	}
	for range counts.buka {
		deck = append(deck, RoleBuka)
	}
	for range counts.sandman {
		deck = append(deck, RoleSandman)
	}
	return deck, nil
}

// dealtRoles is the role deck without the card that is set aside.
func dealtRoles(players int) ([]Role, error) {
	deck, err := roleDeck(players)
	if err != nil {
		return nil, err
	}
	i := slices.Index(deck, RoleSandman)
	if i < 0 {
		return deck[:len(deck)-1], nil
	}
	return slices.Delete(deck, i, i+1), nil
}

// assignRoles makes the current dreamer the Dreamer and deals a shuffled role
// deck to everybody else.
func assignRoles(s *Session, rz *randomizer) error {
	g, ok := s.Game()
	if !ok {
		return ErrLobbyNotFound
	}
	deck, err := dealtRoles(len(g.DreamingOrder))
	if err != nil {
		return err
	}
	rz.shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })

	dreamer := g.DreamerId()
	dealt := 0
	for _, id := range g.DreamingOrder {
		p := s.Player(id)
		if p == nil {
			continue
		}
		if id == dreamer {
			p.Role = RoleDreamer
			continue
		}
		p.Role = deck[dealt]
		dealt++
	}
	return nil
}
