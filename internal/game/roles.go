package game

import "math/rand"

// RoleSetFor returns the fixed role multiset for a player count:
// always one assassin; one healer and one detective once three or more
// players are in; everyone else is a villager.
func RoleSetFor(playerCount int) []Role {
	roles := make([]Role, 0, playerCount)
	roles = append(roles, RoleAssassin)
	if playerCount >= 3 {
		roles = append(roles, RoleHealer, RoleDetective)
	}
	for len(roles) < playerCount {
		roles = append(roles, RoleVillager)
	}
	return roles
}

// AssignRoles deals a fresh random permutation of the role multiset
// across the players and marks everyone alive. The caller supplies the
// randomness source so tests can seed it.
func AssignRoles(players []*Player, rng *rand.Rand) {
	roles := RoleSetFor(len(players))
	rng.Shuffle(len(roles), func(i, j int) {
		roles[i], roles[j] = roles[j], roles[i]
	})

	for i, p := range players {
		p.Role = roles[i]
		p.Status = PlayerAlive
	}
}
