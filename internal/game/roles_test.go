package game

import (
	"math/rand"
	"testing"
)

func TestRoleSetFor(t *testing.T) {
	tests := []struct {
		name        string
		playerCount int
		want        map[Role]int
	}{
		{"3 players", 3, map[Role]int{RoleAssassin: 1, RoleHealer: 1, RoleDetective: 1}},
		{"4 players", 4, map[Role]int{RoleAssassin: 1, RoleHealer: 1, RoleDetective: 1, RoleVillager: 1}},
		{"10 players", 10, map[Role]int{RoleAssassin: 1, RoleHealer: 1, RoleDetective: 1, RoleVillager: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roles := RoleSetFor(tt.playerCount)

			if len(roles) != tt.playerCount {
				t.Fatalf("expected %d roles, got %d", tt.playerCount, len(roles))
			}

			counts := make(map[Role]int)
			for _, r := range roles {
				counts[r]++
			}
			for role, want := range tt.want {
				if counts[role] != want {
					t.Errorf("role %s: got %d, want %d", role, counts[role], want)
				}
			}
		})
	}
}

func TestAssignRoles(t *testing.T) {
	players := make([]*Player, 6)
	for i := range players {
		players[i] = &Player{ID: string(rune('a' + i)), Status: PlayerDead}
	}

	AssignRoles(players, rand.New(rand.NewSource(42)))

	counts := make(map[Role]int)
	for _, p := range players {
		if p.Role == "" {
			t.Errorf("player %s has no role", p.ID)
		}
		if p.Status != PlayerAlive {
			t.Errorf("player %s should be reset to alive", p.ID)
		}
		counts[p.Role]++
	}

	if counts[RoleAssassin] != 1 || counts[RoleHealer] != 1 || counts[RoleDetective] != 1 {
		t.Errorf("unexpected special role counts: %v", counts)
	}
	if counts[RoleVillager] != 3 {
		t.Errorf("expected 3 villagers, got %d", counts[RoleVillager])
	}
}

func TestAssignRolesIsPermutation(t *testing.T) {
	// Two different seeds over the same players should (almost always)
	// disagree, proving the deal is actually shuffled.
	deal := func(seed int64) []Role {
		players := make([]*Player, 6)
		for i := range players {
			players[i] = &Player{ID: string(rune('a' + i))}
		}
		AssignRoles(players, rand.New(rand.NewSource(seed)))
		roles := make([]Role, len(players))
		for i, p := range players {
			roles[i] = p.Role
		}
		return roles
	}

	a := deal(1)
	same := true
	for seed := int64(2); seed < 10; seed++ {
		b := deal(seed)
		for i := range a {
			if a[i] != b[i] {
				same = false
			}
		}
	}
	if same {
		t.Error("role assignment never varied across seeds")
	}
}

func TestIsSpecial(t *testing.T) {
	if !RoleAssassin.IsSpecial() || !RoleHealer.IsSpecial() || !RoleDetective.IsSpecial() {
		t.Error("assassin, healer and detective are special roles")
	}
	if RoleVillager.IsSpecial() {
		t.Error("villager is not a special role")
	}
}

func TestActionFor(t *testing.T) {
	tests := []struct {
		role Role
		want ActionType
		ok   bool
	}{
		{RoleAssassin, ActionKill, true},
		{RoleHealer, ActionHeal, true},
		{RoleDetective, ActionInvestigate, true},
		{RoleVillager, "", false},
	}

	for _, tt := range tests {
		got, ok := tt.role.ActionFor()
		if got != tt.want || ok != tt.ok {
			t.Errorf("%s.ActionFor() = %q, %v; want %q, %v", tt.role, got, ok, tt.want, tt.ok)
		}
	}
}
