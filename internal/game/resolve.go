package game

import (
	"math/rand"
	"strings"
)

// Outcome is the result of resolving one round. VictimID is the player
// who died this round, empty when nobody did. Winner is set iff Finished.
type Outcome struct {
	Summary  string
	VictimID string
	Finished bool
	Winner   Winner
}

// ResolveRound computes what happens at the end of a round. It is a pure
// function of the current players and the round's actions: no player is
// mutated and nothing is persisted. The caller applies the outcome
// atomically.
//
// Order matters: kill (with a random fallback when the assassin stalled),
// heal cancels kill, death, investigation, the kill-vs-investigate
// tie-break, then the win conditions in priority order.
func ResolveRound(players []*Player, actions []*Action, rng *rand.Rand) Outcome {
	byID := make(map[string]*Player, len(players))
	var assassin *Player
	for _, p := range players {
		byID[p.ID] = p
		if p.Role == RoleAssassin {
			assassin = p
		}
	}

	var killAction, healAction, investigateAction *Action
	for _, a := range actions {
		switch a.Type {
		case ActionKill:
			if killAction == nil {
				killAction = a
			}
		case ActionHeal:
			if healAction == nil {
				healAction = a
			}
		case ActionInvestigate:
			if investigateAction == nil {
				investigateAction = a
			}
		}
	}

	var clauses []string

	// 1. Kill target. A stalled assassin still strikes, blindly.
	var victim *Player
	if killAction != nil {
		victim = byID[killAction.TargetID]
	} else if assassin != nil && assassin.Status == PlayerAlive {
		var candidates []*Player
		for _, p := range players {
			if p.Status == PlayerAlive && p.ID != assassin.ID {
				candidates = append(candidates, p)
			}
		}
		if len(candidates) > 0 {
			victim = candidates[rng.Intn(len(candidates))]
			clauses = append(clauses, "The assassin didn't choose in time, so they struck at random.")
		}
	}

	// 2. Heal cancels the kill when it lands on the same target.
	saved := false
	if victim != nil && healAction != nil && healAction.TargetID == victim.ID {
		saved = true
		victim = nil
		clauses = append(clauses, "The healer saved the victim tonight!")
	}

	detectiveDied := victim != nil && victim.Role == RoleDetective

	// 4. Investigation only ever reveals the assassin. Innocent targets
	// leak nothing, not even to the summary.
	assassinDiscovered := false
	if investigateAction != nil {
		if target := byID[investigateAction.TargetID]; target != nil && target.Role == RoleAssassin {
			assassinDiscovered = true
		}
	}

	// 5. Tie-break: detective died and discovered the assassin in the
	// same round. The earlier submission happened first in narrative
	// time; equal timestamps default to the kill.
	if detectiveDied && assassinDiscovered {
		investigateFirst := killAction == nil ||
			investigateAction.CreatedAt.Before(killAction.CreatedAt)
		if investigateFirst {
			clauses = append(clauses, "The detective was faster and unmasked the assassin before the attack landed!")
			detectiveDied = false
			victim = nil
		} else {
			clauses = append(clauses, "The assassin was faster and silenced the detective before being named.")
			assassinDiscovered = false
		}
	}

	// Apply the death to the outcome.
	out := Outcome{}
	if victim != nil {
		out.VictimID = victim.ID
		clauses = append(clauses, victim.Name+" was killed.")
	} else if !saved && !assassinDiscovered {
		clauses = append(clauses, "A quiet night. Nobody died.")
	}

	// 6. Win conditions, first match wins.
	switch {
	case assassinDiscovered:
		clauses = append(clauses, "The assassin has been unmasked!")
		out.Finished = true
		out.Winner = WinnerVillagers
	case assassin == nil || assassin.Status == PlayerDead || out.VictimID == assassin.ID:
		clauses = append(clauses, "The assassin is dead!")
		out.Finished = true
		out.Winner = WinnerVillagers
	case detectiveDied:
		clauses = append(clauses, "The detective is dead. The crime will go unpunished.")
		out.Finished = true
		out.Winner = WinnerImpostor
	case aliveAfter(players, out.VictimID) <= 2:
		clauses = append(clauses, "Too few remain to stop the impostor.")
		out.Finished = true
		out.Winner = WinnerImpostor
	}

	out.Summary = strings.Join(clauses, " ")
	return out
}

// aliveAfter counts players still alive once this round's victim is removed.
func aliveAfter(players []*Player, victimID string) int {
	count := 0
	for _, p := range players {
		if p.Status == PlayerAlive && p.ID != victimID {
			count++
		}
	}
	return count
}
