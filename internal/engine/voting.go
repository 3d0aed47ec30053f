package engine

import "math/rand/v2"

// VotingSchedule distributes playerCount - floor(playerCount/2) eliminations
// over rounds: one each to rounds 2..N, then round 1, then a second voting to
// rounds N..2, then round 1 again.
func VotingSchedule(playerCount, rounds int) []int {
	schedule := make([]int, rounds)
	if rounds == 0 {
		return schedule
	}
	remaining := playerCount - BunkerCapacity(playerCount)

	for i := 1; i < rounds && remaining > 0; i++ {
		schedule[i] = 1
		remaining--
	}
	if remaining > 0 {
		schedule[0]++
		remaining--
	}
	for i := rounds - 1; i >= 1 && remaining > 0; i-- {
		schedule[i]++
		remaining--
	}
	// Whatever is left lands on round 1; only reachable with very large rooms.
	schedule[0] += max(0, remaining)
	return schedule
}

func BunkerCapacity(playerCount int) int {
	return playerCount / 2
}

// BunkerCardCount scales the bunker deck with the room: 3 cards up to four
// players, 4 for five, 5 from six.
func BunkerCardCount(playerCount int) int {
	switch {
	case playerCount <= 4:
		return 3
	case playerCount == 5:
		return 4
	default:
		return 5
	}
}

func HasThreatCard(playerCount int) bool {
	return playerCount >= 6
}

type Tally struct {
	Counts  map[string]int
	Max     int
	Leaders []string // candidates at Max, in candidate order
}

// CountVotes tallies votes (voter -> target) over candidates. Votes for
// anyone outside candidates are ignored.
func CountVotes(votes map[string]string, candidates []string) Tally {
	t := Tally{Counts: make(map[string]int, len(candidates))}
	for _, id := range candidates {
		t.Counts[id] = 0
	}
	for _, target := range votes {
		if _, ok := t.Counts[target]; ok {
			t.Counts[target]++
		}
	}
	for _, id := range candidates {
		if c := t.Counts[id]; c > t.Max {
			t.Max = c
		}
	}
	if t.Max == 0 {
		return t
	}
	for _, id := range candidates {
		if t.Counts[id] == t.Max {
			t.Leaders = append(t.Leaders, id)
		}
	}
	return t
}

type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeEliminate
	OutcomeTiebreak
)

// Resolve turns a tally into a decision. A tie outside a tie-break narrows
// the field; a tie inside one is settled uniformly at random.
func Resolve(t Tally, tiebreak bool, rng *rand.Rand) (Outcome, string, []string) {
	switch {
	case t.Max == 0 || len(t.Leaders) == 0:
		return OutcomeNone, "", nil
	case len(t.Leaders) == 1:
		return OutcomeEliminate, t.Leaders[0], nil
	case tiebreak:
		return OutcomeEliminate, t.Leaders[rng.IntN(len(t.Leaders))], nil
	default:
		return OutcomeTiebreak, "", append([]string(nil), t.Leaders...)
	}
}
