package game

import (
	"cmp"
	"slices"
)

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// SandmanPoints rewards the sandman for keeping the round balanced.
func SandmanPoints(correct, incorrect int) int {
	switch {
	case correct == incorrect:
		return correct + 2
	case abs(correct-incorrect) == 1:
		return max(correct, incorrect)
	default:
		return min(correct, incorrect)
	}
}

func DreamerPoints(correct int, retoldCorrectly bool) int {
	if retoldCorrectly {
		return correct + 2
	}
	return correct
}

// scoreRound credits the finished round to every player by role and grants
// the per-round dreamer achievements.
func scoreRound(s *Session) {
	g, ok := s.Game()
	if !ok {
		return
	}
	r := g.Round
	sandman := SandmanPoints(r.Correct, r.Incorrect)

	for _, p := range s.Players {
		switch p.Role {
		case RoleBuka:
			p.Statistic.ScoreBuka += r.Incorrect
		case RoleFairy:
			p.Statistic.ScoreFairy += r.Correct
		case RoleSandman:
			p.Statistic.ScoreSandman += sandman
		case RoleDreamer:
			p.Statistic.ScoreDreamer += DreamerPoints(r.Correct, r.RetoldCorrectly)
			if r.Correct == 0 {
				p.Award(AchievementNightmare)
			}
			if r.Correct >= 4 && r.Incorrect == 0 && r.RetoldCorrectly {
				p.Award(AchievementDreamMaster)
			}
		}
	}
}

type playerOutcome struct {
	userRef      int64
	statistic    map[string]int
	achievements map[string]int
}

var superlatives = []struct {
	achievement Achievement
	value       func(Statistic) int
}{
	{AchievementTopPenalties, func(s Statistic) int { return s.Penalties }},
	{AchievementTopBuka, func(s Statistic) int { return s.ScoreBuka }},
	{AchievementTopFairy, func(s Statistic) int { return s.ScoreFairy }},
	{AchievementTopSandman, func(s Statistic) int { return s.ScoreSandman }},
	{AchievementTopDreamer, func(s Statistic) int { return s.ScoreDreamer }},
	{AchievementTopScore, Statistic.Final},
}

// settleGame ranks the players, hands out end-of-game achievements and
// returns what has to be added to every player's lifetime record.
func settleGame(s *Session) []playerOutcome {
	if len(s.Players) == 0 {
		s.Results = nil
		return nil
	}

	for _, sup := range superlatives {
		best := 0
		for _, p := range s.Players {
			best = max(best, sup.value(p.Statistic))
		}
		if best <= 0 {
			continue
		}
		for _, p := range s.Players {
			if sup.value(p.Statistic) == best {
				p.Award(sup.achievement)
			}
		}
	}

	s.Results = rank(s.Players)
	topScore := s.Results[0].Score

	outcomes := make([]playerOutcome, 0, len(s.Players))
	for _, p := range s.Players {
		st := p.Statistic
		out := playerOutcome{
			userRef: p.UserRef,
			statistic: map[string]int{
				"top_penalties":     st.Penalties,
				"top_score":         st.Final(),
				"top_score_buka":    st.ScoreBuka,
				"top_score_fairy":   st.ScoreFairy,
				"top_score_sandman": st.ScoreSandman,
				"top_score_dreamer": st.ScoreDreamer,
			},
			achievements: make(map[string]int, len(p.Achievements)),
		}
		if st.Final() == topScore {
			out.statistic["total_wins"] = 1
		}
		for _, a := range p.Achievements {
			out.achievements[string(a)] = 1
		}
		outcomes = append(outcomes, out)
	}
	return outcomes
}

func rank(players []*PlayerEntry) []Standing {
	standings := make([]Standing, 0, len(players))
	for _, p := range players {
		standings = append(standings, Standing{PlayerId: p.Id, DisplayName: p.DisplayName, Score: p.Statistic.Final()})
	}
	slices.SortStableFunc(standings, func(a, b Standing) int {
		return cmp.Compare(b.Score, a.Score)
	})
	for i := range standings {
		if i > 0 && standings[i].Score == standings[i-1].Score {
			standings[i].Place = standings[i-1].Place
			continue
		}
		standings[i].Place = i + 1
	}
	return standings
}
