package rating

import (
	"math"
	"sort"

	"matchrank/internal/models"
)

// Plackett-Luce model constants (openskill defaults, sigma per the original
// team data model).
const (
	SkillInitialMu    = models.DefaultMu
	SkillInitialSigma = models.DefaultSigma
	skillBeta         = SkillInitialMu / 6.0
	skillKappa        = 0.0001
)

// SkillRating is a Bayesian skill estimate: mean and uncertainty.
type SkillRating struct {
	Mu    float64
	Sigma float64
}

// SkillEntry is one row of a skill ranking snapshot.
type SkillEntry struct {
	Team   string
	Rating SkillRating
}

// PlackettLuce maintains (mu, sigma) skill ratings per team and updates them
// with the two-team Plackett-Luce reduction. Rankings are sorted by mu
// descending with stable insertion-order tie-breaks.
type PlackettLuce struct {
	ratings map[string]SkillRating
	order   []string
}

// NewPlackettLuce returns an empty skill model state.
func NewPlackettLuce() *PlackettLuce {
	return &PlackettLuce{ratings: make(map[string]SkillRating)}
}

// Reset discards all rating state.
func (p *PlackettLuce) Reset() {
	p.ratings = make(map[string]SkillRating)
	p.order = p.order[:0]
}

// Rating returns the current rating for a team, initializing it on first use.
func (p *PlackettLuce) Rating(team string) SkillRating {
	if r, ok := p.ratings[team]; ok {
		return r
	}
	r := SkillRating{Mu: SkillInitialMu, Sigma: SkillInitialSigma}
	p.ratings[team] = r
	p.order = append(p.order, team)
	return r
}

// ProcessMatch applies one match outcome. A decisive result ranks the winner 1
// and the loser 2; a draw ranks both 1, which signals no separation.
func (p *PlackettLuce) ProcessMatch(home, away string, homeGoals, awayGoals int) {
	homeRating := p.Rating(home)
	awayRating := p.Rating(away)

	var ranks [2]int
	switch {
	case homeGoals > awayGoals:
		ranks = [2]int{1, 2}
	case homeGoals < awayGoals:
		ranks = [2]int{2, 1}
	default:
		ranks = [2]int{1, 1}
	}

	updated := rate([2]SkillRating{homeRating, awayRating}, ranks)
	p.ratings[home] = updated[0]
	p.ratings[away] = updated[1]
}

// rate is the two-team Plackett-Luce update. Follows the openskill model:
// partial-pairing sums over teams ranked at or better, with the gamma factor
// sigma/c damping the variance reduction and kappa flooring it.
func rate(ratings [2]SkillRating, ranks [2]int) [2]SkillRating {
	var sumSigmaSq float64
	for _, r := range ratings {
		sumSigmaSq += r.Sigma*r.Sigma + skillBeta*skillBeta
	}
	c := math.Sqrt(sumSigmaSq)

	// sumQ[i]: sum of exp(mu/c) over teams ranked no better than team i.
	// a[i]: number of teams tied at team i's rank.
	var sumQ [2]float64
	var a [2]int
	for i := range ratings {
		for q := range ratings {
			if ranks[q] >= ranks[i] {
				sumQ[i] += math.Exp(ratings[q].Mu / c)
			}
			if ranks[q] == ranks[i] {
				a[i]++
			}
		}
	}

	var out [2]SkillRating
	for i, r := range ratings {
		sigmaSq := r.Sigma * r.Sigma
		expMu := math.Exp(r.Mu / c)

		var omega, delta float64
		for q := range ratings {
			if ranks[q] > ranks[i] {
				continue
			}
			quotient := expMu / sumQ[q]
			if i == q {
				omega += (1 - quotient) / float64(a[q])
			} else {
				omega += -quotient / float64(a[q])
			}
			delta += quotient * (1 - quotient) / float64(a[q])
		}

		gamma := r.Sigma / c
		mu := r.Mu + (sigmaSq/c)*omega
		sigma := r.Sigma * math.Sqrt(math.Max(1-(sigmaSq/(c*c))*gamma*delta, skillKappa))
		out[i] = SkillRating{Mu: mu, Sigma: sigma}
	}
	return out
}

// Rankings returns all teams sorted by mu descending, stable for exact ties.
func (p *PlackettLuce) Rankings() []SkillEntry {
	entries := make([]SkillEntry, 0, len(p.order))
	for _, team := range p.order {
		entries = append(entries, SkillEntry{Team: team, Rating: p.ratings[team]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Rating.Mu > entries[j].Rating.Mu
	})
	return entries
}

// Len reports how many teams have been rated.
func (p *PlackettLuce) Len() int { return len(p.ratings) }
