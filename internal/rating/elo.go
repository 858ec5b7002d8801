package rating

import (
	"math"
	"sort"

	"matchrank/internal/models"
)

// Elo K-factor and initial rating for newly seen teams.
const (
	EloKFactor        = 30.0
	EloInitialRating  = models.DefaultElo
	eloScaleDivisor   = 400.0
	eloExpectedBase10 = 10.0
)

// Entry is one row of a ranking snapshot.
type Entry struct {
	Team   string
	Rating float64
}

// Elo is the scalar pairwise rating model. Teams are default-initialized on
// first reference; rankings preserve insertion order for exact ties.
type Elo struct {
	k       float64
	initial float64
	ratings map[string]float64
	order   []string
}

// NewElo returns an empty Elo state with the standard constants.
func NewElo() *Elo {
	return &Elo{
		k:       EloKFactor,
		initial: EloInitialRating,
		ratings: make(map[string]float64),
	}
}

// Reset discards all rating state. Required before reprocessing a different
// scope so stale teams do not leak into the new rankings.
func (e *Elo) Reset() {
	e.ratings = make(map[string]float64)
	e.order = e.order[:0]
}

// Rating returns the current rating for a team, initializing it on first use.
func (e *Elo) Rating(team string) float64 {
	if r, ok := e.ratings[team]; ok {
		return r
	}
	e.ratings[team] = e.initial
	e.order = append(e.order, team)
	return e.initial
}

// Expected is the probability of the first team beating the second.
func (e *Elo) Expected(ratingA, ratingB float64) float64 {
	return 1.0 / (1.0 + math.Pow(eloExpectedBase10, (ratingB-ratingA)/eloScaleDivisor))
}

// ProcessMatch applies one match outcome to both teams' ratings. Goal counts
// are trusted to be non-negative; that is the caller's contract.
func (e *Elo) ProcessMatch(home, away string, homeGoals, awayGoals int) {
	homeRating := e.Rating(home)
	awayRating := e.Rating(away)

	expHome := e.Expected(homeRating, awayRating)
	expAway := 1.0 - expHome

	var actualHome, actualAway float64
	switch {
	case homeGoals > awayGoals:
		actualHome, actualAway = 1.0, 0.0
	case homeGoals < awayGoals:
		actualHome, actualAway = 0.0, 1.0
	default:
		actualHome, actualAway = 0.5, 0.5
	}

	e.ratings[home] = homeRating + e.k*(actualHome-expHome)
	e.ratings[away] = awayRating + e.k*(actualAway-expAway)
}

// Rankings returns all teams sorted by rating descending. The sort is stable
// over insertion order so replays produce identical output for exact ties.
func (e *Elo) Rankings() []Entry {
	entries := make([]Entry, 0, len(e.order))
	for _, team := range e.order {
		entries = append(entries, Entry{Team: team, Rating: e.ratings[team]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Rating > entries[j].Rating
	})
	return entries
}

// Len reports how many teams have been rated.
func (e *Elo) Len() int { return len(e.ratings) }
