package models

import "time"

// Default rating values for a team that has never played a rated match.
const (
	DefaultElo   = 1500.0
	DefaultMu    = 25.0
	DefaultSigma = 8.333
)

// Team is a registered team with its current rating state. Identity is the
// case-sensitive name; rating fields are owned by the rating engine, match
// count and league by the registry.
type Team struct {
	Name       string
	Elo        float64
	Mu         float64
	Sigma      float64
	MatchCount int
	League     string

	// History is append-only, chronological by match date.
	History []RatingSnapshot
}

// NewTeam returns a team with default ratings.
func NewTeam(name string) *Team {
	return &Team{
		Name:  name,
		Elo:   DefaultElo,
		Mu:    DefaultMu,
		Sigma: DefaultSigma,
	}
}

// DisplayRating is the TrueSkill-style conservative rating used for display.
func (t *Team) DisplayRating() float64 {
	return 2*t.Mu - 3*t.Sigma
}

// RatingSnapshot records a team's post-match rating state. Created exactly once
// per (team, match) pair and never mutated.
type RatingSnapshot struct {
	MatchID   int64
	Mu        float64
	Elo       float64
	Sigma     float64
	MatchDate time.Time
}
