package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlackettLuceDefaultInitialization(t *testing.T) {
	p := NewPlackettLuce()

	r := p.Rating("Bayern")
	assert.Equal(t, 25.0, r.Mu)
	assert.Equal(t, 8.333, r.Sigma)
	assert.Equal(t, 1, p.Len())
}

func TestPlackettLuceDecisiveResult(t *testing.T) {
	p := NewPlackettLuce()

	p.ProcessMatch("Winner", "Loser", 2, 0)

	winner := p.Rating("Winner")
	loser := p.Rating("Loser")

	assert.InDelta(t, 27.635104892198587, winner.Mu, 1e-9)
	assert.InDelta(t, 22.364895107801413, loser.Mu, 1e-9)

	// Both sides gain certainty from one observation, and symmetrically so
	// when they started from identical priors.
	assert.InDelta(t, 8.06519023063974, winner.Sigma, 1e-9)
	assert.InDelta(t, 8.06519023063974, loser.Sigma, 1e-9)
}

func TestPlackettLuceDrawKeepsEqualPriorsEqual(t *testing.T) {
	p := NewPlackettLuce()

	p.ProcessMatch("Home", "Away", 1, 1)

	home := p.Rating("Home")
	away := p.Rating("Away")

	// A draw between identical priors carries no skill information; only the
	// uncertainty shrinks.
	assert.InDelta(t, 25.0, home.Mu, 1e-9)
	assert.InDelta(t, 25.0, away.Mu, 1e-9)
	assert.InDelta(t, 8.06519023063974, home.Sigma, 1e-9)
	assert.InDelta(t, home.Sigma, away.Sigma, 1e-12)
}

func TestPlackettLuceSigmaDecreasesMonotonically(t *testing.T) {
	p := NewPlackettLuce()

	prev := p.Rating("A").Sigma
	results := [][2]int{{2, 0}, {0, 1}, {1, 1}, {3, 2}, {0, 0}}
	for _, res := range results {
		p.ProcessMatch("A", "B", res[0], res[1])
		cur := p.Rating("A").Sigma
		assert.Less(t, cur, prev, "Sigma must shrink with every observed match")
		prev = cur
	}
}

func TestPlackettLuceUpsetMovesMoreThanExpectedResult(t *testing.T) {
	p := NewPlackettLuce()

	// Build a favorite.
	for i := 0; i < 5; i++ {
		p.ProcessMatch("Strong", "Filler", 2, 0)
	}
	strongBefore := p.Rating("Strong").Mu

	p.ProcessMatch("Underdog", "Strong", 1, 0)

	assert.Less(t, p.Rating("Strong").Mu, strongBefore, "Losing as the favorite must cost rating")
	assert.Greater(t, p.Rating("Underdog").Mu, 25.0, "Beating the favorite must pay more than a default win")
}

func TestPlackettLuceReplayDeterminism(t *testing.T) {
	run := func(p *PlackettLuce) []SkillEntry {
		p.ProcessMatch("A", "B", 2, 0)
		p.ProcessMatch("B", "C", 1, 1)
		p.ProcessMatch("C", "A", 3, 1)
		return p.Rankings()
	}

	p := NewPlackettLuce()
	first := run(p)

	p.Reset()
	second := run(p)

	require.Equal(t, first, second, "Reset followed by the same sequence must reproduce the same state")
}

func TestPlackettLuceRankingsStableForTies(t *testing.T) {
	p := NewPlackettLuce()

	p.Rating("First")
	p.Rating("Second")
	p.Rating("Third")

	rankings := p.Rankings()
	require.Len(t, rankings, 3)
	assert.Equal(t, "First", rankings[0].Team)
	assert.Equal(t, "Second", rankings[1].Team)
	assert.Equal(t, "Third", rankings[2].Team)
}
