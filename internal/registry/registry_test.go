package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchrank/internal/league"
	"matchrank/internal/models"
)

func newTestRegistry() *Registry {
	return New(league.NewMapper())
}

func TestCreateOrGetDefaults(t *testing.T) {
	r := newTestRegistry()

	team, created := r.CreateOrGet("Arsenal")
	require.True(t, created)
	assert.Equal(t, "Arsenal", team.Name)
	assert.Equal(t, 1500.0, team.Elo)
	assert.Equal(t, 25.0, team.Mu)
	assert.Equal(t, 8.333, team.Sigma)
	assert.Equal(t, 0, team.MatchCount)
	assert.Empty(t, team.League, "CreateOrGet must not assign a league")

	again, created := r.CreateOrGet("Arsenal")
	assert.False(t, created)
	assert.Same(t, team, again, "Second lookup must return the same instance")
	assert.Equal(t, 1, r.Len())
}

func TestCreateOrGetIsCaseSensitive(t *testing.T) {
	r := newTestRegistry()

	r.CreateOrGet("Arsenal")
	_, created := r.CreateOrGet("arsenal")
	assert.True(t, created, "Names differing in case are distinct teams")
	assert.Equal(t, 2, r.Len())
}

func TestSetLeagueIsExplicit(t *testing.T) {
	r := newTestRegistry()

	r.CreateOrGet("Arsenal")
	require.True(t, r.SetLeague("Arsenal", "E0"))
	assert.Equal(t, "E0", r.Get("Arsenal").League)

	// CreateOrGet on an existing team must not clear the league.
	r.CreateOrGet("Arsenal")
	assert.Equal(t, "E0", r.Get("Arsenal").League)

	assert.False(t, r.SetLeague("Ghost", "E0"))
}

func TestIncrementMatchCount(t *testing.T) {
	r := newTestRegistry()

	r.CreateOrGet("Arsenal")
	require.True(t, r.IncrementMatchCount("Arsenal"))
	require.True(t, r.IncrementMatchCount("Arsenal"))
	assert.Equal(t, 2, r.Get("Arsenal").MatchCount)

	assert.False(t, r.IncrementMatchCount("Ghost"), "Unknown team is reported, not created")
	assert.Nil(t, r.Get("Ghost"))
}

func TestUpdateRatings(t *testing.T) {
	r := newTestRegistry()

	r.CreateOrGet("Arsenal")
	require.True(t, r.UpdateRatings("Arsenal", 1515.0, 27.6, 8.07))

	team := r.Get("Arsenal")
	assert.Equal(t, 1515.0, team.Elo)
	assert.Equal(t, 27.6, team.Mu)
	assert.Equal(t, 8.07, team.Sigma)
}

func TestAddSnapshotAppendsChronologically(t *testing.T) {
	r := newTestRegistry()
	r.CreateOrGet("Arsenal")

	day1 := time.Date(2024, 8, 10, 15, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 7)

	require.True(t, r.AddSnapshot("Arsenal", models.RatingSnapshot{MatchID: 1, MatchDate: day1, Elo: 1515}))
	require.True(t, r.AddSnapshot("Arsenal", models.RatingSnapshot{MatchID: 2, MatchDate: day2, Elo: 1522}))

	history := r.Get("Arsenal").History
	require.Len(t, history, 2)
	assert.Equal(t, int64(1), history[0].MatchID)
	assert.Equal(t, int64(2), history[1].MatchID)
}

func TestAddSnapshotToleratesOutOfOrderDates(t *testing.T) {
	r := newTestRegistry()
	r.CreateOrGet("Arsenal")

	day1 := time.Date(2024, 8, 10, 15, 0, 0, 0, time.UTC)
	earlier := day1.AddDate(0, 0, -3)

	require.True(t, r.AddSnapshot("Arsenal", models.RatingSnapshot{MatchID: 1, MatchDate: day1}))
	require.True(t, r.AddSnapshot("Arsenal", models.RatingSnapshot{MatchID: 2, MatchDate: earlier}))

	// The out-of-order snapshot is kept in append order, never re-sorted.
	history := r.Get("Arsenal").History
	require.Len(t, history, 2)
	assert.Equal(t, int64(1), history[0].MatchID)
	assert.Equal(t, int64(2), history[1].MatchID)
}

func TestTeamsByLeague(t *testing.T) {
	r := newTestRegistry()

	r.CreateOrGet("Arsenal")
	r.SetLeague("Arsenal", "E0")
	r.CreateOrGet("Chelsea")
	r.SetLeague("Chelsea", "E0")
	r.CreateOrGet("Barcelona")
	r.SetLeague("Barcelona", "SP1")

	premier := r.TeamsByLeague("Premier League")
	require.Len(t, premier, 2)
	assert.Equal(t, "Arsenal", premier[0].Name)
	assert.Equal(t, "Chelsea", premier[1].Name)

	assert.Nil(t, r.TeamsByLeague("Serie A"))
}

func TestTeamsSortedByElo(t *testing.T) {
	r := newTestRegistry()

	r.CreateOrGet("Low")
	r.UpdateRatings("Low", 1400, 25, 8.333)
	r.CreateOrGet("High")
	r.UpdateRatings("High", 1600, 25, 8.333)
	r.CreateOrGet("Mid")
	r.UpdateRatings("Mid", 1500, 25, 8.333)

	sorted := r.TeamsSortedByElo()
	require.Len(t, sorted, 3)
	assert.Equal(t, "High", sorted[0].Name)
	assert.Equal(t, "Mid", sorted[1].Name)
	assert.Equal(t, "Low", sorted[2].Name)
}

func TestClearAll(t *testing.T) {
	r := newTestRegistry()

	r.CreateOrGet("Arsenal")
	r.CreateOrGet("Chelsea")
	require.Equal(t, 2, r.Len())

	r.ClearAll()
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Get("Arsenal"))
	assert.Empty(t, r.AllTeams())
}
