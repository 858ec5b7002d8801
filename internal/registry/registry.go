// Package registry owns the set of known teams and their rating history.
// The registry is rebuilt from the match store when a league is reprocessed;
// it is the in-memory side of the double bookkeeping with the rating engine.
package registry

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"matchrank/internal/league"
	"matchrank/internal/metrics"
	"matchrank/internal/models"
)

// Registry indexes teams by case-sensitive name. Safe for a single writer
// (the replay/ingestion worker) with concurrent readers.
type Registry struct {
	mu     sync.RWMutex
	teams  map[string]*models.Team
	order  []string
	mapper *league.Mapper
}

// New returns an empty registry using the given league mapper.
func New(mapper *league.Mapper) *Registry {
	return &Registry{
		teams:  make(map[string]*models.Team),
		mapper: mapper,
	}
}

// CreateOrGet returns the team registered under name, creating it with default
// ratings on first reference. League membership is never touched here; use
// SetLeague for that.
func (r *Registry) CreateOrGet(name string) (*models.Team, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.teams[name]; ok {
		return t, false
	}
	t := models.NewTeam(name)
	r.teams[name] = t
	r.order = append(r.order, name)
	log.Debug().Str("team", name).Msg("Team registered")
	return t, true
}

// Get returns the team or nil when unknown.
func (r *Registry) Get(name string) *models.Team {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.teams[name]
}

// SetLeague assigns a team's league code. League reassignment is an explicit
// operation, never a side effect of CreateOrGet.
func (r *Registry) SetLeague(name, leagueCode string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.teams[name]
	if !ok {
		log.Warn().Str("team", name).Msg("SetLeague on unknown team")
		return false
	}
	t.League = leagueCode
	return true
}

// IncrementMatchCount bumps a team's match count. Unknown teams are logged
// and ignored.
func (r *Registry) IncrementMatchCount(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.teams[name]
	if !ok {
		log.Warn().Str("team", name).Msg("IncrementMatchCount on unknown team")
		return false
	}
	t.MatchCount++
	return true
}

// UpdateRatings overwrites a team's current rating fields. Used by the replay
// loop after the rating engine has processed a match.
func (r *Registry) UpdateRatings(name string, elo, mu, sigma float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.teams[name]
	if !ok {
		log.Warn().Str("team", name).Msg("UpdateRatings on unknown team")
		return false
	}
	t.Elo = elo
	t.Mu = mu
	t.Sigma = sigma
	return true
}

// AddSnapshot appends a post-match snapshot to the team's history. History is
// append-only and expected chronological; an out-of-order date is tolerated
// but flagged, since it means the caller fed matches out of sequence. The
// history is never re-sorted at read time.
func (r *Registry) AddSnapshot(name string, snap models.RatingSnapshot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.teams[name]
	if !ok {
		log.Warn().Str("team", name).Msg("AddSnapshot on unknown team")
		return false
	}
	if n := len(t.History); n > 0 && snap.MatchDate.Before(t.History[n-1].MatchDate) {
		log.Warn().
			Str("team", name).
			Int64("match_id", snap.MatchID).
			Time("date", snap.MatchDate).
			Time("last_date", t.History[n-1].MatchDate).
			Msg("Snapshot date earlier than history tail")
		metrics.RecordSnapshotOutOfOrder()
	}
	t.History = append(t.History, snap)
	return true
}

// TeamsByLeague resolves a display name through the league mapper and returns
// all teams registered under that code, ordered by registration.
func (r *Registry) TeamsByLeague(displayName string) []*models.Team {
	code := r.mapper.ResolveCode(displayName)
	if code == "" {
		log.Warn().Str("league", displayName).Msg("Unknown league name")
		return nil
	}
	return r.TeamsByCode(code)
}

// TeamsByCode returns all teams with the given league code.
func (r *Registry) TeamsByCode(code string) []*models.Team {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Team
	for _, name := range r.order {
		if t := r.teams[name]; t.League == code {
			out = append(out, t)
		}
	}
	return out
}

// AllTeams returns every registered team in registration order.
func (r *Registry) AllTeams() []*models.Team {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Team, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.teams[name])
	}
	return out
}

// TeamsSortedByElo returns all teams ordered by Elo descending, stable over
// registration order.
func (r *Registry) TeamsSortedByElo() []*models.Team {
	teams := r.AllTeams()
	sort.SliceStable(teams, func(i, j int) bool {
		return teams[i].Elo > teams[j].Elo
	})
	return teams
}

// Len returns the number of registered teams.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.teams)
}

// ClearAll resets the registry to empty. Required before reprocessing a
// different league's history, otherwise match counts double-count.
func (r *Registry) ClearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.teams = make(map[string]*models.Team)
	r.order = nil
	log.Info().Msg("Team registry cleared")
}
