// Package replay rebuilds derived rating state from the raw match store.
// A rebuild streams one league's matches in chronological order through both
// rating algorithms while the registry keeps the bookkeeping: match counts,
// league membership, and per-team snapshot history.
package replay

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"matchrank/internal/league"
	"matchrank/internal/metrics"
	"matchrank/internal/models"
	"matchrank/internal/rating"
	"matchrank/internal/registry"
	"matchrank/internal/repository"
)

// MatchSource reads stored match records, always date-ascending.
type MatchSource interface {
	Query(ctx context.Context, filter repository.MatchFilter, limit int) []*models.MatchRecord
}

// Summary reports one completed rebuild.
type Summary struct {
	League  string
	Code    string
	Matches int
	Teams   int
	Skipped int
}

// EloRow is one row of the Elo ranking view.
type EloRow struct {
	Team       string
	Elo        float64
	MatchCount int
}

// SkillRow is one row of the skill ranking view, carrying the derived display
// metrics alongside the raw rating.
type SkillRow struct {
	Team       string
	Score      int
	Stability  int
	Mu         float64
	Sigma      float64
	MatchCount int
}

// Rebuilder owns a fresh pass over one league's history. Rating state is
// discarded and rebuilt on every RebuildLeague call, so replaying the same
// stored sequence always yields identical output.
type Rebuilder struct {
	source   MatchSource
	registry *registry.Registry
	mapper   *league.Mapper
	elo      *rating.Elo
	skill    *rating.PlackettLuce
}

// New returns a rebuilder over the given match source.
func New(source MatchSource, reg *registry.Registry, mapper *league.Mapper) *Rebuilder {
	return &Rebuilder{
		source:   source,
		registry: reg,
		mapper:   mapper,
		elo:      rating.NewElo(),
		skill:    rating.NewPlackettLuce(),
	}
}

// Elo exposes the Elo state for ranking consumers.
func (r *Rebuilder) Elo() *rating.Elo { return r.elo }

// Skill exposes the skill state for ranking consumers.
func (r *Rebuilder) Skill() *rating.PlackettLuce { return r.skill }

// Registry exposes the team registry.
func (r *Rebuilder) Registry() *registry.Registry { return r.registry }

// RebuildLeague recomputes all rating state for one league from scratch.
// The registry and both algorithm states are reset first; reprocessing on top
// of stale state would double-count match totals.
func (r *Rebuilder) RebuildLeague(ctx context.Context, displayName string) (*Summary, error) {
	code := r.mapper.ResolveCode(displayName)
	if code == "" {
		return nil, fmt.Errorf("unknown league %q", displayName)
	}

	start := time.Now()
	r.registry.ClearAll()
	r.elo.Reset()
	r.skill.Reset()

	records := r.source.Query(ctx, repository.MatchFilter{CompetitionCode: code}, 0)
	summary := &Summary{League: displayName, Code: code}

	for _, rec := range records {
		facts, ok := models.FactsFromPayload(rec)
		if !ok {
			log.Warn().
				Int64("external_id", rec.ExternalID).
				Msg("Skipping match with incomplete payload")
			summary.Skipped++
			continue
		}
		r.applyMatch(code, facts)
		summary.Matches++
	}

	summary.Teams = r.registry.Len()
	metrics.ReplayDuration.WithLabelValues(code).Observe(time.Since(start).Seconds())
	log.Info().
		Str("league", displayName).
		Str("code", code).
		Int("matches", summary.Matches).
		Int("teams", summary.Teams).
		Int("skipped", summary.Skipped).
		Dur("duration", time.Since(start)).
		Msg("League rebuild complete")
	return summary, nil
}

// applyMatch feeds one match through both algorithms and records the
// post-match state for each team.
func (r *Rebuilder) applyMatch(code string, facts models.MatchFacts) {
	for _, name := range []string{facts.HomeTeam, facts.AwayTeam} {
		r.registry.CreateOrGet(name)
		r.registry.SetLeague(name, code)
		r.registry.IncrementMatchCount(name)
	}

	r.elo.ProcessMatch(facts.HomeTeam, facts.AwayTeam, facts.HomeGoals, facts.AwayGoals)
	r.skill.ProcessMatch(facts.HomeTeam, facts.AwayTeam, facts.HomeGoals, facts.AwayGoals)
	metrics.MatchesReplayed.Inc()

	for _, name := range []string{facts.HomeTeam, facts.AwayTeam} {
		elo := r.elo.Rating(name)
		skill := r.skill.Rating(name)
		r.registry.UpdateRatings(name, elo, skill.Mu, skill.Sigma)
		r.registry.AddSnapshot(name, models.RatingSnapshot{
			MatchID:   facts.ExternalID,
			Mu:        skill.Mu,
			Elo:       elo,
			Sigma:     skill.Sigma,
			MatchDate: facts.UTCDate,
		})
	}
}

// EloRows returns the Elo ranking view for a league, sorted by rating
// descending with stable ordering for exact ties.
func (r *Rebuilder) EloRows(displayName string) []EloRow {
	teams := r.registry.TeamsByLeague(displayName)
	rows := make([]EloRow, 0, len(teams))
	for _, t := range teams {
		rows = append(rows, EloRow{Team: t.Name, Elo: t.Elo, MatchCount: t.MatchCount})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Elo > rows[j].Elo
	})
	return rows
}

// SkillRows returns the skill ranking view for a league, sorted by score
// descending with stable ordering for exact ties.
func (r *Rebuilder) SkillRows(displayName string) []SkillRow {
	teams := r.registry.TeamsByLeague(displayName)
	rows := make([]SkillRow, 0, len(teams))
	for _, t := range teams {
		rows = append(rows, SkillRow{
			Team:       t.Name,
			Score:      rating.SkillScore(t.Mu),
			Stability:  rating.Stability(t.Sigma),
			Mu:         t.Mu,
			Sigma:      t.Sigma,
			MatchCount: t.MatchCount,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Score > rows[j].Score
	})
	return rows
}
