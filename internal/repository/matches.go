package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"matchrank/internal/metrics"
	"matchrank/internal/models"
)

// MatchRepository handles match record persistence. Inserts are idempotent on
// the external id; a duplicate is reported as skipped, never as an error.
type MatchRepository struct {
	db *Database
}

// MatchFilter is an exact-match conjunction over the queryable fields. Zero
// values are not applied.
type MatchFilter struct {
	CompetitionCode string
	ExternalID      int64
	DateFrom        time.Time
	DateTo          time.Time
}

// Insert stores one match record. Returns true when the record was inserted,
// false when an existing record with the same external id made it a no-op.
func (r *MatchRepository) Insert(ctx context.Context, m *models.MatchRecord) (bool, error) {
	query := `
		INSERT INTO matches (external_id, competition_code, utc_date, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO NOTHING
	`

	ct, err := r.db.Pool.Exec(ctx, query,
		m.ExternalID, m.CompetitionCode, m.UTCDate, m.Payload,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert match %d: %w", m.ExternalID, err)
	}

	inserted := ct.RowsAffected() == 1
	if inserted {
		log.Debug().
			Int64("external_id", m.ExternalID).
			Str("competition", m.CompetitionCode).
			Time("utc_date", m.UTCDate).
			Msg("Match inserted")
	} else {
		log.Debug().
			Int64("external_id", m.ExternalID).
			Msg("Match already stored, skipped")
	}
	return inserted, nil
}

// InsertBatch stores records one commit at a time so a failure never rolls
// back earlier inserts. Returns counts of inserted and skipped records; on
// error the counts cover the records processed before the failure.
func (r *MatchRepository) InsertBatch(ctx context.Context, records []*models.MatchRecord) (inserted, skipped int, err error) {
	for _, m := range records {
		ok, insErr := r.Insert(ctx, m)
		if insErr != nil {
			return inserted, skipped, insErr
		}
		if ok {
			inserted++
		} else {
			skipped++
		}
	}
	return inserted, skipped, nil
}

// Query returns match records matching the filter, always sorted ascending by
// date. limit <= 0 means unbounded.
//
// When storage is unreachable the result degrades to an empty set instead of
// an error: callers cannot distinguish empty-and-unavailable from
// empty-and-no-data. This mirrors the read contract the rating replay was
// built against; the degradation is logged and counted rather than hidden.
func (r *MatchRepository) Query(ctx context.Context, filter MatchFilter, limit int) []*models.MatchRecord {
	var (
		conds []string
		args  []interface{}
	)
	addCond := func(expr string, val interface{}) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(expr, len(args)))
	}

	if filter.CompetitionCode != "" {
		addCond("competition_code = $%d", filter.CompetitionCode)
	}
	if filter.ExternalID != 0 {
		addCond("external_id = $%d", filter.ExternalID)
	}
	if !filter.DateFrom.IsZero() {
		addCond("utc_date >= $%d", filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		addCond("utc_date <= $%d", filter.DateTo)
	}

	query := `SELECT external_id, competition_code, utc_date, payload, created_at FROM matches`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY utc_date ASC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		log.Error().Err(err).Msg("Match query failed, degrading to empty result")
		metrics.RecordStorageUnavailable()
		return nil
	}
	defer rows.Close()

	var matches []*models.MatchRecord
	for rows.Next() {
		var m models.MatchRecord
		if err := rows.Scan(&m.ExternalID, &m.CompetitionCode, &m.UTCDate, &m.Payload, &m.CreatedAt); err != nil {
			log.Error().Err(err).Msg("Match scan failed, degrading to empty result")
			metrics.RecordStorageUnavailable()
			return nil
		}
		matches = append(matches, &m)
	}

	if err := rows.Err(); err != nil {
		log.Error().Err(err).Msg("Match iteration failed, degrading to empty result")
		metrics.RecordStorageUnavailable()
		return nil
	}

	log.Debug().Int("count", len(matches)).Msg("Retrieved matches")
	return matches
}

// Count returns the total number of stored matches.
func (r *MatchRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return count, nil
}

// LatestDate returns the most recent stored match date, or the zero time when
// the store is empty. Used by the nightly catch-up to pick its start window.
func (r *MatchRepository) LatestDate(ctx context.Context) (time.Time, error) {
	var latest *time.Time
	err := r.db.Pool.QueryRow(ctx, `SELECT MAX(utc_date) FROM matches`).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest match date: %w", err)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}
