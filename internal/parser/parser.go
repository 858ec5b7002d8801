// Package parser validates and normalizes feed responses into match records
// and writes them through the match store.
package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"matchrank/internal/metrics"
	"matchrank/internal/models"
)

// ErrMalformedPayload marks a response body that cannot be interpreted as a
// feed match list. The offending unit of work is aborted; nothing is stored.
var ErrMalformedPayload = errors.New("malformed feed payload")

// MatchStore is the persistence contract the parser writes through.
type MatchStore interface {
	InsertBatch(ctx context.Context, records []*models.MatchRecord) (inserted, skipped int, err error)
}

// Result reports one parse-and-store pass.
type Result struct {
	Inserted int
	Skipped  int
	Invalid  int
}

// Parser turns one fetch response into stored match records.
type Parser struct {
	store MatchStore
}

// New returns a parser writing through the given store.
func New(store MatchStore) *Parser {
	return &Parser{store: store}
}

// ParseAndStore validates the response body, extracts each match, and stores
// the records idempotently. Matches without an id or a parseable utcDate are
// counted invalid and skipped with a warning; they never abort the batch.
func (p *Parser) ParseAndStore(ctx context.Context, competitionCode string, body []byte) (*Result, error) {
	var feed models.FeedResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		metrics.RecordError("parser", "validation")
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if feed.Matches == nil {
		metrics.RecordError("parser", "validation")
		return nil, fmt.Errorf("%w: missing matches array", ErrMalformedPayload)
	}

	result := &Result{}
	records := make([]*models.MatchRecord, 0, len(feed.Matches))
	for _, raw := range feed.Matches {
		var fm models.FeedMatch
		if err := json.Unmarshal(raw, &fm); err != nil {
			log.Warn().Err(err).Str("competition", competitionCode).Msg("Skipping undecodable match element")
			result.Invalid++
			continue
		}
		if fm.ID == 0 {
			log.Warn().
				Str("competition", competitionCode).
				Str("home", fm.HomeTeam.Name).
				Msg("Skipping match without id")
			result.Invalid++
			continue
		}
		utcDate, err := time.Parse(time.RFC3339, fm.UTCDate)
		if err != nil {
			log.Warn().
				Int64("external_id", fm.ID).
				Str("utc_date", fm.UTCDate).
				Msg("Skipping match with unparseable date")
			result.Invalid++
			continue
		}

		records = append(records, &models.MatchRecord{
			ExternalID:      fm.ID,
			CompetitionCode: competitionCode,
			UTCDate:         utcDate,
			Payload:         raw,
		})
	}

	inserted, skipped, err := p.store.InsertBatch(ctx, records)
	result.Inserted = inserted
	result.Skipped = skipped
	metrics.RecordInserts(inserted, skipped)
	if err != nil {
		// Records committed before the failure stay committed.
		metrics.RecordError("parser", "storage")
		return result, fmt.Errorf("failed to store matches: %w", err)
	}

	log.Info().
		Str("competition", competitionCode).
		Int("inserted", inserted).
		Int("skipped", skipped).
		Int("invalid", result.Invalid).
		Msg("Parse pass complete")
	return result, nil
}
