package models

import (
	"encoding/json"
	"time"
)

// MatchRecord is the raw persisted unit for one match. The payload keeps the
// feed's per-match JSON untouched so derived state can always be rebuilt from it.
type MatchRecord struct {
	ExternalID      int64           `db:"external_id"`
	CompetitionCode string          `db:"competition_code"`
	UTCDate         time.Time       `db:"utc_date"`
	Payload         json.RawMessage `db:"payload"`

	CreatedAt time.Time `db:"created_at"`
}

// FeedResponse is the top-level feed payload. Matches stay raw so each
// element can be persisted exactly as received.
type FeedResponse struct {
	Matches []json.RawMessage `json:"matches"`
}

// FeedTeam is the nested team object in the upstream feed.
type FeedTeam struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// FeedScore carries the full-time score pair.
type FeedScore struct {
	FullTime struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"fullTime"`
}

// FeedMatch is one element of the feed's "matches" array. Only the fields the
// pipeline needs are decoded; the raw element is persisted as the payload.
type FeedMatch struct {
	ID       int64     `json:"id"`
	UTCDate  string    `json:"utcDate"`
	HomeTeam FeedTeam  `json:"homeTeam"`
	AwayTeam FeedTeam  `json:"awayTeam"`
	Score    FeedScore `json:"score"`
}

// MatchFacts is the decoded view of a stored payload used during replay.
type MatchFacts struct {
	ExternalID int64
	UTCDate    time.Time
	HomeTeam   string
	AwayTeam   string
	HomeGoals  int
	AwayGoals  int
}

// FactsFromPayload decodes a stored payload back into the fields the rating
// replay needs. Returns false when the payload lacks team names or a final score.
func FactsFromPayload(rec *MatchRecord) (MatchFacts, bool) {
	var fm FeedMatch
	if err := json.Unmarshal(rec.Payload, &fm); err != nil {
		return MatchFacts{}, false
	}
	if fm.HomeTeam.Name == "" || fm.AwayTeam.Name == "" {
		return MatchFacts{}, false
	}
	if fm.Score.FullTime.Home == nil || fm.Score.FullTime.Away == nil {
		return MatchFacts{}, false
	}
	return MatchFacts{
		ExternalID: rec.ExternalID,
		UTCDate:    rec.UTCDate,
		HomeTeam:   fm.HomeTeam.Name,
		AwayTeam:   fm.AwayTeam.Name,
		HomeGoals:  *fm.Score.FullTime.Home,
		AwayGoals:  *fm.Score.FullTime.Away,
	}, true
}
