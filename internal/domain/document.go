package domain

import "time"

// SerializedGraph is the persisted form of an extraction run: one or more
// root matches with every shared entity emitted in full exactly once and all
// later occurrences reduced to {kind, id} reference stubs.
type SerializedGraph struct {
	Country     string      `json:"country"`
	Competition string      `json:"competition"`
	Round       string      `json:"round,omitempty"`
	GeneratedAt time.Time   `json:"generated_at"`
	Matches     []*MatchDoc `json:"matches"`
	Warnings    []Warning   `json:"warnings,omitempty"`
}

// TeamDoc is the serialized form of a Team. A reference-only occurrence has
// Ref set and carries no attribute fields.
type TeamDoc struct {
	Kind    string `json:"kind"`
	ID      string `json:"id"`
	Ref     bool   `json:"ref,omitempty"`
	Name    string `json:"name,omitempty"`
	Country string `json:"country,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ScoreDoc is the final score of a played match.
type ScoreDoc struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// StatisticsDoc is the serialized metric map of a played match.
type StatisticsDoc struct {
	MatchID string               `json:"match_id"`
	Metrics map[string]StatValue `json:"metrics"`
}

// FormSummaryDoc aggregates a form list into a compact results record.
type FormSummaryDoc struct {
	Wins          int `json:"wins"`
	Draws         int `json:"draws"`
	Losses        int `json:"losses"`
	GoalsScored   int `json:"goals_scored"`
	GoalsConceded int `json:"goals_conceded"`
}

// FormDoc is the serialized form of a TeamForm.
type FormDoc struct {
	Team        *TeamDoc        `json:"team"`
	Matches     []*MatchDoc     `json:"matches"`
	PeriodStart time.Time       `json:"period_start"`
	PeriodEnd   time.Time       `json:"period_end"`
	Summary     *FormSummaryDoc `json:"summary"`
}

// HeadToHeadDoc is the serialized form of a HeadToHead record.
type HeadToHeadDoc struct {
	TeamA   *TeamDoc    `json:"team_a"`
	TeamB   *TeamDoc    `json:"team_b"`
	Matches []*MatchDoc `json:"matches"`
}

// MatchDoc is the serialized form of a match, fixture or played. A
// reference-only occurrence has Ref set and carries only kind and id.
type MatchDoc struct {
	Kind        string         `json:"kind"`
	ID          string         `json:"id"`
	Ref         bool           `json:"ref,omitempty"`
	URL         string         `json:"url,omitempty"`
	Country     string         `json:"country,omitempty"`
	Competition string         `json:"competition,omitempty"`
	Date        *time.Time     `json:"date,omitempty"`
	Round       string         `json:"round,omitempty"`
	HomeTeam    *TeamDoc       `json:"home_team,omitempty"`
	AwayTeam    *TeamDoc       `json:"away_team,omitempty"`
	Status      string         `json:"status,omitempty"`
	Score       *ScoreDoc      `json:"score,omitempty"`
	Statistics  *StatisticsDoc `json:"statistics,omitempty"`
	HomeForm    *FormDoc       `json:"home_team_form,omitempty"`
	AwayForm    *FormDoc       `json:"away_team_form,omitempty"`
	HeadToHead  *HeadToHeadDoc `json:"head_to_head,omitempty"`
}
