package domain

import "time"

// MatchStatus represents the lifecycle state of a match at the source.
type MatchStatus string

const (
	StatusScheduled MatchStatus = "scheduled"
	StatusLive      MatchStatus = "live"
	StatusCompleted MatchStatus = "completed"
	StatusPostponed MatchStatus = "postponed"
	StatusCancelled MatchStatus = "cancelled"
	StatusAbandoned MatchStatus = "abandoned"
	StatusUnknown   MatchStatus = "unknown"
)

// ParseMatchStatus maps a raw source status string to a MatchStatus.
func ParseMatchStatus(s string) MatchStatus {
	switch MatchStatus(s) {
	case StatusScheduled, StatusLive, StatusCompleted, StatusPostponed, StatusCancelled, StatusAbandoned:
		return MatchStatus(s)
	default:
		return StatusUnknown
	}
}

// Team is an immutable team entity. Exactly one instance exists per team ID
// within a run; every reference path shares it.
type Team struct {
	ID      string
	Name    string
	Country string
	URL     string
}

// Match holds the fields common to fixtures and played matches.
type Match struct {
	ID          string
	URL         string
	Country     string
	Competition string
	Date        time.Time
	Round       string
	HomeTeam    *Team
	AwayTeam    *Team
	Status      MatchStatus
}

// FixtureMatch is a scheduled, not-yet-played match enriched with form and
// head-to-head context. All three references are optional: a branch that
// could not be resolved within the retry budget stays nil.
type FixtureMatch struct {
	Match
	HomeForm   *TeamForm
	AwayForm   *TeamForm
	HeadToHead *HeadToHead
}

// PlayedMatch is a completed match. Status is Completed if and only if a
// final score is present; Statistics may be nil when the source has none.
type PlayedMatch struct {
	Match
	HomeScore  int
	AwayScore  int
	Statistics *MatchStatistics
}

// Winner returns the winning team, or nil for a draw.
func (m *PlayedMatch) Winner() *Team {
	switch {
	case m.HomeScore > m.AwayScore:
		return m.HomeTeam
	case m.AwayScore > m.HomeScore:
		return m.AwayTeam
	default:
		return nil
	}
}

// IsDraw reports whether the match ended level.
func (m *PlayedMatch) IsDraw() bool {
	return m.HomeScore == m.AwayScore
}

// GoalDifference is positive for a home win, negative for an away win.
func (m *PlayedMatch) GoalDifference() int {
	return m.HomeScore - m.AwayScore
}

// TotalGoals returns the combined score.
func (m *PlayedMatch) TotalGoals() int {
	return m.HomeScore + m.AwayScore
}

// MatchStatistics maps metric names (possession, shots_on_goal, corners,
// fouls, ...) to per-side numeric values for one played match. The metric
// set is open: whatever the source exposes is carried through, and metrics
// absent at the source are simply omitted.
type MatchStatistics struct {
	MatchID string
	Metrics map[string]StatValue
}

// StatValue is the home/away pair for a single metric.
type StatValue struct {
	Home float64
	Away float64
}

// TeamForm is a team's recent history: up to k played matches, most recent
// first, plus the covered period.
type TeamForm struct {
	Team        *Team
	Matches     []*PlayedMatch
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// NewTeamForm builds a TeamForm, deriving the period from the match dates.
// Matches must already be in source order (most recent first).
func NewTeamForm(team *Team, matches []*PlayedMatch) *TeamForm {
	form := &TeamForm{Team: team, Matches: matches}
	for _, m := range matches {
		if form.PeriodStart.IsZero() || m.Date.Before(form.PeriodStart) {
			form.PeriodStart = m.Date
		}
		if m.Date.After(form.PeriodEnd) {
			form.PeriodEnd = m.Date
		}
	}
	return form
}

// Wins counts matches the team won within the form period.
func (f *TeamForm) Wins() int {
	n := 0
	for _, m := range f.Matches {
		if w := m.Winner(); w != nil && w.ID == f.Team.ID {
			n++
		}
	}
	return n
}

// Draws counts drawn matches within the form period.
func (f *TeamForm) Draws() int {
	n := 0
	for _, m := range f.Matches {
		if m.IsDraw() {
			n++
		}
	}
	return n
}

// Losses counts matches the team lost within the form period.
func (f *TeamForm) Losses() int {
	return len(f.Matches) - f.Wins() - f.Draws()
}

// GoalsScored totals goals scored by the team across the form period.
func (f *TeamForm) GoalsScored() int {
	n := 0
	for _, m := range f.Matches {
		if m.HomeTeam.ID == f.Team.ID {
			n += m.HomeScore
		} else {
			n += m.AwayScore
		}
	}
	return n
}

// GoalsConceded totals goals conceded by the team across the form period.
func (f *TeamForm) GoalsConceded() int {
	n := 0
	for _, m := range f.Matches {
		if m.HomeTeam.ID == f.Team.ID {
			n += m.AwayScore
		} else {
			n += m.HomeScore
		}
	}
	return n
}

// HeadToHead is the shared history of two teams: up to k played matches,
// most recent first. TeamA and TeamB are never the same team.
type HeadToHead struct {
	TeamA   *Team
	TeamB   *Team
	Matches []*PlayedMatch
}

// Record returns (wins, draws, losses) for the given team ID against the
// other team.
func (h *HeadToHead) Record(teamID string) (wins, draws, losses int) {
	for _, m := range h.Matches {
		switch w := m.Winner(); {
		case w == nil:
			draws++
		case w.ID == teamID:
			wins++
		default:
			losses++
		}
	}
	return wins, draws, losses
}

// CanonicalPair orders two team IDs so (a,b) and (b,a) produce the same key.
func CanonicalPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
