// Package serialize flattens linked match graphs into JSON documents.
//
// Entities are emitted in full exactly once per document. Any later sighting
// of the same (kind, id) pair collapses into a stub carrying only the kind,
// the id, and a ref marker, so shared teams and overlapping history matches
// never duplicate their bodies inside one output file.
package serialize

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/quantmind-br/matchgraph-go/internal/domain"
)

const (
	kindTeam  = "team"
	kindMatch = "match"
)

// Serializer walks match graphs in a fixed order and produces a
// SerializedGraph document. It is not safe for concurrent use; build one per
// document.
type Serializer struct {
	visited map[string]bool
}

// NewSerializer creates a serializer with an empty visited set.
func NewSerializer() *Serializer {
	return &Serializer{visited: make(map[string]bool)}
}

func visitKey(kind, id string) string {
	return kind + "/" + id
}

// seen marks (kind, id) visited and reports whether it already was.
func (s *Serializer) seen(kind, id string) bool {
	key := visitKey(kind, id)
	if s.visited[key] {
		return true
	}
	s.visited[key] = true
	return false
}

// AddFixture appends a fixture root to the document under construction.
// Walk order is fixed: root match, home team, away team, home form matches,
// away form matches, head-to-head matches.
func (s *Serializer) AddFixture(doc *domain.SerializedGraph, fixture *domain.FixtureMatch) error {
	if fixture == nil {
		return fmt.Errorf("serialize: nil fixture")
	}

	md, full := s.matchDoc(&fixture.Match)
	if !full {
		doc.Matches = append(doc.Matches, md)
		return nil
	}

	if fixture.HomeForm != nil {
		md.HomeForm = s.formDoc(fixture.HomeForm)
	}
	if fixture.AwayForm != nil {
		md.AwayForm = s.formDoc(fixture.AwayForm)
	}
	if fixture.HeadToHead != nil {
		md.HeadToHead = s.headToHeadDoc(fixture.HeadToHead)
	}

	doc.Matches = append(doc.Matches, md)
	return nil
}

// AddPlayed appends a played-match root to the document under construction.
func (s *Serializer) AddPlayed(doc *domain.SerializedGraph, played *domain.PlayedMatch) error {
	if played == nil {
		return fmt.Errorf("serialize: nil played match")
	}

	md, full := s.playedDoc(played)
	if !full {
		doc.Matches = append(doc.Matches, md)
		return nil
	}

	doc.Matches = append(doc.Matches, md)
	return nil
}

// matchDoc emits a match. The second return reports whether this was the
// first sighting; a repeat sighting yields a ref stub with no nested fields.
func (s *Serializer) matchDoc(m *domain.Match) (*domain.MatchDoc, bool) {
	if s.seen(kindMatch, m.ID) {
		return &domain.MatchDoc{Kind: kindMatch, ID: m.ID, Ref: true}, false
	}

	md := &domain.MatchDoc{
		Kind:        kindMatch,
		ID:          m.ID,
		URL:         m.URL,
		Country:     m.Country,
		Competition: m.Competition,
		Round:       m.Round,
		Status:      string(m.Status),
	}
	if !m.Date.IsZero() {
		d := m.Date
		md.Date = &d
	}
	if m.HomeTeam != nil {
		md.HomeTeam = s.teamDoc(m.HomeTeam)
	}
	if m.AwayTeam != nil {
		md.AwayTeam = s.teamDoc(m.AwayTeam)
	}
	return md, true
}

func (s *Serializer) playedDoc(p *domain.PlayedMatch) (*domain.MatchDoc, bool) {
	md, full := s.matchDoc(&p.Match)
	if !full {
		return md, false
	}

	md.Score = &domain.ScoreDoc{Home: p.HomeScore, Away: p.AwayScore}
	if p.Statistics != nil {
		md.Statistics = &domain.StatisticsDoc{
			MatchID: p.Statistics.MatchID,
			Metrics: p.Statistics.Metrics,
		}
	}
	return md, true
}

func (s *Serializer) teamDoc(t *domain.Team) *domain.TeamDoc {
	if s.seen(kindTeam, t.ID) {
		return &domain.TeamDoc{Kind: kindTeam, ID: t.ID, Ref: true}
	}
	return &domain.TeamDoc{
		Kind:    kindTeam,
		ID:      t.ID,
		Name:    t.Name,
		Country: t.Country,
		URL:     t.URL,
	}
}

func (s *Serializer) formDoc(f *domain.TeamForm) *domain.FormDoc {
	fd := &domain.FormDoc{
		Team: s.teamDoc(f.Team),
		Summary: &domain.FormSummaryDoc{
			Wins:          f.Wins(),
			Draws:         f.Draws(),
			Losses:        f.Losses(),
			GoalsScored:   f.GoalsScored(),
			GoalsConceded: f.GoalsConceded(),
		},
	}
	fd.PeriodStart = f.PeriodStart
	fd.PeriodEnd = f.PeriodEnd
	for _, m := range f.Matches {
		md, _ := s.playedDoc(m)
		fd.Matches = append(fd.Matches, md)
	}
	return fd
}

func (s *Serializer) headToHeadDoc(h *domain.HeadToHead) *domain.HeadToHeadDoc {
	hd := &domain.HeadToHeadDoc{
		TeamA: s.teamDoc(h.TeamA),
		TeamB: s.teamDoc(h.TeamB),
	}
	for _, m := range h.Matches {
		md, _ := s.playedDoc(m)
		hd.Matches = append(hd.Matches, md)
	}
	return hd
}

// Marshal renders the document as indented JSON. Map-valued fields marshal
// with sorted keys, so serializing the same graph twice yields identical
// bytes.
func Marshal(doc *domain.SerializedGraph) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serialize: marshal document: %w", err)
	}
	return data, nil
}

// BuildDocument serializes a whole round result into one document sharing a
// single visited set, so entities repeated across fixtures still collapse
// into refs.
func BuildDocument(country, competition, round string, fixtures []*domain.FixtureMatch, played []*domain.PlayedMatch, warnings []domain.Warning, generatedAt time.Time) (*domain.SerializedGraph, error) {
	doc := &domain.SerializedGraph{
		Country:     country,
		Competition: competition,
		Round:       round,
		GeneratedAt: generatedAt,
		Warnings:    warnings,
	}

	ser := NewSerializer()
	for _, f := range fixtures {
		if err := ser.AddFixture(doc, f); err != nil {
			return nil, err
		}
	}
	for _, p := range played {
		if err := ser.AddPlayed(doc, p); err != nil {
			return nil, err
		}
	}
	return doc, nil
}
