package resolve

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quantmind-br/matchgraph-go/internal/domain"
)

// Raw field names produced by page sources. The core never sees markup; a
// PageSource is responsible for mapping whatever it scrapes onto these keys.
const (
	fieldName        = "name"
	fieldCountry     = "country"
	fieldURL         = "url"
	fieldCompetition = "competition"
	fieldDate        = "date"
	fieldRound       = "round"
	fieldHomeTeamID  = "home_team_id"
	fieldAwayTeamID  = "away_team_id"
	fieldStatus      = "status"
	fieldHomeScore   = "home_score"
	fieldAwayScore   = "away_score"
	fieldMatchIDs    = "match_ids"
)

// requireField reads a mandatory raw field, failing with a ResolutionError
// when it is missing or blank.
func requireField(fields domain.RawFields, kind, key, name string) (string, error) {
	v := strings.TrimSpace(fields[name])
	if v == "" {
		return "", domain.NewResolutionError(kind, key, fmt.Errorf("missing field %q", name))
	}
	return v, nil
}

// parseDate parses the source date format (RFC 3339).
func parseDate(kind, key, raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domain.NewResolutionError(kind, key, fmt.Errorf("invalid date %q: %w", raw, err))
	}
	return t, nil
}

// parseScore parses an integer score field.
func parseScore(kind, key, name, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0, domain.NewResolutionError(kind, key, fmt.Errorf("invalid score field %q: %q", name, raw))
	}
	return n, nil
}

// splitIDs splits a comma-separated identifier list, preserving source order
// and dropping blanks.
func splitIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if id := strings.TrimSpace(p); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// hasScore reports whether both score fields are present, which is what
// distinguishes a played match from a fixture.
func hasScore(fields domain.RawFields) bool {
	return strings.TrimSpace(fields[fieldHomeScore]) != "" &&
		strings.TrimSpace(fields[fieldAwayScore]) != ""
}
