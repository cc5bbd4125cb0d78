package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/quantmind-br/matchgraph-go/internal/domain"
)

// RefKey generates the cache key for a page reference. The key is the page
// kind followed by a SHA256 hash of the normalized identifier, so the same
// entity addressed with stray whitespace or case drift hits the same entry.
func RefKey(ref domain.PageRef) string {
	normalized := normalizeID(ref.ID)
	hash := sha256.Sum256([]byte(normalized))
	return string(ref.Kind) + ":" + hex.EncodeToString(hash[:])
}

// normalizeID normalizes an identifier for consistent key generation
func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
