package reports

import (
	"net/url"
	"strings"

	"tradeflow/internal/domain/ledger"
)

const (
	keySeparator    = "|"
	detailKeyPrefix = "detail"
)

// NormalizeFilter maps an absent, blank or "All" filter to AllFilter.
func NormalizeFilter(v *string) string {
	if v == nil {
		return AllFilter
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return AllFilter
	}
	return s
}

// GenerateCacheKey derives the analysis cache key from its parameters.
// nil, "" and "All" filters produce the same key. Components are escaped so
// distinct tuples never collide.
func GenerateCacheKey(kind ledger.Direction, start, end string, partner, product *string) string {
	if kind == "" {
		kind = ledger.Outbound
	}
	return joinKey(string(kind), start, end, NormalizeFilter(partner), NormalizeFilter(product))
}

// GenerateDetailCacheKey derives the detail breakdown key for the same parameters.
func GenerateDetailCacheKey(kind ledger.Direction, start, end string, partner, product *string) string {
	return detailKeyPrefix + keySeparator + GenerateCacheKey(kind, start, end, partner, product)
}

// IsDetailKey reports whether key was produced by GenerateDetailCacheKey.
func IsDetailKey(key string) bool {
	return strings.HasPrefix(key, detailKeyPrefix+keySeparator)
}

// DetailKeyFor returns the detail key paired with an analysis key.
func DetailKeyFor(analysisKey string) string {
	return detailKeyPrefix + keySeparator + analysisKey
}

func joinKey(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.QueryEscape(p)
	}
	return strings.Join(escaped, keySeparator)
}
