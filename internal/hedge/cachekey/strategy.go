// Package cachekey derives deterministic cache keys and TTL policies
// for query results.
package cachekey

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// FundScopeTag replaces the per-user scope for fund-wide strategic
// query types so the whole user population shares one cache entry.
const FundScopeTag = "fund"

// digestLen truncates the parameter digest. Collisions between distinct
// parameter sets are theoretically possible and accepted: the key space
// is tiny (≤30 users, a fixed query-type catalog) and a stale answer
// costs far less than the key length everywhere else.
const digestLen = 12

// sharedScopeQueryTypes cache at fund scope rather than user scope.
var sharedScopeQueryTypes = map[string]bool{
	"capacity_summary":       true,
	"utilization_check":      true,
	"pb_deposit_summary":     true,
	"currency_configuration": true,
	"hedging_framework":      true,
	"market_data":            true,
}

// realTimeQueryTypes always expire on the short real-time TTL,
// whatever their usage count.
var realTimeQueryTypes = map[string]bool{
	"market_data": true,
	"live_pnl":    true,
	"liquidity":   true,
}

// permanentQueryTypes never expire.
var permanentQueryTypes = map[string]bool{
	"currency_configuration": true,
	"hedging_framework":      true,
	"entity_master":          true,
}

// Strategy computes cache keys and TTLs. Durations come from config so
// deployments can tune expiry without code changes.
type Strategy struct {
	ShortTTL    time.Duration
	RealtimeTTL time.Duration
}

func New(shortTTL, realtimeTTL time.Duration) *Strategy {
	return &Strategy{ShortTTL: shortTTL, RealtimeTTL: realtimeTTL}
}

// Key derives the cache key for (queryType, scopeID, params). Shared
// scope query types collapse scopeID to the fund-wide tag. The currency
// parameter is lifted into the key as a clear-text tag so that
// clear-by-currency can match keys by pattern; all parameters,
// currency included, feed the digest.
func (s *Strategy) Key(queryType, scopeID string, params map[string]string) string {
	scope := scopeID
	if sharedScopeQueryTypes[queryType] {
		scope = FundScopeTag
	}

	currency := params["currency"]
	if currency == "" {
		currency = "-"
	}

	return fmt.Sprintf("hedge:%s:%s:%s:%s", queryType, scope, currency, digest(params))
}

// digest hashes the sorted parameter pairs so that map insertion order
// never changes the key.
func digest(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(params[k])
		sb.WriteByte('|')
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:])[:digestLen]
}

// TTLFor returns the expiry for a query type given how many times its
// entry has already been used. Zero means no expiry. Non-real-time
// categories are promoted to permanent after the first successful use:
// with a small fixed user base, anything asked once will be asked again.
func (s *Strategy) TTLFor(queryType string, usageCount int64) time.Duration {
	if realTimeQueryTypes[queryType] {
		return s.RealtimeTTL
	}
	if permanentQueryTypes[queryType] {
		return 0
	}
	if usageCount >= 1 {
		return 0
	}
	return s.ShortTTL
}

// IsRealTime reports whether the query type always expires quickly and
// is therefore exempt from promotion.
func IsRealTime(queryType string) bool {
	return realTimeQueryTypes[queryType]
}

// IsSharedScope reports whether the query type caches at fund scope.
func IsSharedScope(queryType string) bool {
	return sharedScopeQueryTypes[queryType]
}
