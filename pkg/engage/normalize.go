package engage

import (
	"github.com/elonfeng/xpulse/pkg/producer"
)

// Metrics is the canonical per-post tuple. Every field is present and
// non-negative after normalization.
type Metrics struct {
	Likes     int64 `json:"likes"`
	Retweets  int64 `json:"retweets"`
	Replies   int64 `json:"replies"`
	Bookmarks int64 `json:"bookmarks"`
	Views     int64 `json:"views"`
}

// Record is one post after normalization, attributed to a handle.
type Record struct {
	Handle    string
	Name      string
	Followers int64
	Metrics   Metrics
}

// Alternate field names per metric, probed in priority order. The canonical
// name comes first so normalizing an already-normalized record is a no-op.
var (
	likeFields     = []string{"likes", "favoriteCount", "likeCount", "favorite_count", "like_count"}
	retweetFields  = []string{"retweets", "retweetCount", "shareCount", "retweet_count"}
	replyFields    = []string{"replies", "replyCount", "commentCount", "reply_count"}
	bookmarkFields = []string{"bookmarks", "bookmarkCount", "bookmark_count"}
	viewFields     = []string{"views", "viewCount", "impressionCount", "view_count"}

	handleFields     = []string{"userName", "username", "screen_name"}
	nameFields       = []string{"name", "displayName", "display_name"}
	followerFields   = []string{"followers", "followersCount", "followers_count"}
	authorContainers = []string{"author", "user"}
)

// Normalize extracts the canonical metrics and author identity from one raw
// record. The second return is false when no handle can be resolved; such
// records must be dropped rather than attributed to a wrong handle.
func Normalize(raw producer.RawRecord) (Record, bool) {
	rec := Record{Metrics: NormalizeMetrics(raw)}

	for _, container := range authorContainers {
		author, ok := raw[container].(map[string]any)
		if !ok {
			continue
		}
		if rec.Handle == "" {
			rec.Handle = probeString(author, handleFields)
		}
		if rec.Name == "" {
			rec.Name = probeString(author, nameFields)
		}
		if rec.Followers == 0 {
			rec.Followers = probeCountMap(author, followerFields)
		}
	}

	if rec.Handle == "" {
		return Record{}, false
	}
	if rec.Name == "" {
		rec.Name = rec.Handle
	}
	return rec, true
}

// NormalizeMetrics extracts just the five canonical metrics from a raw
// record. Already-canonical integer records pass through unchanged.
func NormalizeMetrics(raw producer.RawRecord) Metrics {
	return Metrics{
		Likes:     probeCount(raw, likeFields),
		Retweets:  probeCount(raw, retweetFields),
		Replies:   probeCount(raw, replyFields),
		Bookmarks: probeCount(raw, bookmarkFields),
		Views:     probeCount(raw, viewFields),
	}
}

// probeCount returns the first present metric field, coerced to an integer.
func probeCount(raw producer.RawRecord, fields []string) int64 {
	return probeCountMap(map[string]any(raw), fields)
}

func probeCountMap(m map[string]any, fields []string) int64 {
	for _, field := range fields {
		v, ok := m[field]
		if !ok || v == nil {
			continue
		}
		n := coerceCount(v)
		if n < 0 {
			n = 0
		}
		return n
	}
	return 0
}

func probeString(m map[string]any, fields []string) string {
	for _, field := range fields {
		if s, ok := m[field].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// coerceCount handles the value types backends actually produce: JSON
// numbers decode as float64, our own adapters pass int64, and scraped
// counts arrive as human-formatted strings.
func coerceCount(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		return ParseCount(n)
	default:
		return 0
	}
}
