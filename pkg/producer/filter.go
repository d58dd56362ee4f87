package producer

import "strings"

// retweetMarkers are field names backends use to flag a record as a repost
// of someone else's tweet rather than an original post.
var retweetMarkers = []string{"isRetweet", "is_retweet", "retweeted"}

// Filter drops records that should not count toward a handle's own
// engagement: reposts of other accounts' tweets and promoted posts.
type Filter struct {
	dropRetweets bool
	dropPromoted bool
}

// NewFilter creates a record filter. Both flags default on in config.
func NewFilter(dropRetweets, dropPromoted bool) *Filter {
	return &Filter{dropRetweets: dropRetweets, dropPromoted: dropPromoted}
}

// Apply returns the records that survive filtering. The input slice is not
// modified; callers may hold it in a cache.
func (f *Filter) Apply(records []RawRecord) []RawRecord {
	if f == nil || (!f.dropRetweets && !f.dropPromoted) {
		return records
	}

	kept := make([]RawRecord, 0, len(records))
	for _, rec := range records {
		if f.dropRetweets && isRetweet(rec) {
			continue
		}
		if f.dropPromoted && isTruthy(rec["isPromoted"]) {
			continue
		}
		kept = append(kept, rec)
	}
	return kept
}

func isRetweet(rec RawRecord) bool {
	for _, marker := range retweetMarkers {
		if isTruthy(rec[marker]) {
			return true
		}
	}
	// Some backends signal a repost only through the nested original tweet.
	if _, ok := rec["retweeted_status"]; ok {
		return true
	}
	// Legacy scrapes leave the RT prefix in the text.
	if text, ok := rec["text"].(string); ok && strings.HasPrefix(text, "RT @") {
		return true
	}
	return false
}

func isTruthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
