package engage

import (
	"fmt"
	"os"

	"github.com/elonfeng/xpulse/pkg/producer"
)

// HandleAggregate is a handle's accumulated totals over one comparison run.
type HandleAggregate struct {
	Handle     string
	Name       string
	Followers  int64
	TweetCount int
	Totals     Metrics
}

// Aggregate normalizes records and groups them by handle in a single pass.
// Aggregates appear in the order each handle is first seen. Display name and
// follower count are taken from the first record for a handle; later records
// do not overwrite them. Records with no resolvable handle are dropped.
func Aggregate(records []producer.RawRecord) []*HandleAggregate {
	var aggregates []*HandleAggregate
	index := make(map[string]*HandleAggregate)

	for _, raw := range records {
		rec, ok := Normalize(raw)
		if !ok {
			fmt.Fprintf(os.Stderr, "  dropped record with no resolvable handle (id: %v)\n", raw["id"])
			continue
		}

		agg, seen := index[rec.Handle]
		if !seen {
			agg = &HandleAggregate{
				Handle:    rec.Handle,
				Name:      rec.Name,
				Followers: rec.Followers,
			}
			index[rec.Handle] = agg
			aggregates = append(aggregates, agg)
		}

		agg.TweetCount++
		agg.Totals.Likes += rec.Metrics.Likes
		agg.Totals.Retweets += rec.Metrics.Retweets
		agg.Totals.Replies += rec.Metrics.Replies
		agg.Totals.Bookmarks += rec.Metrics.Bookmarks
		agg.Totals.Views += rec.Metrics.Views
	}

	return aggregates
}
