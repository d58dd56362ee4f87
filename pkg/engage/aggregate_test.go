package engage

import (
	"testing"

	"github.com/elonfeng/xpulse/pkg/producer"
)

func post(handle string, likes, retweets, replies int64, extra map[string]any) producer.RawRecord {
	author := map[string]any{"userName": handle}
	for k, v := range extra {
		author[k] = v
	}
	return producer.RawRecord{
		"likes":    likes,
		"retweets": retweets,
		"replies":  replies,
		"author":   author,
	}
}

func TestAggregateGroupsByHandle(t *testing.T) {
	records := []producer.RawRecord{
		post("a", 10, 1, 2, nil),
		post("b", 5, 0, 0, nil),
		post("a", 20, 3, 1, nil),
	}

	aggs := Aggregate(records)
	if len(aggs) != 2 {
		t.Fatalf("expected 2 aggregates, got %d", len(aggs))
	}

	// Insertion order: a was seen first.
	if aggs[0].Handle != "a" || aggs[1].Handle != "b" {
		t.Errorf("aggregate order = [%s, %s], want [a, b]", aggs[0].Handle, aggs[1].Handle)
	}

	a := aggs[0]
	if a.TweetCount != 2 {
		t.Errorf("a.TweetCount = %d, want 2", a.TweetCount)
	}
	if a.Totals.Likes != 30 || a.Totals.Retweets != 4 || a.Totals.Replies != 3 {
		t.Errorf("a totals = %+v, want likes 30, retweets 4, replies 3", a.Totals)
	}
}

func TestAggregateFirstSeenWinsForProfile(t *testing.T) {
	records := []producer.RawRecord{
		post("a", 1, 0, 0, map[string]any{"name": "First", "followers": int64(1000)}),
		post("a", 1, 0, 0, map[string]any{"name": "Second", "followers": int64(9999)}),
	}

	aggs := Aggregate(records)
	if len(aggs) != 1 {
		t.Fatalf("expected 1 aggregate, got %d", len(aggs))
	}
	if aggs[0].Name != "First" {
		t.Errorf("name = %q, want First (first-seen wins)", aggs[0].Name)
	}
	if aggs[0].Followers != 1000 {
		t.Errorf("followers = %d, want 1000 (first-seen wins)", aggs[0].Followers)
	}
}

func TestAggregateSkipsUnattributableRecords(t *testing.T) {
	records := []producer.RawRecord{
		post("a", 10, 0, 0, nil),
		{"likes": int64(500)}, // no author
		post("a", 10, 0, 0, nil),
	}

	aggs := Aggregate(records)
	if len(aggs) != 1 {
		t.Fatalf("expected 1 aggregate, got %d", len(aggs))
	}
	if aggs[0].TweetCount != 2 {
		t.Errorf("TweetCount = %d, want 2 (dropped record excluded)", aggs[0].TweetCount)
	}
	if aggs[0].Totals.Likes != 20 {
		t.Errorf("likes = %d, want 20 (dropped record must not leak in)", aggs[0].Totals.Likes)
	}
}

func TestAggregateGroupingIsCaseSensitive(t *testing.T) {
	records := []producer.RawRecord{
		post("Elon", 1, 0, 0, nil),
		post("elon", 1, 0, 0, nil),
	}

	aggs := Aggregate(records)
	if len(aggs) != 2 {
		t.Fatalf("grouping is case-sensitive by exact string; expected 2 aggregates, got %d", len(aggs))
	}
}
