package producer

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
)

// Disclaimer is attached to every response that contains synthetic records.
const Disclaimer = "Synthetic demo data. Follower counts and engagement numbers are generated, not real."

// Synthetic generates placeholder engagement records when no real backend
// can supply data. Records are derived from a stable hash of the handle, so
// repeated calls for the same handle produce identical numbers.
type Synthetic struct{}

// NewSynthetic creates the fallback producer.
func NewSynthetic() *Synthetic { return &Synthetic{} }

func (s *Synthetic) Name() ProducerType { return ProducerSynthetic }

func (s *Synthetic) FetchRecords(ctx context.Context, handle string, maxRecords int) ([]RawRecord, error) {
	if maxRecords <= 0 {
		maxRecords = 25
	}

	rng := rand.New(rand.NewSource(handleSeed(handle)))

	followers := int64(1_000_000 + rng.Intn(49_000_000)) // 1M to 50M
	tweetCount := 20 + rng.Intn(6)                       // 20 to 25
	if tweetCount > maxRecords {
		tweetCount = maxRecords
	}
	baseEngagement := int64(5_000 + rng.Intn(20_000))

	author := map[string]any{
		"userName":  handle,
		"name":      titleCase(handle),
		"followers": followers,
	}

	records := make([]RawRecord, 0, tweetCount)
	for i := 0; i < tweetCount; i++ {
		likes := baseEngagement + int64(i)*200
		records = append(records, RawRecord{
			"id":        fmt.Sprintf("synthetic:%s:%d", handle, i+1),
			"author":    author,
			"likes":     likes,
			"retweets":  likes / 10,
			"replies":   likes / 20,
			"bookmarks": likes / 40,
			"views":     likes * 50,
		})
	}
	return records, nil
}

// handleSeed derives a stable RNG seed from the handle string.
func handleSeed(handle string) int64 {
	h := fnv.New64a()
	h.Write([]byte(handle))
	return int64(h.Sum64())
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
