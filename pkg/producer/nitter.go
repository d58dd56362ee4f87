package producer

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Nitter fetches a handle's recent posts via a Nitter instance's RSS feed.
// Nitter feeds carry no reliable engagement counts, but some instances embed
// stats in the item description; whatever is present is extracted and the
// rest defaults to zero downstream.
type Nitter struct {
	client    *http.Client
	parser    *gofeed.Parser
	nitterURL string
}

// NewNitter creates a new Nitter RSS producer.
func NewNitter(nitterURL string) *Nitter {
	if nitterURL == "" {
		nitterURL = "https://nitter.net"
	}
	return &Nitter{
		client:    &http.Client{Timeout: 30 * time.Second},
		parser:    gofeed.NewParser(),
		nitterURL: strings.TrimRight(nitterURL, "/"),
	}
}

func (n *Nitter) Name() ProducerType { return ProducerNitter }

var nitterStatRe = regexp.MustCompile(`([\d,.]+[KMB]?)\s*(likes?|retweets?|replies?)`)

func (n *Nitter) FetchRecords(ctx context.Context, handle string, maxRecords int) ([]RawRecord, error) {
	if maxRecords <= 0 {
		maxRecords = 25
	}

	feedURL := fmt.Sprintf("%s/%s/rss", n.nitterURL, handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create nitter request @%s: %w", handle, err)
	}
	req.Header.Set("User-Agent", "xpulse/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch nitter @%s: %w", handle, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("nitter @%s not found: %w", handle, ErrNoData)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nitter @%s status %d: %w", handle, resp.StatusCode, ErrUnavailable)
	}

	// Overloaded instances serve HTML error pages with a 200; a feed that
	// fails to parse is the instance misbehaving, not a caller bug.
	feed, err := n.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse nitter @%s: %v: %w", handle, err, ErrUnavailable)
	}

	if len(feed.Items) == 0 {
		return nil, fmt.Errorf("nitter @%s: %w", handle, ErrNoData)
	}

	displayName := handle
	if feed.Title != "" {
		// Feed titles look like "Name / @handle".
		if name, _, found := strings.Cut(feed.Title, "/"); found {
			displayName = strings.TrimSpace(name)
		}
	}

	author := map[string]any{
		"userName": handle,
		"name":     displayName,
	}

	var records []RawRecord
	for _, entry := range feed.Items {
		if len(records) >= maxRecords {
			break
		}

		rec := RawRecord{
			"id":     entry.GUID,
			"text":   entry.Title,
			"author": author,
		}
		for key, value := range extractStats(entry.Description) {
			rec[key] = value
		}
		records = append(records, rec)
	}

	return records, nil
}

// extractStats pulls embedded engagement counts out of a feed item
// description. Counts stay human-formatted strings; the normalizer parses
// them.
func extractStats(description string) map[string]any {
	stats := make(map[string]any)
	for _, match := range nitterStatRe.FindAllStringSubmatch(description, -1) {
		count, label := match[1], strings.ToLower(match[2])
		switch {
		case strings.HasPrefix(label, "like"):
			stats["likes"] = count
		case strings.HasPrefix(label, "retweet"):
			stats["retweets"] = count
		case strings.HasPrefix(label, "repl"):
			stats["replies"] = count
		}
	}
	return stats
}
