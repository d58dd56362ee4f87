package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

const defaultRapidAPIHost = "twitter-x-scraper-api.p.rapidapi.com"

// RapidAPI fetches tweets through the XScraper API on RapidAPI. The vendor's
// response shape has drifted repeatedly, so the profile lookup tries an
// ordered list of endpoint paths and the tweet mapping tolerates several
// envelope formats.
type RapidAPI struct {
	client *http.Client
	apiKey string
	host   string
}

// NewRapidAPI creates a new RapidAPI producer.
func NewRapidAPI(apiKey, host string) *RapidAPI {
	if host == "" {
		host = defaultRapidAPIHost
	}
	return &RapidAPI{
		client: &http.Client{Timeout: 30 * time.Second},
		apiKey: apiKey,
		host:   host,
	}
}

func (r *RapidAPI) Name() ProducerType { return ProducerRapidAPI }

func (r *RapidAPI) FetchRecords(ctx context.Context, handle string, maxRecords int) ([]RawRecord, error) {
	if r.apiKey == "" {
		return nil, fmt.Errorf("rapidapi key not configured: %w", ErrUnavailable)
	}
	if maxRecords <= 0 {
		maxRecords = 25
	}
	if maxRecords > 100 {
		maxRecords = 100 // vendor cap
	}

	profile, err := r.fetchProfile(ctx, handle)
	if err != nil {
		return nil, err
	}

	tweets, err := r.fetchTweets(ctx, handle, maxRecords)
	if err != nil {
		return nil, err
	}
	if len(tweets) == 0 {
		return nil, fmt.Errorf("rapidapi @%s: %w", handle, ErrNoData)
	}

	// Attach an author object to every record so the normalizer can resolve
	// the handle and follower count; the tweets endpoint returns neither.
	author := map[string]any{
		"userName":  handle,
		"name":      profile.Name,
		"followers": profile.FollowersCount,
	}

	records := make([]RawRecord, 0, len(tweets))
	for _, t := range tweets {
		records = append(records, RawRecord{
			"id":           t.ID,
			"text":         t.Text,
			"author":       author,
			"likeCount":    t.PublicMetrics.LikeCount,
			"retweetCount": t.PublicMetrics.RetweetCount,
			"replyCount":   t.PublicMetrics.ReplyCount,
			"viewCount":    t.PublicMetrics.ImpressionCount,
		})
	}
	return records, nil
}

type rapidProfile struct {
	Username       string `json:"username"`
	Name           string `json:"name"`
	FollowersCount int64  `json:"followers_count"`
}

type rapidTweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	PublicMetrics struct {
		LikeCount       int64 `json:"like_count"`
		RetweetCount    int64 `json:"retweet_count"`
		ReplyCount      int64 `json:"reply_count"`
		ImpressionCount int64 `json:"impression_count"`
	} `json:"public_metrics"`
}

// fetchProfile tries the known profile endpoint variants in order and keeps
// the first one that answers 200.
func (r *RapidAPI) fetchProfile(ctx context.Context, handle string) (*rapidProfile, error) {
	paths := []string{
		"/users/by/username/" + url.PathEscape(handle),
		"/users/" + url.PathEscape(handle),
		"/user/profile?username=" + url.QueryEscape(handle),
	}

	var lastStatus int
	for _, path := range paths {
		resp, err := r.get(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("rapidapi profile @%s: %w", handle, ErrUnavailable)
		}

		if resp.StatusCode != http.StatusOK {
			lastStatus = resp.StatusCode
			resp.Body.Close()
			continue
		}

		raw, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read rapidapi profile @%s: %v: %w", handle, err, ErrUnavailable)
		}

		// Some deployments wrap the profile in {"data": ...}, others return
		// it bare.
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Data) > 0 {
			raw = envelope.Data
		}

		var profile rapidProfile
		if err := json.Unmarshal(raw, &profile); err != nil {
			return nil, fmt.Errorf("decode rapidapi profile @%s: %v: %w", handle, err, ErrUnavailable)
		}
		return &profile, nil
	}

	if lastStatus == http.StatusNotFound {
		return nil, fmt.Errorf("rapidapi profile @%s not found: %w", handle, ErrNoData)
	}
	return nil, fmt.Errorf("rapidapi profile @%s status %d: %w", handle, lastStatus, ErrUnavailable)
}

func (r *RapidAPI) fetchTweets(ctx context.Context, handle string, count int) ([]rapidTweet, error) {
	path := fmt.Sprintf("/user/tweets?username=%s&count=%d", url.QueryEscape(handle), count)
	resp, err := r.get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("rapidapi tweets @%s: %w", handle, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rapidapi tweets @%s status %d: %w", handle, resp.StatusCode, ErrUnavailable)
	}

	var envelope struct {
		Success bool         `json:"success"`
		Data    []rapidTweet `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode rapidapi tweets @%s: %v: %w", handle, err, ErrUnavailable)
	}
	return envelope.Data, nil
}

func (r *RapidAPI) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+r.host+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create rapidapi request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", r.apiKey)
	req.Header.Set("X-RapidAPI-Host", r.host)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  rapidapi request error: %v\n", err)
		return nil, err
	}
	return resp, nil
}
