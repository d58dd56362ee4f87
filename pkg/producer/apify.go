package producer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const apifyBaseURL = "https://api.apify.com/v2"

// defaultActorID is the tweet-scraper actor used for engagement scraping.
const defaultActorID = "apidojo/tweet-scraper"

// Apify fetches tweets through an Apify scraping actor. Actor runs are
// asynchronous: we start a run, poll its status at a fixed interval with a
// capped attempt count, then download the dataset.
type Apify struct {
	client       *http.Client
	baseURL      string
	token        string
	actorID      string
	pollInterval time.Duration
	maxAttempts  int
}

// NewApify creates a new Apify producer.
func NewApify(token, actorID string) *Apify {
	if actorID == "" {
		actorID = defaultActorID
	}
	return &Apify{
		client:       &http.Client{Timeout: 30 * time.Second},
		baseURL:      apifyBaseURL,
		token:        token,
		actorID:      actorID,
		pollInterval: 3 * time.Second,
		maxAttempts:  40,
	}
}

func (a *Apify) Name() ProducerType { return ProducerApify }

func (a *Apify) FetchRecords(ctx context.Context, handle string, maxRecords int) ([]RawRecord, error) {
	if a.token == "" {
		return nil, fmt.Errorf("apify token not configured: %w", ErrUnavailable)
	}
	if maxRecords <= 0 {
		maxRecords = 25
	}

	runID, err := a.startRun(ctx, handle, maxRecords)
	if err != nil {
		return nil, err
	}

	datasetID, err := a.waitForRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	records, err := a.fetchDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("apify run %s for @%s: %w", runID, handle, ErrNoData)
	}

	// The free tier of the actor returns placeholder items flagged "demo"
	// instead of real tweets. Treat those the same as an empty result.
	if isDemo, _ := records[0]["demo"].(bool); isDemo {
		return nil, fmt.Errorf("apify returned placeholder data for @%s: %w", handle, ErrNoData)
	}

	return records, nil
}

// actorPath escapes the actor ID for the runs endpoint (apify uses ~ as the
// user/actor separator in URLs).
func (a *Apify) actorPath() string {
	return strings.Replace(a.actorID, "/", "~", 1)
}

func (a *Apify) startRun(ctx context.Context, handle string, maxRecords int) (string, error) {
	payload := map[string]any{
		"searchTerms":   []string{"from:" + handle},
		"tweetsDesired": maxRecords,
		"sortBy":        "Latest",
		"addUserInfo":   true,
	}
	body, _ := json.Marshal(payload)

	url := fmt.Sprintf("%s/acts/%s/runs?token=%s", a.baseURL, a.actorPath(), a.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create apify run request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("start apify run for @%s: %w", handle, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("apify run status %d for @%s: %w", resp.StatusCode, handle, ErrUnavailable)
	}

	var runResp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&runResp); err != nil {
		return "", fmt.Errorf("decode apify run response: %v: %w", err, ErrUnavailable)
	}
	return runResp.Data.ID, nil
}

// waitForRun polls run status until it succeeds, fails, or the attempt cap
// is exceeded. Exceeding the cap is reported as ErrUnavailable.
func (a *Apify) waitForRun(ctx context.Context, runID string) (string, error) {
	url := fmt.Sprintf("%s/acts/%s/runs/%s?token=%s", a.baseURL, a.actorPath(), runID, a.token)

	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		status, datasetID, err := a.runStatus(ctx, url)
		if err != nil {
			return "", err
		}

		switch status {
		case "SUCCEEDED":
			return datasetID, nil
		case "FAILED", "ABORTED", "TIMED-OUT":
			return "", fmt.Errorf("apify run %s ended with status %s: %w", runID, status, ErrUnavailable)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("apify run %s: %w", runID, ErrUnavailable)
		case <-time.After(a.pollInterval):
		}
	}

	return "", fmt.Errorf("apify run %s did not finish after %d attempts: %w", runID, a.maxAttempts, ErrUnavailable)
}

func (a *Apify) runStatus(ctx context.Context, url string) (status, datasetID string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("create apify status request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch apify run status: %w", ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("apify run status endpoint returned %d: %w", resp.StatusCode, ErrUnavailable)
	}

	var statusResp struct {
		Data struct {
			Status           string `json:"status"`
			DefaultDatasetID string `json:"defaultDatasetId"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&statusResp); err != nil {
		return "", "", fmt.Errorf("decode apify run status: %v: %w", err, ErrUnavailable)
	}
	return statusResp.Data.Status, statusResp.Data.DefaultDatasetID, nil
}

func (a *Apify) fetchDataset(ctx context.Context, datasetID string) ([]RawRecord, error) {
	url := fmt.Sprintf("%s/datasets/%s/items?token=%s", a.baseURL, datasetID, a.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create apify dataset request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch apify dataset %s: %w", datasetID, ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("apify dataset %s status %d: %w", datasetID, resp.StatusCode, ErrUnavailable)
	}

	var records []RawRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode apify dataset %s: %v: %w", datasetID, err, ErrUnavailable)
	}
	return records, nil
}
