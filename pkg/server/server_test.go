package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elonfeng/xpulse/pkg/engage"
	"github.com/elonfeng/xpulse/pkg/producer"
)

type stubProducer struct {
	records map[string][]producer.RawRecord
}

func (s *stubProducer) Name() producer.ProducerType { return "stub" }

func (s *stubProducer) FetchRecords(_ context.Context, handle string, _ int) ([]producer.RawRecord, error) {
	if records, ok := s.records[handle]; ok {
		return records, nil
	}
	return nil, producer.ErrNoData
}

func newTestServer() *Server {
	p := &stubProducer{records: map[string][]producer.RawRecord{
		"small": {{
			"likes":    int64(5000),
			"retweets": int64(500),
			"replies":  int64(250),
			"author": map[string]any{
				"userName":  "small",
				"name":      "Small",
				"followers": int64(10_000),
			},
		}},
		"big": {{
			"likes":    int64(5000),
			"retweets": int64(500),
			"replies":  int64(250),
			"author": map[string]any{
				"userName":  "big",
				"name":      "Big",
				"followers": int64(1_000_000),
			},
		}},
	}}
	engine := engage.NewEngine(p, engage.Options{Fallback: true})
	return New(engine, engage.DefaultWeights(), nil, 0)
}

type compareResponse struct {
	Success bool               `json:"success"`
	Error   string             `json:"error"`
	Data    *engage.Comparison `json:"data"`
}

func TestCompareEndpoint(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()

	body := strings.NewReader(`{"handles":["big","small"]}`)
	resp, err := http.Post(srv.URL+"/api/compare-engagement", "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got compareResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Success {
		t.Fatalf("success = false, error = %q", got.Error)
	}
	if len(got.Data.Results) != 2 {
		t.Fatalf("got %d results, want 2", len(got.Data.Results))
	}
	if got.Data.Winner == nil || got.Data.Winner.Handle != "small" {
		t.Errorf("winner = %+v, want small", got.Data.Winner)
	}
	if got.Data.Synthetic {
		t.Error("all handles had real records; Synthetic must be false")
	}
}

func TestCompareEndpointBadCardinality(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()

	body := strings.NewReader(`{"handles":["only"]}`)
	resp, err := http.Post(srv.URL+"/api/compare-engagement", "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	var got compareResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Success || got.Error == "" {
		t.Errorf("want success=false with an error message, got %+v", got)
	}
}

func TestCompareEndpointInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/compare-engagement", "application/json", strings.NewReader("{nope"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCompareEndpointMethodNotAllowed(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/compare-engagement")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestCompareQueryEndpoint(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/compare?handles=small,big")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got compareResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Data.Winner == nil || got.Data.Winner.Handle != "small" {
		t.Errorf("winner = %+v, want small", got.Data.Winner)
	}
}

func TestCompareQueryMissingParam(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/compare")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCompareProducerFailureWithoutFallback(t *testing.T) {
	// Fallback disabled: a producer failure surfaces as a 500 naming the
	// handle instead of substituting synthetic data.
	p := &stubProducer{}
	engine := engage.NewEngine(p, engage.Options{Fallback: false})
	srv := httptest.NewServer(New(engine, engage.DefaultWeights(), nil, 0).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/compare?handles=ghost1,ghost2")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}

	var got compareResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Success {
		t.Error("success must be false on producer failure")
	}
	if !strings.Contains(got.Error, "ghost") {
		t.Errorf("error %q does not name the failing handle", got.Error)
	}
}

func TestCompareSyntheticDisclosure(t *testing.T) {
	// No records for either handle; with fallback on, the response must
	// disclose the substitution.
	p := &stubProducer{}
	engine := engage.NewEngine(p, engage.Options{Fallback: true})
	srv := httptest.NewServer(New(engine, engage.DefaultWeights(), nil, 0).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/compare?handles=ghost1,ghost2")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var got compareResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Data.Synthetic {
		t.Error("Synthetic must be true when every handle fell back")
	}
	if len(got.Data.SyntheticHandles) != 2 {
		t.Errorf("SyntheticHandles = %v, want both handles", got.Data.SyntheticHandles)
	}
	if got.Data.Disclaimer == "" {
		t.Error("disclaimer missing from synthetic response")
	}
}

func TestAnalyzePostEndpoint(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()

	body := strings.NewReader(`{"likeCount":"1.2K","retweetCount":100,"replyCount":50,"viewCount":"10K"}`)
	resp, err := http.Post(srv.URL+"/api/analyze-post", "application/json", body)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got struct {
		Success bool                `json:"success"`
		Data    engage.PostAnalysis `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Data.Metrics.Likes != 1200 {
		t.Errorf("parsed likes = %d, want 1200 from \"1.2K\"", got.Data.Metrics.Likes)
	}
	// 1200 + 100*3 + 50*2 + 10000*0.01 = 1700; /1000 = 1.7
	if got.Data.Score != 1.7 {
		t.Errorf("score = %v, want 1.7", got.Data.Score)
	}
	if got.Data.Tier != "Very Low" {
		t.Errorf("tier = %q, want Very Low", got.Data.Tier)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := httptest.NewServer(newTestServer().Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["status"] != "ok" {
		t.Errorf("status field = %q, want ok", got["status"])
	}
}
