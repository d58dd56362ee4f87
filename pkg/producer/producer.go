package producer

import (
	"context"
	"errors"
)

// ProducerType identifies which backend supplied the records.
type ProducerType string

const (
	ProducerApify     ProducerType = "apify"
	ProducerRapidAPI  ProducerType = "rapidapi"
	ProducerNitter    ProducerType = "nitter"
	ProducerSynthetic ProducerType = "synthetic"
)

// Sentinel errors reported by producers. The comparison engine treats both
// the same way: substitute synthetic data when fallback is enabled.
var (
	// ErrUnavailable means the backend could not be reached or refused us
	// (missing credentials, network failure, scrape job timeout).
	ErrUnavailable = errors.New("producer unavailable")

	// ErrNoData means the backend was reachable but returned zero matching
	// records for the handle.
	ErrNoData = errors.New("no records found")
)

// RawRecord is one post's metrics exactly as a backend returned them.
// Field names and value types vary per backend; normalization happens in
// pkg/engage, never here.
type RawRecord map[string]any

// Producer is the interface every data backend must implement.
type Producer interface {
	Name() ProducerType
	FetchRecords(ctx context.Context, handle string, maxRecords int) ([]RawRecord, error)
}

// AllProducerTypes returns all known backend types.
func AllProducerTypes() []ProducerType {
	return []ProducerType{
		ProducerApify,
		ProducerRapidAPI,
		ProducerNitter,
		ProducerSynthetic,
	}
}
