package engage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/elonfeng/xpulse/pkg/producer"
)

// ErrInvalidInput marks request validation failures: handle count outside
// the configured bounds, or empty handles after cleaning.
var ErrInvalidInput = errors.New("invalid input")

// RecordCache stores raw producer responses so repeated comparisons within
// the TTL skip the backend. Implemented by internal/store.
type RecordCache interface {
	Get(ctx context.Context, source, handle string, maxAge time.Duration) ([]producer.RawRecord, bool)
	Put(ctx context.Context, source, handle string, records []producer.RawRecord) error
}

// Options configure a comparison engine.
type Options struct {
	MinHandles      int
	MaxHandles      int
	TweetsPerHandle int
	FetchTimeout    time.Duration
	Fallback        bool          // substitute synthetic data on producer failure
	Filter          *producer.Filter
	Cache           RecordCache   // nil disables caching
	CacheTTL        time.Duration
}

// Engine runs engagement comparisons across handles.
type Engine struct {
	producer  producer.Producer
	synthetic *producer.Synthetic
	opts      Options
}

// NewEngine creates a comparison engine backed by the given producer.
func NewEngine(p producer.Producer, opts Options) *Engine {
	if opts.MinHandles <= 0 {
		opts.MinHandles = 2
	}
	if opts.MaxHandles <= 0 {
		opts.MaxHandles = 3
	}
	if opts.TweetsPerHandle <= 0 {
		opts.TweetsPerHandle = 25
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 3 * time.Minute
	}
	return &Engine{
		producer:  p,
		synthetic: producer.NewSynthetic(),
		opts:      opts,
	}
}

// Comparison is the full output of one comparison run. Results are ordered
// descending by engagement rate and Winner is always the first result (nil
// only when Results is empty).
type Comparison struct {
	Results          []Result  `json:"results"`
	Winner           *Result   `json:"winner"`
	Timestamp        time.Time `json:"timestamp"`
	Synthetic        bool      `json:"synthetic"`
	SyntheticHandles []string  `json:"syntheticHandles,omitempty"`
	Disclaimer       string    `json:"disclaimer,omitempty"`
}

type handleFetch struct {
	handle    string
	records   []producer.RawRecord
	synthetic bool
	err       error
}

// Compare fetches, aggregates, and rates every requested handle, then ranks
// the results. Handles are cleaned of whitespace and a leading @ before use;
// no other correction is applied.
func (e *Engine) Compare(ctx context.Context, handles []string) (*Comparison, error) {
	cleaned, err := e.cleanHandles(handles)
	if err != nil {
		return nil, err
	}

	// Fetch all handles concurrently. Each handle's records feed only its
	// own aggregate, so no ranking happens until every fetch has joined.
	fetches := make([]handleFetch, len(cleaned))
	var wg sync.WaitGroup
	for i, handle := range cleaned {
		wg.Add(1)
		go func(i int, handle string) {
			defer wg.Done()
			fetches[i] = e.fetchHandle(ctx, handle)
		}(i, handle)
	}
	wg.Wait()

	cmp := &Comparison{Timestamp: time.Now().UTC()}

	for _, f := range fetches {
		if f.err != nil {
			return nil, fmt.Errorf("fetch records for @%s: %w", f.handle, f.err)
		}
		if f.synthetic {
			cmp.Synthetic = true
			cmp.SyntheticHandles = append(cmp.SyntheticHandles, f.handle)
		}
		cmp.Results = append(cmp.Results, e.rateHandle(f))
	}

	if cmp.Synthetic {
		cmp.Disclaimer = producer.Disclaimer
	}

	// Rank by engagement rate; equal rates order alphabetically by handle
	// so repeated runs are deterministic.
	sort.SliceStable(cmp.Results, func(i, j int) bool {
		if cmp.Results[i].EngagementRate != cmp.Results[j].EngagementRate {
			return cmp.Results[i].EngagementRate > cmp.Results[j].EngagementRate
		}
		return cmp.Results[i].Handle < cmp.Results[j].Handle
	})

	if len(cmp.Results) > 0 {
		cmp.Winner = &cmp.Results[0]
	}
	return cmp, nil
}

// cleanHandles trims whitespace and a leading @, then validates cardinality
// and uniqueness.
func (e *Engine) cleanHandles(handles []string) ([]string, error) {
	if len(handles) < e.opts.MinHandles || len(handles) > e.opts.MaxHandles {
		return nil, fmt.Errorf("%w: expected %d to %d handles, got %d",
			ErrInvalidInput, e.opts.MinHandles, e.opts.MaxHandles, len(handles))
	}

	cleaned := make([]string, 0, len(handles))
	seen := make(map[string]bool)
	for _, h := range handles {
		h = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(h), "@"))
		if h == "" {
			return nil, fmt.Errorf("%w: empty handle", ErrInvalidInput)
		}
		if seen[h] {
			return nil, fmt.Errorf("%w: duplicate handle %q", ErrInvalidInput, h)
		}
		seen[h] = true
		cleaned = append(cleaned, h)
	}
	return cleaned, nil
}

// fetchHandle retrieves one handle's records, consulting the cache first and
// applying the fallback policy on producer failure.
func (e *Engine) fetchHandle(ctx context.Context, handle string) handleFetch {
	f := handleFetch{handle: handle}

	if e.opts.Cache != nil {
		if records, ok := e.opts.Cache.Get(ctx, string(e.producer.Name()), handle, e.opts.CacheTTL); ok {
			f.records = records
			return f
		}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
	defer cancel()

	records, err := e.producer.FetchRecords(fetchCtx, handle, e.opts.TweetsPerHandle)
	if err != nil {
		if !e.recoverable(fetchCtx, err) {
			f.err = err
			return f
		}
		if !e.opts.Fallback {
			f.err = err
			return f
		}

		fmt.Fprintf(os.Stderr, "  %s @%s degraded (%v), using synthetic data\n", e.producer.Name(), handle, err)
		records, _ = e.synthetic.FetchRecords(ctx, handle, e.opts.TweetsPerHandle)
		f.records = records
		f.synthetic = true
		return f
	}

	if e.opts.Cache != nil {
		if err := e.opts.Cache.Put(ctx, string(e.producer.Name()), handle, records); err != nil {
			fmt.Fprintf(os.Stderr, "  cache write for @%s failed: %v\n", handle, err)
		}
	}

	f.records = records
	return f
}

// recoverable reports whether an error should trigger the fallback policy.
// Unavailable and NoData are treated identically; a fetch timeout counts as
// unavailable.
func (e *Engine) recoverable(ctx context.Context, err error) bool {
	if errors.Is(err, producer.ErrUnavailable) || errors.Is(err, producer.ErrNoData) {
		return true
	}
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

// rateHandle turns one handle's fetched records into its result. A handle
// with zero usable records still yields an all-zero result so the response
// always carries one entry per requested handle.
func (e *Engine) rateHandle(f handleFetch) Result {
	records := f.records
	if e.opts.Filter != nil {
		records = e.opts.Filter.Apply(records)
	}

	aggregates := Aggregate(records)
	if len(aggregates) == 0 {
		return Result{Handle: f.handle, Name: f.handle}
	}

	// Grouping is case-sensitive on the record's own handle string. Prefer
	// the aggregate matching the request exactly; otherwise take the first
	// seen, which carries the account's canonical casing.
	chosen := aggregates[0]
	for _, agg := range aggregates {
		if agg.Handle == f.handle {
			chosen = agg
			break
		}
	}
	return Rate(chosen)
}
