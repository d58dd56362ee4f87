package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/elonfeng/xpulse/internal/config"
	"github.com/elonfeng/xpulse/internal/scheduler"
	"github.com/elonfeng/xpulse/internal/store"
	"github.com/elonfeng/xpulse/pkg/alert"
	"github.com/elonfeng/xpulse/pkg/engage"
	"github.com/elonfeng/xpulse/pkg/producer"
	"github.com/elonfeng/xpulse/pkg/server"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildProducer(cfg *config.Config) producer.Producer {
	switch cfg.Producers.Backend {
	case "rapidapi":
		return producer.NewRapidAPI(cfg.Producers.RapidAPI.APIKey, cfg.Producers.RapidAPI.Host)
	case "nitter":
		return producer.NewNitter(cfg.Producers.Nitter.URL)
	case "synthetic":
		return producer.NewSynthetic()
	default:
		return producer.NewApify(cfg.Producers.Apify.APIToken, cfg.Producers.Apify.ActorID)
	}
}

// buildEngine wires the comparison engine. The returned store is nil when
// caching is disabled; callers own closing it.
func buildEngine(cfg *config.Config) (*engage.Engine, *store.SQLiteStore, error) {
	var cache *store.SQLiteStore
	if cfg.Cache.Path != "" {
		db, err := store.New(cfg.Cache.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open cache: %w", err)
		}
		cache = db
	}

	opts := engage.Options{
		MinHandles:      cfg.Compare.MinHandles,
		MaxHandles:      cfg.Compare.MaxHandles,
		TweetsPerHandle: cfg.Compare.TweetsPerHandle,
		FetchTimeout:    cfg.Compare.ParseFetchTimeout(),
		Fallback:        cfg.Compare.Fallback,
		Filter:          producer.NewFilter(cfg.Compare.DropRetweets, cfg.Compare.DropPromoted),
		CacheTTL:        cfg.Cache.ParseTTL(),
	}
	if cache != nil {
		opts.Cache = cache
	}

	return engage.NewEngine(buildProducer(cfg), opts), cache, nil
}

func buildWeights(cfg *config.Config) engage.Weights {
	w := engage.Weights{
		Like:     cfg.Scoring.LikeWeight,
		Retweet:  cfg.Scoring.RetweetWeight,
		Reply:    cfg.Scoring.ReplyWeight,
		Bookmark: cfg.Scoring.BookmarkWeight,
		View:     cfg.Scoring.ViewWeight,
	}
	if w == (engage.Weights{}) {
		return engage.DefaultWeights()
	}
	return w
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

func runCompare(handles []string, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	engine, cache, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	cmp, err := engine.Compare(context.Background(), handles)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cmp)
	}

	if cmp.Synthetic {
		fmt.Fprintf(os.Stderr, "warning: %s (handles: %v)\n", cmp.Disclaimer, cmp.SyntheticHandles)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tHANDLE\tRATE\tTWEETS\tFOLLOWERS\tENGAGEMENTS")
	for i, r := range cmp.Results {
		fmt.Fprintf(w, "%d\t@%s\t%.2f%%\t%d\t%d\t%d\n",
			i+1, r.Handle, r.EngagementRate, r.TweetsAnalyzed, r.Followers, r.TotalEngagements)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if cmp.Winner != nil {
		fmt.Printf("\nwinner: @%s (%.2f%%)\n", cmp.Winner.Handle, cmp.Winner.EngagementRate)
	}
	return nil
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if port == 0 {
		port = cfg.Server.Port
	}

	engine, cache, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	srv := server.New(engine, buildWeights(cfg), buildAlertManager(cfg), port)
	return srv.ListenAndServe()
}

func runWatch() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	engine, cache, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(engine, buildAlertManager(cfg), cfg.Watch.Groups, cfg.Watch.ParseInterval())
	if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func runPurge() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Cache.Path == "" {
		return fmt.Errorf("cache disabled (cache.path is empty)")
	}

	db, err := store.New(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer db.Close()

	n, err := db.Purge(context.Background(), cfg.Cache.ParseTTL())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "purged %d stale cache entries\n", n)
	return nil
}
