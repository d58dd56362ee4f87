package engage

import "math"

// Result is the per-handle output of a comparison. JSON keys are part of the
// public API and must not change.
type Result struct {
	Handle              string  `json:"handle"`
	Name                string  `json:"name"`
	Followers           int64   `json:"followers"`
	TweetsAnalyzed      int     `json:"tweetsAnalyzed"`
	TotalLikes          int64   `json:"totalLikes"`
	TotalRetweets       int64   `json:"totalRetweets"`
	TotalReplies        int64   `json:"totalReplies"`
	TotalEngagements    int64   `json:"totalEngagements"`
	EngagementRate      float64 `json:"engagementRate"`
	AvgLikesPerTweet    float64 `json:"avgLikesPerTweet"`
	AvgRetweetsPerTweet float64 `json:"avgRetweetsPerTweet"`
	AvgRepliesPerTweet  float64 `json:"avgRepliesPerTweet"`
}

// Rate computes a handle's engagement result from its aggregate.
//
// Engagement rate = engagements / (followers x tweets) x 100. The divisions
// are guarded: zero followers or zero tweets yield a rate of exactly 0,
// never NaN or Inf. Bookmarks and views do not count toward engagements
// here; they only feed the weighted single-post score.
func Rate(agg *HandleAggregate) Result {
	engagements := agg.Totals.Likes + agg.Totals.Retweets + agg.Totals.Replies

	res := Result{
		Handle:           agg.Handle,
		Name:             agg.Name,
		Followers:        agg.Followers,
		TweetsAnalyzed:   agg.TweetCount,
		TotalLikes:       agg.Totals.Likes,
		TotalRetweets:    agg.Totals.Retweets,
		TotalReplies:     agg.Totals.Replies,
		TotalEngagements: engagements,
	}

	if agg.TweetCount > 0 && agg.Followers > 0 {
		rate := float64(engagements) / (float64(agg.Followers) * float64(agg.TweetCount)) * 100
		res.EngagementRate = round2(rate)
	}

	if agg.TweetCount > 0 {
		tweets := float64(agg.TweetCount)
		res.AvgLikesPerTweet = round1(float64(agg.Totals.Likes) / tweets)
		res.AvgRetweetsPerTweet = round1(float64(agg.Totals.Retweets) / tweets)
		res.AvgRepliesPerTweet = round1(float64(agg.Totals.Replies) / tweets)
	}

	return res
}

// Weights control the single-post weighted score. A retweet signals stronger
// endorsement than a like; views are heavily discounted so they cannot
// dominate.
type Weights struct {
	Like     float64 `yaml:"like"`
	Retweet  float64 `yaml:"retweet"`
	Reply    float64 `yaml:"reply"`
	Bookmark float64 `yaml:"bookmark"`
	View     float64 `yaml:"view"`
}

// DefaultWeights returns the standard scoring weights.
func DefaultWeights() Weights {
	return Weights{Like: 1.0, Retweet: 3.0, Reply: 2.0, Bookmark: 0.5, View: 0.01}
}

// PostAnalysis is the output of scoring a single post.
type PostAnalysis struct {
	Score           float64 `json:"engagementScore"`
	Virality        float64 `json:"viralityScore"`
	InteractionRate float64 `json:"interactionRate"`
	Tier            string  `json:"engagementTier"`
	Metrics         Metrics `json:"parsedMetrics"`
}

// ScorePost computes the weighted single-post score, its sub-scores, and the
// tier label. The weighted sum is scaled by 1/1000 and capped at 100 to stay
// on a fixed display scale.
func (w Weights) ScorePost(m Metrics) PostAnalysis {
	score := float64(m.Likes)*w.Like +
		float64(m.Retweets)*w.Retweet +
		float64(m.Replies)*w.Reply +
		float64(m.Bookmarks)*w.Bookmark +
		float64(m.Views)*w.View

	normalized := round2(math.Min(score/1000, 100))

	return PostAnalysis{
		Score:           normalized,
		Virality:        virality(m),
		InteractionRate: interactionRate(m),
		Tier:            Tier(normalized),
		Metrics:         m,
	}
}

// virality is the retweet-to-view ratio as a percentage, capped at 100.
func virality(m Metrics) float64 {
	if m.Views == 0 {
		return 0
	}
	v := float64(m.Retweets) / float64(m.Views) * 100
	return round2(math.Min(v, 100))
}

// interactionRate is the share of views that produced any interaction.
func interactionRate(m Metrics) float64 {
	if m.Views == 0 {
		return 0
	}
	interactions := float64(m.Likes + m.Retweets + m.Replies)
	r := interactions / float64(m.Views) * 100
	return round2(math.Min(r, 100))
}

// Tier maps a normalized score to its qualitative band. Boundaries are
// inclusive on the lower bound.
func Tier(score float64) string {
	switch {
	case score >= 80:
		return "Viral"
	case score >= 60:
		return "High"
	case score >= 40:
		return "Medium"
	case score >= 20:
		return "Low"
	default:
		return "Very Low"
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
