package transfer

type TweetMetrics struct {
	RetweetCount int `json:"retweet_count"`
	ReplyCount   int `json:"reply_count"`
	LikeCount    int `json:"like_count"`
	QuoteCount   int `json:"quote_count"`
}

type TweetCandidate struct {
	ID      string       `json:"id"`
	Text    string       `json:"text,omitempty"`
	Metrics TweetMetrics `json:"public_metrics"`
}

type DeleteTweetRequest struct {
	TweetID string `json:"tweet_id"`
}

// CleanupRequest carries the caller-supplied candidate set and the
// engagement threshold: candidates with fewer likes than MaxLikes are
// deleted.
type CleanupRequest struct {
	Tweets   []TweetCandidate `json:"tweets"`
	MaxLikes int              `json:"max_likes"`
}
