package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Akash01010101/threadcraft/internal/ratelimit"
	"github.com/Akash01010101/threadcraft/internal/twitter"
)

const (
	DeleteStatusDeleted      = "deleted"
	DeleteStatusPendingRetry = "pending_retry"
)

// DeleteResult reports the outcome of a single interactive deletion.
// A rate-limited attempt is not an error: the caller gets the wait and a
// deferred re-attempt is scheduled instead of blocking.
type DeleteResult struct {
	Status     string
	RetryAfter time.Duration
	ResetAt    time.Time
}

// BulkResult reports a bulk cleanup run. Deletions applied before a
// rate-limit halt stay applied; Remaining lists everything not attempted.
type BulkResult struct {
	Deleted     []string
	Failed      []string
	Remaining   []string
	RateLimited bool
	RetryAfter  time.Duration
}

// RetryScheduler defers one delete re-attempt; wired to the task queue in
// production, faked in tests.
type RetryScheduler func(tweetID string, creds twitter.Credentials, wait time.Duration) error

// Deleter drives tweet cleanup against the platform, throttling on its
// rate-limit signals. It holds no persisted state.
type Deleter struct {
	rl       *ratelimit.Controller
	schedule RetryScheduler
}

func NewDeleter(rl *ratelimit.Controller, schedule RetryScheduler) *Deleter {
	return &Deleter{rl: rl, schedule: schedule}
}

// DeleteOne removes a single tweet. On a rate limit it schedules one
// deferred re-attempt after the reported wait and returns a pending-retry
// result instead of sleeping on the caller's request.
func (d *Deleter) DeleteOne(ctx context.Context, client TweetDeleter, creds twitter.Credentials, tweetID string) (*DeleteResult, error) {
	err := client.DeleteTweet(ctx, tweetID)
	if err == nil {
		return &DeleteResult{Status: DeleteStatusDeleted}, nil
	}

	classification := d.rl.Classify(err)
	if classification.Kind != ratelimit.KindRateLimited {
		return nil, fmt.Errorf("error deleting tweet %s: %w", tweetID, err)
	}

	if schedErr := d.schedule(tweetID, creds, classification.Wait); schedErr != nil {
		slog.Error("failed to schedule delete retry", "tweet_id", tweetID, "error", schedErr)
		return nil, fmt.Errorf("rate limited and retry scheduling failed for tweet %s: %w", tweetID, schedErr)
	}

	slog.Info("delete rate limited, retry scheduled",
		"tweet_id", tweetID, "wait", classification.Wait)

	return &DeleteResult{
		Status:     DeleteStatusPendingRetry,
		RetryAfter: classification.Wait,
		ResetAt:    classification.ResetAt,
	}, nil
}

// DeleteMany filters candidates below the like threshold and deletes them
// sequentially in the caller-supplied order. The first rate-limited
// response halts the batch and surfaces the remaining wait; transient
// failures get the controller's bounded retry, fatal ones are logged and
// skipped so one bad item cannot sink the rest.
func (d *Deleter) DeleteMany(ctx context.Context, client TweetDeleter, candidates []twitter.Tweet, maxLikes int) (*BulkResult, error) {
	filtered := FilterByLikes(candidates, maxLikes)

	result := &BulkResult{
		Deleted:   []string{},
		Failed:    []string{},
		Remaining: []string{},
	}

	for i, tweet := range filtered {
		var state ratelimit.State
		err := d.deleteWithRetry(ctx, client, tweet.ID, &state)
		if err == nil {
			result.Deleted = append(result.Deleted, tweet.ID)
			continue
		}

		classification := d.rl.Classify(err)
		if classification.Kind == ratelimit.KindRateLimited {
			result.RateLimited = true
			result.RetryAfter = classification.Wait
			for _, rest := range filtered[i:] {
				result.Remaining = append(result.Remaining, rest.ID)
			}
			slog.Warn("bulk delete halted by rate limit",
				"deleted", len(result.Deleted), "remaining", len(result.Remaining),
				"wait", classification.Wait)
			return result, nil
		}

		slog.Error("bulk delete item failed", "tweet_id", tweet.ID, "error", err)
		result.Failed = append(result.Failed, tweet.ID)
	}

	return result, nil
}

// deleteWithRetry retries a transient failure once; rate limits and fatal
// errors propagate to the batch loop for its halt-or-skip decision.
func (d *Deleter) deleteWithRetry(ctx context.Context, client TweetDeleter, tweetID string, state *ratelimit.State) error {
	for attempt := 0; ; attempt++ {
		err := client.DeleteTweet(ctx, tweetID)
		if err == nil {
			return nil
		}

		classification := d.rl.Classify(err)
		d.rl.Observe(state, classification)

		if classification.Kind != ratelimit.KindTransient || !d.rl.ShouldRetry(attempt, classification) {
			return err
		}
	}
}

// FilterByLikes keeps candidates whose like count is strictly below the
// threshold. Pure; the caller's slice is untouched.
func FilterByLikes(candidates []twitter.Tweet, maxLikes int) []twitter.Tweet {
	filtered := make([]twitter.Tweet, 0, len(candidates))
	for _, tweet := range candidates {
		if tweet.Metrics.LikeCount < maxLikes {
			filtered = append(filtered, tweet)
		}
	}
	return filtered
}
