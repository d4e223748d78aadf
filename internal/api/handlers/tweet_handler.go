package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/Akash01010101/threadcraft/internal/service"
	"github.com/Akash01010101/threadcraft/internal/transfer"
	"github.com/Akash01010101/threadcraft/internal/twitter"
	"github.com/gofiber/fiber/v2"
)

type TweetHandler struct {
	del       *service.Deleter
	newClient func(creds twitter.Credentials) *twitter.Client
}

func NewTweetHandler(del *service.Deleter, newClient func(creds twitter.Credentials) *twitter.Client) *TweetHandler {
	return &TweetHandler{del: del, newClient: newClient}
}

// ListTweets returns the authenticated user's recent tweets with public
// metrics, the candidate set for cleanup.
func (h *TweetHandler) ListTweets(c *fiber.Ctx) error {
	creds := GetCredentials(c)
	if creds.AccessToken == "" || creds.AccessSecret == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing user credentials",
		})
	}

	months := c.QueryInt("months", 3)
	if months <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid timeframe",
		})
	}

	client := h.newClient(creds)

	userID, err := client.Me(c.Context())
	if err != nil {
		return twitterErrorResponse(c, err)
	}

	startTime := time.Now().AddDate(0, -months, 0)
	tweets, err := client.UserTimeline(c.Context(), userID, startTime)
	if err != nil {
		return twitterErrorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"tweets": tweets})
}

// DeleteTweet removes one tweet. A rate-limited attempt answers 202 with
// the wait; the re-attempt is already queued.
func (h *TweetHandler) DeleteTweet(c *fiber.Ctx) error {
	creds := GetCredentials(c)
	if creds.AccessToken == "" || creds.AccessSecret == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing authentication tokens",
		})
	}

	var req transfer.DeleteTweetRequest
	if err := c.BodyParser(&req); err != nil || req.TweetID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing tweet_id",
		})
	}

	client := h.newClient(creds)

	result, err := h.del.DeleteOne(c.Context(), client, creds, req.TweetID)
	if err != nil {
		slog.Error("tweet deletion failed", "tweet_id", req.TweetID, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete tweet",
		})
	}

	if result.Status == service.DeleteStatusPendingRetry {
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"status":         result.Status,
			"retry_after_ms": result.RetryAfter.Milliseconds(),
			"reset_time":     result.ResetAt,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  result.Status,
		"message": "Tweet deleted successfully",
	})
}

// CleanupTweets bulk-deletes the supplied candidates whose like count is
// under the threshold, halting on the first rate limit.
func (h *TweetHandler) CleanupTweets(c *fiber.Ctx) error {
	creds := GetCredentials(c)
	if creds.AccessToken == "" || creds.AccessSecret == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Missing authentication tokens",
		})
	}

	var req transfer.CleanupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	candidates := make([]twitter.Tweet, 0, len(req.Tweets))
	for _, t := range req.Tweets {
		candidates = append(candidates, twitter.Tweet{
			ID:   t.ID,
			Text: t.Text,
			Metrics: twitter.Metrics{
				RetweetCount: t.Metrics.RetweetCount,
				ReplyCount:   t.Metrics.ReplyCount,
				LikeCount:    t.Metrics.LikeCount,
				QuoteCount:   t.Metrics.QuoteCount,
			},
		})
	}

	client := h.newClient(creds)

	result, err := h.del.DeleteMany(c.Context(), client, candidates, req.MaxLikes)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Bulk delete failed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"deleted":        result.Deleted,
		"failed":         result.Failed,
		"remaining":      result.Remaining,
		"rate_limited":   result.RateLimited,
		"retry_after_ms": result.RetryAfter.Milliseconds(),
	})
}

// twitterErrorResponse maps a platform error onto the HTTP boundary,
// keeping the rate-limit wait visible to the caller.
func twitterErrorResponse(c *fiber.Ctx, err error) error {
	var apiErr *twitter.APIError
	if errors.As(err, &apiErr) {
		if apiErr.IsRateLimit() {
			body := fiber.Map{"error": "Rate limit exceeded"}
			if apiErr.RateLimit != nil {
				body["reset_time"] = apiErr.RateLimit.Reset
				waitMs := time.Until(apiErr.RateLimit.Reset).Milliseconds()
				if waitMs < 0 {
					waitMs = 0
				}
				body["retry_after_ms"] = waitMs
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(body)
		}
		return c.Status(apiErr.StatusCode).JSON(fiber.Map{
			"error": apiErr.Detail,
		})
	}

	slog.Error(err.Error())
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Unexpected server error",
	})
}
