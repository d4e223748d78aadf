package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Akash01010101/threadcraft/internal/twitter"
	"github.com/Akash01010101/threadcraft/pkg/utils"
	"github.com/hibiken/asynq"
)

// HandlePublishThreadTask publishes one stored thread when its delay
// elapses. A thread already gone from the store was posted by an earlier
// run or removed by the user; either way there is nothing to do.
func (q *Queue) HandlePublishThreadTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishThreadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	thread, err := q.tr.GetByID(ctx, payload.ThreadID)
	if err != nil {
		return err
	}
	if thread == nil {
		slog.Info("thread no longer pending, skipping", "thread_id", payload.ThreadID)
		return nil
	}

	if err := q.pub.ProcessThread(ctx, thread); err != nil {
		slog.Error("scheduled publish failed, thread left for scanner",
			"thread_id", payload.ThreadID, "error", err)
	}

	return nil
}

// HandleDeleteTweetTask re-attempts a previously rate-limited delete.
// Going back through the deleter means a still-limited attempt schedules
// itself again rather than failing.
func (q *Queue) HandleDeleteTweetTask(ctx context.Context, task *asynq.Task) error {
	var payload DeleteTweetPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	accessToken, err := utils.Decrypt(payload.AccessToken, []byte(q.cfg.SecretKey))
	if err != nil {
		return err
	}
	accessSecret, err := utils.Decrypt(payload.AccessSecret, []byte(q.cfg.SecretKey))
	if err != nil {
		return err
	}

	creds := twitter.Credentials{AccessToken: accessToken, AccessSecret: accessSecret}
	client := q.newClient(creds)

	result, err := q.del.DeleteOne(ctx, client, creds, payload.TweetID)
	if err != nil {
		slog.Error("deferred delete failed", "tweet_id", payload.TweetID, "error", err)
		return err
	}

	slog.Info("deferred delete processed", "tweet_id", payload.TweetID, "status", result.Status)
	return nil
}
