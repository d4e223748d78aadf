package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cfg "github.com/Akash01010101/threadcraft/configs"
	"github.com/Akash01010101/threadcraft/internal/models"
	"github.com/Akash01010101/threadcraft/internal/ratelimit"
	"github.com/Akash01010101/threadcraft/internal/repository"
	"github.com/Akash01010101/threadcraft/internal/twitter"
	"github.com/Akash01010101/threadcraft/pkg/utils"
)

// Publisher owns the assemble-publish-commit sequence for one thread: it
// resolves media, submits the reply chain with rate-limit-aware retries,
// and deletes the stored row once the platform confirmed the post.
type Publisher struct {
	cfg       cfg.Config
	tr        repository.ThreadRepository
	asm       *Assembler
	rl        *ratelimit.Controller
	newClient ClientFactory
	sleep     func(time.Duration)
}

func NewPublisher(
	cfg cfg.Config,
	tr repository.ThreadRepository,
	asm *Assembler,
	rl *ratelimit.Controller,
	newClient ClientFactory) *Publisher {
	return &Publisher{
		cfg:       cfg,
		tr:        tr,
		asm:       asm,
		rl:        rl,
		newClient: newClient,
		sleep:     time.Sleep,
	}
}

// ProcessThread publishes one stored thread end to end. Deleting the row
// is the commit signal: it only happens after the platform accepted the
// thread, so a crash mid-publish re-runs the thread on the next scan
// (duplicate post at worst, never a lost one).
func (p *Publisher) ProcessThread(ctx context.Context, thread *models.Thread) error {
	accessToken, err := utils.Decrypt(thread.AccessToken, []byte(p.cfg.SecretKey))
	if err != nil {
		return fmt.Errorf("error decrypting access token for thread %s: %w", thread.ID, err)
	}
	accessSecret, err := utils.Decrypt(thread.AccessSecret, []byte(p.cfg.SecretKey))
	if err != nil {
		return fmt.Errorf("error decrypting access secret for thread %s: %w", thread.ID, err)
	}

	client := p.newClient(twitter.Credentials{AccessToken: accessToken, AccessSecret: accessSecret})

	drafts, err := p.asm.Assemble(ctx, thread, client)
	if err != nil {
		return fmt.Errorf("error assembling thread %s: %w", thread.ID, err)
	}

	rootID, err := p.Publish(ctx, client, drafts, thread.ID)
	if err != nil {
		return err
	}

	slog.Info("thread posted", "thread_id", thread.ID, "root_tweet_id", rootID)

	// At-least-once: the remote post succeeded, so a failed local delete
	// is logged and accepted rather than compensated.
	if err := p.tr.Remove(ctx, thread.ID); err != nil {
		slog.Error("thread posted but row deletion failed; duplicate post possible on next scan",
			"thread_id", thread.ID, "error", err)
	}

	return nil
}

// Publish submits the draft sequence, consulting the rate-limit
// controller after each failure. The same sequence is resubmitted on
// retry; the platform offers no idempotency key, so a retried
// partially-posted chain can duplicate its head.
func (p *Publisher) Publish(ctx context.Context, poster ThreadPoster, drafts []twitter.TweetDraft, threadID string) (string, error) {
	var state ratelimit.State

	for attempt := 0; ; attempt++ {
		rootID, err := poster.PublishThread(ctx, drafts)
		if err == nil {
			return rootID, nil
		}

		classification := p.rl.Classify(err)
		p.rl.Observe(&state, classification)

		if !p.rl.ShouldRetry(attempt, classification) {
			slog.Error("publish failed", "thread_id", threadID,
				"classification", classification.Kind.String(), "attempts", attempt+1, "error", err)
			return "", fmt.Errorf("error publishing thread %s: %w", threadID, err)
		}

		wait := p.rl.Backoff(attempt, classification)
		slog.Warn("publish attempt failed, retrying with identical payload",
			"thread_id", threadID, "classification", classification.Kind.String(),
			"wait", wait, "attempt", attempt+1)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		p.sleep(wait)
	}
}
