package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Akash01010101/threadcraft/internal/models"
	"github.com/Akash01010101/threadcraft/internal/storage"
	"github.com/Akash01010101/threadcraft/internal/twitter"
)

// MediaUploader is the slice of the platform client the assembler needs.
type MediaUploader interface {
	UploadMedia(ctx context.Context, data []byte, contentType string) (string, error)
}

// ThreadPoster submits an ordered draft sequence as one reply chain.
type ThreadPoster interface {
	PublishThread(ctx context.Context, drafts []twitter.TweetDraft) (string, error)
}

// TweetDeleter removes one published tweet.
type TweetDeleter interface {
	DeleteTweet(ctx context.Context, tweetID string) error
}

// PlatformClient is the full per-credential platform surface.
type PlatformClient interface {
	MediaUploader
	ThreadPoster
	TweetDeleter
}

// ClientFactory builds a platform client for one credential pair. Keeping
// construction behind a function keeps credentials out of long-lived
// service structs.
type ClientFactory func(creds twitter.Credentials) PlatformClient

// ErrNoContent is returned when a thread has nothing to publish.
var ErrNoContent = errors.New("thread has no content units")

// Assembler turns stored content units into publishable tweet drafts,
// resolving each unit's media against blob storage.
type Assembler struct {
	blobs storage.BlobStore
}

func NewAssembler(blobs storage.BlobStore) *Assembler {
	return &Assembler{blobs: blobs}
}

// Assemble produces one draft per content unit, in stored order. A unit
// whose media cannot be fetched or uploaded degrades to text-only; media
// failures never fail the thread.
func (a *Assembler) Assemble(ctx context.Context, thread *models.Thread, uploader MediaUploader) ([]twitter.TweetDraft, error) {
	if len(thread.Content) == 0 {
		return nil, ErrNoContent
	}

	drafts := make([]twitter.TweetDraft, 0, len(thread.Content))
	for i, unit := range thread.Content {
		draft := twitter.TweetDraft{Text: unit.Text}

		if unit.ImageURL != "" {
			mediaID, err := a.resolveMedia(ctx, unit.ImageURL, uploader)
			if err != nil {
				slog.Error("media resolution failed, posting unit without media",
					"thread_id", thread.ID, "unit", i, "error", err)
			} else {
				draft.MediaID = mediaID
			}
		}

		drafts = append(drafts, draft)
	}

	return drafts, nil
}

// resolveMedia fetches the blob, uploads it to the platform, and only
// after the platform accepted it deletes the source blob. A failed upload
// leaves the blob in place.
func (a *Assembler) resolveMedia(ctx context.Context, locator string, uploader MediaUploader) (string, error) {
	data, contentType, err := a.blobs.Fetch(ctx, locator)
	if err != nil {
		return "", err
	}

	mediaID, err := uploader.UploadMedia(ctx, data, contentType)
	if err != nil {
		return "", err
	}

	a.cleanupSource(ctx, locator)
	return mediaID, nil
}

// cleanupSource is best-effort; a leftover blob costs storage, not
// correctness.
func (a *Assembler) cleanupSource(ctx context.Context, locator string) {
	if err := a.blobs.DeleteIfExists(ctx, locator); err != nil {
		slog.Warn("failed to delete source blob", "locator", locator, "error", err)
		return
	}
	slog.Info("deleted source blob", "locator", locator)
}
