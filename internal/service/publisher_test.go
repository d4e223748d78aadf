package service

import (
	"context"
	"errors"
	"testing"
	"time"

	cfg "github.com/Akash01010101/threadcraft/configs"
	"github.com/Akash01010101/threadcraft/internal/models"
	"github.com/Akash01010101/threadcraft/internal/ratelimit"
	"github.com/Akash01010101/threadcraft/internal/twitter"
	"github.com/Akash01010101/threadcraft/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

type fakePlatform struct {
	publishErrs []error // consumed one per attempt; nil means success
	publishID   string
	calls       [][]twitter.TweetDraft
	creds       twitter.Credentials
}

func (f *fakePlatform) UploadMedia(_ context.Context, _ []byte, _ string) (string, error) {
	return "media-1", nil
}

func (f *fakePlatform) PublishThread(_ context.Context, drafts []twitter.TweetDraft) (string, error) {
	f.calls = append(f.calls, drafts)
	if len(f.publishErrs) > 0 {
		err := f.publishErrs[0]
		f.publishErrs = f.publishErrs[1:]
		if err != nil {
			return "", err
		}
	}
	if f.publishID == "" {
		return "tweet-root", nil
	}
	return f.publishID, nil
}

func (f *fakePlatform) DeleteTweet(_ context.Context, _ string) error {
	return nil
}

type fakeThreadRepo struct {
	threads    map[string]*models.Thread
	removed    []string
	failRemove error
}

func newFakeThreadRepo() *fakeThreadRepo {
	return &fakeThreadRepo{threads: make(map[string]*models.Thread)}
}

func (f *fakeThreadRepo) Create(_ context.Context, thread *models.Thread) error {
	f.threads[thread.ID] = thread
	return nil
}

func (f *fakeThreadRepo) GetByID(_ context.Context, id string) (*models.Thread, error) {
	return f.threads[id], nil
}

func (f *fakeThreadRepo) GetByUserID(_ context.Context, userID string) ([]*models.Thread, error) {
	var out []*models.Thread
	for _, t := range f.threads {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeThreadRepo) ListDue(_ context.Context, now time.Time) ([]*models.Thread, error) {
	var due []*models.Thread
	for _, t := range f.threads {
		if t.ScheduledTime == nil || !t.ScheduledTime.After(now) {
			due = append(due, t)
		}
	}
	return due, nil
}

func (f *fakeThreadRepo) CheckByUserID(_ context.Context, threadID, userID string) (bool, error) {
	t, ok := f.threads[threadID]
	return ok && t.UserID == userID, nil
}

func (f *fakeThreadRepo) Remove(_ context.Context, id string) error {
	if f.failRemove != nil {
		return f.failRemove
	}
	f.removed = append(f.removed, id)
	delete(f.threads, id)
	return nil
}

func testConfig() cfg.Config {
	return cfg.Config{SecretKey: testSecretKey}
}

func encryptedThread(t *testing.T, id string, units []models.ContentUnit, scheduled *time.Time) *models.Thread {
	t.Helper()
	token, err := utils.Encrypt([]byte("user-token"), []byte(testSecretKey))
	require.NoError(t, err)
	secret, err := utils.Encrypt([]byte("user-secret"), []byte(testSecretKey))
	require.NoError(t, err)
	return &models.Thread{
		ID:            id,
		UserID:        "u1",
		Content:       units,
		ScheduledTime: scheduled,
		AccessToken:   token,
		AccessSecret:  secret,
	}
}

func newTestPublisher(repo *fakeThreadRepo, platform *fakePlatform, sleeps *[]time.Duration) *Publisher {
	factory := func(creds twitter.Credentials) PlatformClient {
		platform.creds = creds
		return platform
	}
	rl := ratelimit.NewWithClock(3, time.Second, func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	})
	p := NewPublisher(testConfig(), repo, NewAssembler(&fakeBlobStore{objects: map[string][]byte{}}), rl, factory)
	p.sleep = func(d time.Duration) {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
	}
	return p
}

func TestPublishRetriesAfterRateLimitThenSucceeds(t *testing.T) {
	platform := &fakePlatform{publishErrs: []error{
		&twitter.APIError{StatusCode: 429, RateLimit: &twitter.RateLimit{
			Reset: time.Date(2025, 6, 1, 12, 0, 15, 0, time.UTC),
		}},
		nil,
	}}
	var sleeps []time.Duration
	p := newTestPublisher(newFakeThreadRepo(), platform, &sleeps)

	drafts := []twitter.TweetDraft{{Text: "a"}, {Text: "b"}}
	rootID, err := p.Publish(context.Background(), platform, drafts, "t1")

	require.NoError(t, err)
	assert.Equal(t, "tweet-root", rootID)
	require.Len(t, platform.calls, 2)
	assert.Equal(t, drafts, platform.calls[1], "retry resubmits the identical sequence")
	require.Len(t, sleeps, 1)
	assert.Equal(t, 15*time.Second, sleeps[0])
}

func TestPublishFatalDoesNotRetry(t *testing.T) {
	platform := &fakePlatform{publishErrs: []error{
		&twitter.APIError{StatusCode: 401, Detail: "Unauthorized"},
	}}
	p := newTestPublisher(newFakeThreadRepo(), platform, nil)

	_, err := p.Publish(context.Background(), platform, []twitter.TweetDraft{{Text: "a"}}, "t1")

	require.Error(t, err)
	assert.Len(t, platform.calls, 1)
}

func TestPublishGivesUpAfterMaxAttempts(t *testing.T) {
	limited := &twitter.APIError{StatusCode: 429}
	platform := &fakePlatform{publishErrs: []error{limited, limited, limited, limited}}
	var sleeps []time.Duration
	p := newTestPublisher(newFakeThreadRepo(), platform, &sleeps)

	_, err := p.Publish(context.Background(), platform, []twitter.TweetDraft{{Text: "a"}}, "t1")

	require.Error(t, err)
	assert.Len(t, platform.calls, 4, "initial attempt plus three retries")
	assert.Len(t, sleeps, 3)
}

func TestProcessThreadDeletesRowOnSuccess(t *testing.T) {
	repo := newFakeThreadRepo()
	past := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	thread := encryptedThread(t, "t1", []models.ContentUnit{
		{Text: "a"},
		{Text: "b", ImageURL: "https://store.example/media/x.png"},
	}, &past)
	require.NoError(t, repo.Create(context.Background(), thread))

	// Blob fetch for x fails: the second unit goes out text-only, and the
	// thread still posts and commits.
	platform := &fakePlatform{}
	p := newTestPublisher(repo, platform, nil)

	err := p.ProcessThread(context.Background(), thread)
	require.NoError(t, err)

	require.Len(t, platform.calls, 1)
	require.Len(t, platform.calls[0], 2)
	assert.Empty(t, platform.calls[0][1].MediaID)
	assert.Equal(t, []string{"t1"}, repo.removed)
	assert.Equal(t, "user-token", platform.creds.AccessToken)
	assert.Equal(t, "user-secret", platform.creds.AccessSecret)

	due, err := repo.ListDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, due, "posted thread must drop out of the due set")
}

func TestProcessThreadLeavesRowOnPublishFailure(t *testing.T) {
	repo := newFakeThreadRepo()
	thread := encryptedThread(t, "t1", []models.ContentUnit{{Text: "a"}}, nil)
	require.NoError(t, repo.Create(context.Background(), thread))

	platform := &fakePlatform{publishErrs: []error{
		&twitter.APIError{StatusCode: 403, Detail: "Forbidden"},
	}}
	p := newTestPublisher(repo, platform, nil)

	err := p.ProcessThread(context.Background(), thread)
	require.Error(t, err)

	assert.Empty(t, repo.removed)
	assert.NotNil(t, repo.threads["t1"], "failed thread stays for the next pass")
}

func TestProcessThreadAcceptsFailedCommitDelete(t *testing.T) {
	repo := newFakeThreadRepo()
	thread := encryptedThread(t, "t1", []models.ContentUnit{{Text: "a"}}, nil)
	require.NoError(t, repo.Create(context.Background(), thread))
	repo.failRemove = errors.New("store unavailable")

	platform := &fakePlatform{}
	p := newTestPublisher(repo, platform, nil)

	// At-least-once: remote success with a failed local delete is logged,
	// not surfaced as an error.
	err := p.ProcessThread(context.Background(), thread)
	assert.NoError(t, err)
}
