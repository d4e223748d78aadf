package queue

import (
	cfg "github.com/Akash01010101/threadcraft/configs"
	"github.com/Akash01010101/threadcraft/internal/repository"
	"github.com/Akash01010101/threadcraft/internal/service"
)

type Queue struct {
	cfg       cfg.Config
	tr        repository.ThreadRepository
	pub       *service.Publisher
	del       *service.Deleter
	newClient service.ClientFactory
}

func NewQueue(
	cfg cfg.Config,
	tr repository.ThreadRepository,
	pub *service.Publisher,
	del *service.Deleter,
	newClient service.ClientFactory) *Queue {
	return &Queue{
		cfg:       cfg,
		tr:        tr,
		pub:       pub,
		del:       del,
		newClient: newClient,
	}
}

const (
	TaskTypePublishThread = "thread:publish"
	TaskTypeDeleteTweet   = "tweet:delete"
)

type PublishThreadPayload struct {
	ThreadID string `json:"thread_id"`
}

// DeleteTweetPayload defers a rate-limited delete. The token pair rides
// along AES-GCM encrypted, same as at rest.
type DeleteTweetPayload struct {
	TweetID      string `json:"tweet_id"`
	AccessToken  string `json:"access_token"`
	AccessSecret string `json:"access_secret"`
}
