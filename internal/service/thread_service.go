package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	cfg "github.com/Akash01010101/threadcraft/configs"
	"github.com/Akash01010101/threadcraft/internal/models"
	"github.com/Akash01010101/threadcraft/internal/repository"
	"github.com/Akash01010101/threadcraft/internal/transfer"
	"github.com/Akash01010101/threadcraft/internal/twitter"
	"github.com/Akash01010101/threadcraft/pkg/utils"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type ThreadService interface {
	Create(ctx context.Context, userID string, tc *transfer.ThreadCreation, creds twitter.Credentials) (string, time.Duration, error)
	List(ctx context.Context, userID string) ([]*models.Thread, error)
	Remove(ctx context.Context, userID, threadID string) error
}

type threadService struct {
	cfg cfg.Config
	tr  repository.ThreadRepository
}

func NewThreadService(cfg cfg.Config, tr repository.ThreadRepository) ThreadService {
	return &threadService{cfg: cfg, tr: tr}
}

// Create validates and stores a thread and returns its id plus the delay
// until it is due. A missing scheduled time means publish immediately
// (zero delay). The credential pair is encrypted before it touches the
// database.
func (s *threadService) Create(ctx context.Context, userID string, tc *transfer.ThreadCreation, creds twitter.Credentials) (string, time.Duration, error) {
	if tc == nil {
		err := errors.New("thread creation data is nil")
		slog.Error(err.Error())
		return "", 0, err
	}
	if len(tc.Tweets) == 0 {
		err := errors.New("thread must contain at least one tweet")
		slog.Info(err.Error())
		return "", 0, err
	}
	if creds.AccessToken == "" || creds.AccessSecret == "" {
		err := errors.New("missing user credentials")
		slog.Info(err.Error())
		return "", 0, err
	}

	content := make([]models.ContentUnit, 0, len(tc.Tweets))
	for i, tweet := range tc.Tweets {
		if tweet.Content == "" {
			return "", 0, fmt.Errorf("tweet %d has no text", i+1)
		}
		if len([]rune(tweet.Content)) > models.MaxUnitLength {
			return "", 0, fmt.Errorf("tweet %d exceeds %d characters", i+1, models.MaxUnitLength)
		}
		content = append(content, models.ContentUnit{Text: tweet.Content, ImageURL: tweet.ImageURL})
	}

	var scheduledTime *time.Time
	if tc.ScheduledTime != "" {
		parsed, err := time.Parse("2006-01-02T15:04", tc.ScheduledTime)
		if err != nil {
			err = fmt.Errorf("invalid scheduled time format: %w", err)
			slog.Error(err.Error())
			return "", 0, err
		}
		scheduledTime = &parsed
	}

	encryptedToken, err := utils.Encrypt([]byte(creds.AccessToken), []byte(s.cfg.SecretKey))
	if err != nil {
		return "", 0, fmt.Errorf("error encrypting access token: %w", err)
	}
	encryptedSecret, err := utils.Encrypt([]byte(creds.AccessSecret), []byte(s.cfg.SecretKey))
	if err != nil {
		return "", 0, fmt.Errorf("error encrypting access secret: %w", err)
	}

	id, err := gonanoid.New()
	if err != nil {
		slog.Error(err.Error())
		return "", 0, err
	}

	thread := models.Thread{
		ID:            id,
		UserID:        userID,
		Content:       content,
		ScheduledTime: scheduledTime,
		AccessToken:   encryptedToken,
		AccessSecret:  encryptedSecret,
	}

	if err := s.tr.Create(ctx, &thread); err != nil {
		return "", 0, fmt.Errorf("error creating thread: %w", err)
	}

	var delay time.Duration
	if scheduledTime != nil {
		delay = time.Until(*scheduledTime)
		if delay < 0 {
			delay = 0
		}
	}

	return id, delay, nil
}

func (s *threadService) List(ctx context.Context, userID string) ([]*models.Thread, error) {
	threads, err := s.tr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing threads: %w", err)
	}
	return threads, nil
}

func (s *threadService) Remove(ctx context.Context, userID, threadID string) error {
	if threadID == "" {
		err := errors.New("thread id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.tr.CheckByUserID(ctx, threadID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("thread doesn't exist")
		slog.Info(err.Error())
		return err
	}

	if err := s.tr.Remove(ctx, threadID); err != nil {
		return fmt.Errorf("error removing thread: %w", err)
	}

	return nil
}
